// Package credentials resolves Databricks API credentials from
// precedence-ordered sources: explicit values, the CLI profile file
// (~/.databrickscfg), and environment variables.
package credentials

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Credentials holds everything needed to talk to a workspace.
type Credentials struct {
	Host      string
	Token     string
	ClusterID string
	Profile   string // profile name the values came from, if any
}

// Complete reports whether the minimum required fields are present.
func (c Credentials) Complete() bool {
	return c.Host != "" && c.Token != ""
}

// ErrNotFound is returned by a Provider that has nothing to offer.
var ErrNotFound = errors.New("credentials not found")

// Provider yields credentials from one source.
type Provider interface {
	Resolve(ctx context.Context) (Credentials, error)
}

// Static returns fixed credentials, typically from command-line flags.
type Static struct {
	Creds Credentials
}

// Resolve returns the static credentials, or ErrNotFound if empty.
func (s Static) Resolve(_ context.Context) (Credentials, error) {
	if s.Creds.Host == "" && s.Creds.Token == "" && s.Creds.ClusterID == "" {
		return Credentials{}, ErrNotFound
	}
	return normalize(s.Creds), nil
}

// Env reads DATABRICKS_HOST, DATABRICKS_TOKEN and DATABRICKS_CLUSTER_ID.
type Env struct{}

// Resolve reads credentials from the environment.
func (Env) Resolve(_ context.Context) (Credentials, error) {
	c := Credentials{
		Host:      os.Getenv("DATABRICKS_HOST"),
		Token:     os.Getenv("DATABRICKS_TOKEN"),
		ClusterID: os.Getenv("DATABRICKS_CLUSTER_ID"),
	}
	if c.Host == "" && c.Token == "" {
		return Credentials{}, ErrNotFound
	}
	return normalize(c), nil
}

// ConfigFile reads a Databricks CLI profile file (INI format).
// Profile selection: explicit Profile field, then the
// DATABRICKS_CONFIG_PROFILE environment variable, then "DEFAULT",
// then the first profile in the file.
type ConfigFile struct {
	Path    string // defaults to ~/.databrickscfg
	Profile string
}

// Resolve reads and selects a profile from the config file.
func (f ConfigFile) Resolve(_ context.Context) (Credentials, error) {
	path := f.Path
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Credentials{}, ErrNotFound
		}
		path = filepath.Join(home, ".databrickscfg")
	}

	profiles, order, err := parseProfiles(path)
	if err != nil {
		return Credentials{}, ErrNotFound
	}
	if len(order) == 0 {
		return Credentials{}, ErrNotFound
	}

	target := f.Profile
	if target == "" {
		target = os.Getenv("DATABRICKS_CONFIG_PROFILE")
	}

	var name string
	switch {
	case target != "" && profiles[target] != nil:
		name = target
	case profiles["DEFAULT"] != nil:
		name = "DEFAULT"
	default:
		name = order[0]
	}

	section := profiles[name]
	c := Credentials{
		Host:      section["host"],
		Token:     section["token"],
		ClusterID: section["cluster_id"],
		Profile:   name,
	}
	if !normalize(c).Complete() {
		return Credentials{}, ErrNotFound
	}
	return normalize(c), nil
}

// parseProfiles reads an INI-style profile file. Lines starting with
// '#' or ';' are comments; keys are lowercased.
func parseProfiles(path string) (map[string]map[string]string, []string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	profiles := make(map[string]map[string]string)
	var order []string
	var current string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			current = strings.TrimSpace(line[1 : len(line)-1])
			if profiles[current] == nil {
				profiles[current] = make(map[string]string)
				order = append(order, current)
			}
			continue
		}
		if current == "" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		profiles[current][strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return profiles, order, nil
}

// Chain tries each provider in order and merges results field by
// field: the first provider to supply a field wins. Resolution stops
// early once host and token are both known.
type Chain struct {
	Providers []Provider
}

// NewChain builds the standard precedence chain: explicit values,
// profile file, environment.
func NewChain(explicit Credentials, profile string) Chain {
	return Chain{Providers: []Provider{
		Static{Creds: explicit},
		ConfigFile{Profile: profile},
		Env{},
	}}
}

// Resolve walks the chain, merging partial results.
func (ch Chain) Resolve(ctx context.Context) (Credentials, error) {
	var merged Credentials
	for _, p := range ch.Providers {
		c, err := p.Resolve(ctx)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return Credentials{}, err
		}
		if merged.Host == "" {
			merged.Host = c.Host
		}
		if merged.Token == "" {
			merged.Token = c.Token
		}
		if merged.ClusterID == "" {
			merged.ClusterID = c.ClusterID
		}
		if merged.Profile == "" {
			merged.Profile = c.Profile
		}
		if merged.Complete() && merged.ClusterID != "" {
			break
		}
	}
	if !merged.Complete() {
		return Credentials{}, fmt.Errorf(
			"DATABRICKS_HOST and DATABRICKS_TOKEN must be set: configure a CLI profile, export the environment variables, or pass explicit flags")
	}
	return merged, nil
}

// normalize ensures the host carries an https:// prefix and no
// trailing slash.
func normalize(c Credentials) Credentials {
	if c.Host != "" {
		if !strings.HasPrefix(c.Host, "https://") && !strings.HasPrefix(c.Host, "http://") {
			c.Host = "https://" + c.Host
		}
		c.Host = strings.TrimRight(c.Host, "/")
	}
	return c
}
