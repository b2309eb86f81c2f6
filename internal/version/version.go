// Package version infers the Python runtime of a Databricks cluster
// from its runtime version and compares it against a local
// environment to flag client/server mismatches.
package version

import (
	"fmt"
	"strings"

	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/dbx"
)

// dbrPythonVersions maps Databricks Runtime major versions to the
// Python version those runtimes ship.
var dbrPythonVersions = map[string]string{
	"10": "3.8",
	"11": "3.9",
	"12": "3.10",
	"13": "3.10",
	"14": "3.11",
	"15": "3.11",
	"16": "3.11",
}

// dbrConnectVersions maps Databricks Runtime major versions to the
// matching databricks-connect release series.
var dbrConnectVersions = map[string]string{
	"10": "10.4.*",
	"11": "11.3.*",
	"12": "12.2.*",
	"13": "13.3.*",
	"14": "14.3.*",
	"15": "15.4.*",
	"16": "16.1.*",
}

// RuntimeInfo describes the inferred runtime of a cluster.
type RuntimeInfo struct {
	ClusterID          string
	ClusterName        string
	SparkVersion       string
	NodeType           string
	DriverNodeType     string
	NumWorkers         int
	State              string
	InferredPython     string
	RecommendedConnect string
}

// FromCluster infers runtime versions from cluster details.
func FromCluster(c *dbx.ClusterInfo) RuntimeInfo {
	info := RuntimeInfo{
		ClusterID:      c.ClusterID,
		ClusterName:    c.ClusterName,
		SparkVersion:   c.SparkVersion,
		NodeType:       c.NodeTypeID,
		DriverNodeType: c.DriverNodeType,
		NumWorkers:     c.NumWorkers,
		State:          c.State,
	}

	major := dbrMajor(c.SparkVersion)
	if major == "" {
		return info
	}
	if py, ok := dbrPythonVersions[major]; ok {
		info.InferredPython = py
	} else {
		info.InferredPython = "unknown"
	}
	if dbc, ok := dbrConnectVersions[major]; ok {
		info.RecommendedConnect = dbc
	} else {
		info.RecommendedConnect = "latest"
	}
	return info
}

// dbrMajor extracts the runtime major version from a spark_version
// string such as "13.3.x-scala2.12".
func dbrMajor(sparkVersion string) string {
	if sparkVersion == "" {
		return ""
	}
	if i := strings.IndexByte(sparkVersion, '.'); i > 0 {
		return sparkVersion[:i]
	}
	if len(sparkVersion) >= 2 {
		return sparkVersion[:2]
	}
	return sparkVersion
}

// Compatibility verdicts.
const (
	VerdictCompatible = "compatible"
	VerdictMismatch   = "mismatch"
	VerdictUnknown    = "unknown"
)

// Comparison is the verdict of matching a local Python version
// against a cluster's inferred runtime.
type Comparison struct {
	Verdict      string
	LocalPython  string
	ServerPython string
	Advice       string
}

// Compare checks whether localPython (e.g. "3.11.4") matches the
// cluster's inferred Python at minor-version granularity.
func Compare(localPython string, info RuntimeInfo) Comparison {
	cmp := Comparison{
		LocalPython:  minorVersion(localPython),
		ServerPython: info.InferredPython,
	}

	if info.InferredPython == "" || info.InferredPython == "unknown" || cmp.LocalPython == "" {
		cmp.Verdict = VerdictUnknown
		cmp.Advice = "could not infer the server Python version"
		return cmp
	}

	if cmp.LocalPython == info.InferredPython {
		cmp.Verdict = VerdictCompatible
		cmp.Advice = fmt.Sprintf("both sides use Python %s", cmp.LocalPython)
		return cmp
	}

	cmp.Verdict = VerdictMismatch
	cmp.Advice = fmt.Sprintf("install Python %s locally or use databricks-connect==%s",
		info.InferredPython, info.RecommendedConnect)
	return cmp
}

func minorVersion(v string) string {
	parts := strings.SplitN(strings.TrimSpace(v), ".", 3)
	if len(parts) < 2 {
		return strings.TrimSpace(v)
	}
	return parts[0] + "." + parts[1]
}
