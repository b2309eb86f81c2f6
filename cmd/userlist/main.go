// Userlist prints the workspace's users via the SCIM API, optionally
// writing them to a file consumable by brickscan --subjects-file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/config"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/credentials"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/dbx"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/logging"
)

func main() {
	var (
		profile    = flag.String("profile", "", "databricks CLI profile name")
		host       = flag.String("host", "", "workspace URL (overrides profile and env)")
		token      = flag.String("token", "", "access token (overrides profile and env)")
		maxUsers   = flag.Int("max-users", 0, "stop after N users (0 = no limit)")
		outFile    = flag.String("output", "", "write user names to this file instead of stdout")
		activeOnly = flag.Bool("active-only", false, "list only active users")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("configuration error: " + err.Error())
	}
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	ctx := context.Background()

	profileName := *profile
	if profileName == "" {
		profileName = cfg.Profile
	}
	creds, err := credentials.NewChain(credentials.Credentials{Host: *host, Token: *token}, profileName).Resolve(ctx)
	if err != nil {
		logging.Fatal("authentication failed", zap.Error(err))
	}

	client := dbx.NewClient(creds, dbx.ClientConfig{})
	users, err := client.ListUsers(ctx, *maxUsers, func(fetched, total int) {
		logging.Info("listing users", zap.Int("fetched", fetched), zap.Int("total", total))
	})
	if err != nil {
		logging.Fatal("user listing failed", zap.Error(err))
	}

	var names []string
	for _, u := range users {
		if *activeOnly && !u.Active {
			continue
		}
		names = append(names, u.UserName)
	}

	if *outFile != "" {
		data := strings.Join(names, "\n") + "\n"
		if err := os.WriteFile(*outFile, []byte(data), 0644); err != nil {
			logging.Fatal("write output file failed", zap.Error(err))
		}
		logging.Info("user list written",
			zap.String("file", *outFile),
			zap.Int("users", len(names)))
		return
	}

	for _, name := range names {
		fmt.Println(name)
	}
	fmt.Fprintf(os.Stderr, "%d users\n", len(names))
}
