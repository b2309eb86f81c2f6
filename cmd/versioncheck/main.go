// Versioncheck inspects a cluster's Databricks Runtime and reports
// the Python and databricks-connect versions a local environment
// should use to match it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/config"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/credentials"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/dbx"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/logging"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/version"
)

func main() {
	var (
		profile     = flag.String("profile", "", "databricks CLI profile name")
		host        = flag.String("host", "", "workspace URL (overrides profile and env)")
		token       = flag.String("token", "", "access token (overrides profile and env)")
		clusterID   = flag.String("cluster-id", "", "specific cluster to check (default: first running cluster)")
		localPython = flag.String("local-python", "", "local Python version to compare, e.g. 3.11.4")
		serverless  = flag.Bool("serverless", false, "report serverless compute guidance instead of a cluster")
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

	fmt.Println("Databricks version compatibility check")
	fmt.Println("  workspace:", creds.Host)
	fmt.Println()

	if *serverless {
		fmt.Println("Serverless compute tracks the latest runtime.")
		fmt.Println("  recommended Python:             3.11")
		fmt.Println("  recommended databricks-connect: 16.1.* or latest")
		return
	}

	client := dbx.NewClient(creds, dbx.ClientConfig{})

	id := *clusterID
	if id == "" {
		id = cfg.ClusterID
	}

	var cluster *dbx.ClusterInfo
	if id != "" {
		cluster, err = client.GetCluster(ctx, id)
	} else {
		cluster, err = client.FindRunningCluster(ctx)
	}
	if err != nil {
		logging.Fatal("cluster lookup failed", zap.Error(err))
	}

	info := version.FromCluster(cluster)
	fmt.Println("Cluster runtime:")
	fmt.Println("  cluster:        ", info.ClusterName)
	fmt.Println("  spark version:  ", info.SparkVersion)
	fmt.Println("  state:          ", info.State)
	fmt.Println("  inferred Python:", info.InferredPython)
	fmt.Println("  recommended databricks-connect:", info.RecommendedConnect)

	if *localPython == "" {
		return
	}

	cmp := version.Compare(*localPython, info)
	fmt.Println()
	fmt.Println("Compatibility:")
	switch cmp.Verdict {
	case version.VerdictCompatible:
		fmt.Printf("  OK: %s\n", cmp.Advice)
	case version.VerdictMismatch:
		fmt.Printf("  MISMATCH: local %s vs server %s\n", cmp.LocalPython, cmp.ServerPython)
		fmt.Printf("  fix: %s\n", cmp.Advice)
		logging.Sync()
		os.Exit(1)
	default:
		fmt.Printf("  UNKNOWN: %s\n", cmp.Advice)
	}
}
