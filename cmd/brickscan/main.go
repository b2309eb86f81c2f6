// Brickscan inventories the home directories of Databricks workspace
// users across the DBFS and Workspace namespaces.
//
// Features:
// - Rate-limited API client with adaptive pacing and retries
// - Checkpointed, resumable runs
// - Sequential or pooled execution
// - CSV export to local or S3 artifact storage
// - Prometheus metrics & structured logging (zap)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/checkpoint"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/config"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/credentials"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/dbx"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/export"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/inventory"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/logging"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/metrics"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/runner"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/storage"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/storage/local"
	s3storage "github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/storage/s3"
	"github.com/LaurentPRAT-DB/dbx-workspace-inventory/internal/subjects"
)

func main() {
	var (
		user         = flag.String("user", "", "inventory a single user")
		subjectsFile = flag.String("subjects-file", "", "file with one subject per line")
		allUsers     = flag.Bool("all-users", false, "inventory every workspace user")
		maxUsers     = flag.Int("max-users", 0, "stop user listing after N users (0 = no limit)")
		profile      = flag.String("profile", "", "databricks CLI profile name")
		host         = flag.String("host", "", "workspace URL (overrides profile and env)")
		token        = flag.String("token", "", "access token (overrides profile and env)")
		output       = flag.String("output", "", "CSV artifact key (default user_files_report_<timestamp>.csv)")
		reset        = flag.Bool("reset", false, "discard any existing checkpoint before running")
		top          = flag.Int("top", 10, "number of largest subjects to list in the summary")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		// Can't use structured logging yet
		panic("configuration error: " + err.Error())
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful interrupt: first signal cancels, letting the
	// checkpoint record partial progress.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logging.Info("interrupt received, saving progress...")
		cancel()
	}()

	if cfg.MetricsAddr != "" {
		go func() {
			logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
			srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	explicit := credentials.Credentials{Host: *host, Token: *token}
	profileName := *profile
	if profileName == "" {
		profileName = cfg.Profile
	}
	creds, err := credentials.NewChain(explicit, profileName).Resolve(ctx)
	if err != nil {
		logging.Fatal("authentication failed", zap.Error(err))
	}
	logging.Info("authenticated", zap.String("host", creds.Host))

	client := dbx.NewClient(creds, dbx.ClientConfig{})

	subjectIDs, err := resolveSubjects(ctx, client, *user, *subjectsFile, *allUsers, *maxUsers)
	if err != nil {
		logging.Fatal("subject resolution failed", zap.Error(err))
	}
	if len(subjectIDs) == 0 {
		logging.Fatal("no subjects to inventory; pass --user, --subjects-file or --all-users")
	}
	logging.Info("subjects resolved", zap.Int("count", len(subjectIDs)))

	backend, err := newArtifactBackend(ctx, cfg)
	if err != nil {
		logging.Fatal("artifact backend init failed", zap.Error(err))
	}
	defer backend.Close()

	store := checkpoint.NewStore(backend, cfg.CheckpointKey)
	if *reset {
		if err := store.Clear(ctx); err != nil {
			logging.Warn("checkpoint reset failed", zap.Error(err))
		}
	}

	listers := []dbx.Lister{dbx.NewDBFS(client), dbx.NewWorkspace(client)}
	worker := inventory.NewWorker(listers, cfg.MaxDepth)

	var exec inventory.ExecutionBackend
	if cfg.ExecBackend == "sequential" {
		exec = inventory.Sequential{}
	} else {
		exec = inventory.Pool{Concurrency: cfg.Concurrency}
	}

	start := time.Now()
	results, runErr := runner.New(worker, exec, store).Run(ctx, subjectIDs)

	var resumable *runner.ResumableError
	if runErr != nil && !errors.As(runErr, &resumable) {
		logging.Fatal("run failed", zap.Error(runErr))
	}

	outKey := *output
	if outKey == "" {
		outKey = fmt.Sprintf("user_files_report_%s.csv", start.UTC().Format("20060102_150405"))
	}
	if len(results) > 0 {
		// The run context may already be canceled after an
		// interrupt; the artifact write must still go through.
		exportCtx := context.WithoutCancel(ctx)
		if err := export.WriteCSV(exportCtx, backend, outKey, results); err != nil {
			logging.Error("csv export failed", zap.Error(err))
		}
	}

	fmt.Print(export.Report(results, time.Since(start), *top))

	if resumable != nil {
		fmt.Printf("\nInterrupted: %d of %d subjects done. Rerun to resume.\n",
			resumable.Completed, resumable.Completed+resumable.Remaining)
		logging.Sync()
		os.Exit(1)
	}
}

// resolveSubjects builds the subject list from whichever source was
// given, in precedence order: explicit user, file, full user listing.
func resolveSubjects(ctx context.Context, client *dbx.Client, user, file string, allUsers bool, maxUsers int) ([]string, error) {
	switch {
	case user != "":
		return []string{user}, nil
	case file != "":
		return subjects.ReadFile(file)
	case allUsers:
		users, err := client.ListUsers(ctx, maxUsers, func(fetched, total int) {
			logging.Info("listing users", zap.Int("fetched", fetched), zap.Int("total", total))
		})
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(users))
		for _, u := range users {
			names = append(names, u.UserName)
		}
		return subjects.Dedupe(names), nil
	default:
		return nil, nil
	}
}

func newArtifactBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	if cfg.ArtifactBackend == "s3" {
		return s3storage.New(ctx, s3storage.Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
	}
	return local.New(local.Config{RootPath: cfg.ArtifactRoot, CreateDirs: true})
}
