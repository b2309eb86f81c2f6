// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds inventory run configuration.
type Config struct {
	// Logging
	LogLevel  string
	LogFormat string

	// Metrics (optional — empty disables the exposition endpoint)
	MetricsAddr string

	// Databricks connection (overridable by flags / profile file)
	Host      string
	Token     string
	ClusterID string
	Profile   string

	// Walk behavior
	MaxDepth    int
	Concurrency int

	// Execution backend ("sequential" or "pool")
	ExecBackend string

	// Artifact storage ("local" or "s3")
	ArtifactBackend string
	ArtifactRoot    string

	// S3 artifact storage
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
	S3UseSSL    bool

	// Checkpoint
	CheckpointKey string
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:        envOr("LOG_LEVEL", "info"),
		LogFormat:       envOr("LOG_FORMAT", "console"),
		MetricsAddr:     envOr("METRICS_ADDR", ""),
		Host:            envOr("DATABRICKS_HOST", ""),
		Token:           envOr("DATABRICKS_TOKEN", ""),
		ClusterID:       envOr("DATABRICKS_CLUSTER_ID", ""),
		Profile:         envOr("DATABRICKS_CONFIG_PROFILE", ""),
		MaxDepth:        envInt("MAX_DEPTH", 10),
		Concurrency:     envInt("CONCURRENCY", 8),
		ExecBackend:     envOr("EXEC_BACKEND", "pool"),
		ArtifactBackend: envOr("ARTIFACT_BACKEND", "local"),
		ArtifactRoot:    envOr("ARTIFACT_ROOT", "."),
		S3Endpoint:      envOr("S3_ENDPOINT", "http://localhost:9000"),
		S3Bucket:        envOr("S3_BUCKET", "dbx-inventory"),
		S3AccessKey:     envOr("S3_ACCESS_KEY", ""),
		S3SecretKey:     envOr("S3_SECRET_KEY", ""),
		S3Region:        envOr("S3_REGION", "us-east-1"),
		S3UseSSL:        envBool("S3_USE_SSL", false),
		CheckpointKey:   envOr("CHECKPOINT_KEY", "inventory_checkpoint.json"),
	}

	if cfg.MaxDepth < 0 {
		return nil, fmt.Errorf("MAX_DEPTH must be non-negative")
	}
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("CONCURRENCY must be at least 1")
	}
	switch cfg.ExecBackend {
	case "sequential", "pool":
	default:
		return nil, fmt.Errorf("EXEC_BACKEND must be \"sequential\" or \"pool\", got %q", cfg.ExecBackend)
	}
	switch cfg.ArtifactBackend {
	case "local", "s3":
	default:
		return nil, fmt.Errorf("ARTIFACT_BACKEND must be \"local\" or \"s3\", got %q", cfg.ArtifactBackend)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}
