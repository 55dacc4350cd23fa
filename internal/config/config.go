package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// SnapshotFile is the snapshot's name inside DataDir.
const SnapshotFile = "sessions.json"

type Config struct {
	HTTPAddr string // SS_HTTP_ADDR, or ":"+PORT (default ":3456")
	DataDir  string // SS_DATA_DIR or CLAUDE_SECOND_SCREEN_DATA_DIR (default "./data")
	NATSURL  string // SS_NATS_URL (optional, empty = no events)
	GRPCAddr string // SS_GRPC_ADDR (optional, empty = no gRPC health service)

	SaveDebounce  time.Duration // SS_SAVE_DEBOUNCE (default 1s)
	SweepInterval time.Duration // SS_SWEEP_INTERVAL (default 60s)
	TaskTTL       time.Duration // SS_TASK_TTL (default 5m)
	SessionTTL    time.Duration // SS_SESSION_TTL (default 24h)

	LogLevel  string // SS_LOG_LEVEL (default "info")
	LogFormat string // SS_LOG_FORMAT: auto, console, json (default "auto")

	// Snapshot mirror settings
	MirrorS3Bucket   string // SS_MIRROR_S3_BUCKET (enables S3 when set)
	MirrorS3Key      string // SS_MIRROR_S3_KEY (default "secondscreen/sessions.json")
	MirrorS3Region   string // SS_MIRROR_S3_REGION (default "us-east-1")
	MirrorS3Endpoint string // SS_MIRROR_S3_ENDPOINT (custom endpoint for MinIO)
	MirrorGitRepo    string // SS_MIRROR_GIT_REPO (local clone; enables git when set)
	MirrorGitFile    string // SS_MIRROR_GIT_FILE (default "sessions.json")
	MirrorGitBranch  string // SS_MIRROR_GIT_BRANCH (default "main")
	MirrorGitPush    bool   // SS_MIRROR_GIT_PUSH (default false)

	// File is the config file that was read, if any.
	File string
}

// SnapshotPath returns where the session snapshot is stored.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, SnapshotFile)
}

// fileConfig mirrors the TOML layout. Durations are strings such as "90s".
type fileConfig struct {
	HTTPAddr      string `toml:"http_addr"`
	DataDir       string `toml:"data_dir"`
	NATSURL       string `toml:"nats_url"`
	GRPCAddr      string `toml:"grpc_addr"`
	SaveDebounce  string `toml:"save_debounce"`
	SweepInterval string `toml:"sweep_interval"`
	TaskTTL       string `toml:"task_ttl"`
	SessionTTL    string `toml:"session_ttl"`
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	Mirror        struct {
		S3Bucket   string `toml:"s3_bucket"`
		S3Key      string `toml:"s3_key"`
		S3Region   string `toml:"s3_region"`
		S3Endpoint string `toml:"s3_endpoint"`
		GitRepo    string `toml:"git_repo"`
		GitFile    string `toml:"git_file"`
		GitBranch  string `toml:"git_branch"`
		GitPush    bool   `toml:"git_push"`
	} `toml:"mirror"`
}

func defaults() fileConfig {
	var f fileConfig
	f.HTTPAddr = ":3456"
	f.DataDir = "./data"
	f.SaveDebounce = "1s"
	f.SweepInterval = "60s"
	f.TaskTTL = "5m"
	f.SessionTTL = "24h"
	f.LogLevel = "info"
	f.LogFormat = "auto"
	f.Mirror.S3Key = "secondscreen/sessions.json"
	f.Mirror.S3Region = "us-east-1"
	f.Mirror.GitFile = SnapshotFile
	f.Mirror.GitBranch = "main"
	return f
}

// Load builds the configuration from defaults, the optional TOML file, and
// environment variables, in increasing precedence.
func Load() (*Config, error) {
	raw := defaults()

	path, explicit := configPath()
	if path != "" {
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || explicit {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
			path = ""
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		raw.HTTPAddr = ":" + port
	}
	raw.HTTPAddr = envOrDefault("SS_HTTP_ADDR", raw.HTTPAddr)
	raw.DataDir = envOrDefault("CLAUDE_SECOND_SCREEN_DATA_DIR", raw.DataDir)
	raw.DataDir = envOrDefault("SS_DATA_DIR", raw.DataDir)
	raw.NATSURL = envOrDefault("SS_NATS_URL", raw.NATSURL)
	raw.GRPCAddr = envOrDefault("SS_GRPC_ADDR", raw.GRPCAddr)
	raw.SaveDebounce = envOrDefault("SS_SAVE_DEBOUNCE", raw.SaveDebounce)
	raw.SweepInterval = envOrDefault("SS_SWEEP_INTERVAL", raw.SweepInterval)
	raw.TaskTTL = envOrDefault("SS_TASK_TTL", raw.TaskTTL)
	raw.SessionTTL = envOrDefault("SS_SESSION_TTL", raw.SessionTTL)
	raw.LogLevel = envOrDefault("SS_LOG_LEVEL", raw.LogLevel)
	raw.LogFormat = envOrDefault("SS_LOG_FORMAT", raw.LogFormat)
	raw.Mirror.S3Bucket = envOrDefault("SS_MIRROR_S3_BUCKET", raw.Mirror.S3Bucket)
	raw.Mirror.S3Key = envOrDefault("SS_MIRROR_S3_KEY", raw.Mirror.S3Key)
	raw.Mirror.S3Region = envOrDefault("SS_MIRROR_S3_REGION", raw.Mirror.S3Region)
	raw.Mirror.S3Endpoint = envOrDefault("SS_MIRROR_S3_ENDPOINT", raw.Mirror.S3Endpoint)
	raw.Mirror.GitRepo = envOrDefault("SS_MIRROR_GIT_REPO", raw.Mirror.GitRepo)
	raw.Mirror.GitFile = envOrDefault("SS_MIRROR_GIT_FILE", raw.Mirror.GitFile)
	raw.Mirror.GitBranch = envOrDefault("SS_MIRROR_GIT_BRANCH", raw.Mirror.GitBranch)
	if v := os.Getenv("SS_MIRROR_GIT_PUSH"); v != "" {
		push, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SS_MIRROR_GIT_PUSH: %w", err)
		}
		raw.Mirror.GitPush = push
	}

	c := &Config{
		HTTPAddr:         raw.HTTPAddr,
		DataDir:          raw.DataDir,
		NATSURL:          raw.NATSURL,
		GRPCAddr:         raw.GRPCAddr,
		LogLevel:         raw.LogLevel,
		LogFormat:        raw.LogFormat,
		MirrorS3Bucket:   raw.Mirror.S3Bucket,
		MirrorS3Key:      raw.Mirror.S3Key,
		MirrorS3Region:   raw.Mirror.S3Region,
		MirrorS3Endpoint: raw.Mirror.S3Endpoint,
		MirrorGitRepo:    raw.Mirror.GitRepo,
		MirrorGitFile:    raw.Mirror.GitFile,
		MirrorGitBranch:  raw.Mirror.GitBranch,
		MirrorGitPush:    raw.Mirror.GitPush,
		File:             path,
	}
	if c.DataDir == "" {
		return nil, fmt.Errorf("SS_DATA_DIR must not be empty")
	}

	for _, d := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"SS_SAVE_DEBOUNCE", raw.SaveDebounce, &c.SaveDebounce},
		{"SS_SWEEP_INTERVAL", raw.SweepInterval, &c.SweepInterval},
		{"SS_TASK_TTL", raw.TaskTTL, &c.TaskTTL},
		{"SS_SESSION_TTL", raw.SessionTTL, &c.SessionTTL},
	} {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.name, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("%s: must be positive, got %s", d.name, d.value)
		}
		*d.dst = v
	}

	switch c.LogFormat {
	case "auto", "console", "json":
	default:
		return nil, fmt.Errorf("SS_LOG_FORMAT: unknown format %q (want auto, console or json)", c.LogFormat)
	}

	return c, nil
}

// configPath returns the TOML file to read and whether it was named
// explicitly via SS_CONFIG.
func configPath() (string, bool) {
	if p := os.Getenv("SS_CONFIG"); p != "" {
		return p, true
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "secondscreen", "config.toml"), false
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
