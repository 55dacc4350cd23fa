package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allEnvVars = []string{
	"PORT", "SS_HTTP_ADDR", "SS_GRPC_ADDR", "SS_DATA_DIR", "CLAUDE_SECOND_SCREEN_DATA_DIR", "SS_NATS_URL",
	"SS_SAVE_DEBOUNCE", "SS_SWEEP_INTERVAL", "SS_TASK_TTL", "SS_SESSION_TTL",
	"SS_LOG_LEVEL", "SS_LOG_FORMAT",
	"SS_MIRROR_S3_BUCKET", "SS_MIRROR_S3_KEY", "SS_MIRROR_S3_REGION", "SS_MIRROR_S3_ENDPOINT",
	"SS_MIRROR_GIT_REPO", "SS_MIRROR_GIT_FILE", "SS_MIRROR_GIT_BRANCH", "SS_MIRROR_GIT_PUSH",
	"SS_CONFIG",
}

// clearAllEnv blanks every variable Load reads and points the default
// config location at an empty directory.
func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearAllEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.HTTPAddr != ":3456" {
		t.Errorf("HTTPAddr = %q, want :3456", cfg.HTTPAddr)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("DataDir = %q, want ./data", cfg.DataDir)
	}
	if cfg.SnapshotPath() != filepath.Join("data", "sessions.json") {
		t.Errorf("SnapshotPath() = %q", cfg.SnapshotPath())
	}
	for name, got := range map[string]time.Duration{
		"SaveDebounce":  cfg.SaveDebounce,
		"SweepInterval": cfg.SweepInterval,
		"TaskTTL":       cfg.TaskTTL,
		"SessionTTL":    cfg.SessionTTL,
	} {
		want := map[string]time.Duration{
			"SaveDebounce":  time.Second,
			"SweepInterval": time.Minute,
			"TaskTTL":       5 * time.Minute,
			"SessionTTL":    24 * time.Hour,
		}[name]
		if got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "auto" {
		t.Errorf("log = %q/%q, want info/auto", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.NATSURL != "" || cfg.MirrorS3Bucket != "" {
		t.Errorf("optional integrations should be disabled by default")
	}
	if cfg.MirrorS3Key != "secondscreen/sessions.json" || cfg.MirrorS3Region != "us-east-1" {
		t.Errorf("mirror defaults = %q/%q", cfg.MirrorS3Key, cfg.MirrorS3Region)
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want empty when no config exists", cfg.File)
	}
}

func TestLoad_Env(t *testing.T) {
	for _, tc := range []struct {
		name         string
		env          map[string]string
		wantHTTPAddr string
		wantDataDir  string
	}{
		{
			name:         "Port",
			env:          map[string]string{"PORT": "8080"},
			wantHTTPAddr: ":8080",
			wantDataDir:  "./data",
		},
		{
			name:         "HTTPAddrBeatsPort",
			env:          map[string]string{"PORT": "8080", "SS_HTTP_ADDR": "127.0.0.1:9000"},
			wantHTTPAddr: "127.0.0.1:9000",
			wantDataDir:  "./data",
		},
		{
			name:         "LegacyDataDir",
			env:          map[string]string{"CLAUDE_SECOND_SCREEN_DATA_DIR": "/var/lib/ss"},
			wantHTTPAddr: ":3456",
			wantDataDir:  "/var/lib/ss",
		},
		{
			name: "DataDirBeatsLegacy",
			env: map[string]string{
				"CLAUDE_SECOND_SCREEN_DATA_DIR": "/legacy",
				"SS_DATA_DIR":                   "/new",
			},
			wantHTTPAddr: ":3456",
			wantDataDir:  "/new",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.HTTPAddr != tc.wantHTTPAddr {
				t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, tc.wantHTTPAddr)
			}
			if cfg.DataDir != tc.wantDataDir {
				t.Errorf("DataDir = %q, want %q", cfg.DataDir, tc.wantDataDir)
			}
		})
	}
}

func TestLoad_Durations(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("SS_SAVE_DEBOUNCE", "250ms")
	t.Setenv("SS_SWEEP_INTERVAL", "10s")
	t.Setenv("SS_TASK_TTL", "30s")
	t.Setenv("SS_SESSION_TTL", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.SaveDebounce != 250*time.Millisecond || cfg.SweepInterval != 10*time.Second ||
		cfg.TaskTTL != 30*time.Second || cfg.SessionTTL != time.Hour {
		t.Errorf("durations = %v %v %v %v", cfg.SaveDebounce, cfg.SweepInterval, cfg.TaskTTL, cfg.SessionTTL)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	for _, tc := range []struct {
		key, value, wantErr string
	}{
		{"SS_SAVE_DEBOUNCE", "soon", "SS_SAVE_DEBOUNCE"},
		{"SS_SWEEP_INTERVAL", "0s", "must be positive"},
		{"SS_TASK_TTL", "-1m", "SS_TASK_TTL"},
		{"SS_LOG_FORMAT", "xml", "SS_LOG_FORMAT"},
	} {
		t.Run(tc.key, func(t *testing.T) {
			clearAllEnv(t)
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	clearAllEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
http_addr = ":4000"
data_dir = "/srv/ss"
nats_url = "nats://bus:4222"
task_ttl = "2m"
log_format = "json"

[mirror]
s3_bucket = "backups"
s3_endpoint = "http://minio:9000"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SS_CONFIG", path)
	t.Setenv("SS_TASK_TTL", "3m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
	if cfg.HTTPAddr != ":4000" || cfg.DataDir != "/srv/ss" || cfg.NATSURL != "nats://bus:4222" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.TaskTTL != 3*time.Minute {
		t.Errorf("TaskTTL = %v, want env override 3m", cfg.TaskTTL)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.MirrorS3Bucket != "backups" || cfg.MirrorS3Endpoint != "http://minio:9000" {
		t.Errorf("mirror = %q/%q", cfg.MirrorS3Bucket, cfg.MirrorS3Endpoint)
	}
	if cfg.MirrorS3Region != "us-east-1" {
		t.Errorf("MirrorS3Region = %q, want default kept", cfg.MirrorS3Region)
	}
}

func TestLoad_DefaultFileLocation(t *testing.T) {
	clearAllEnv(t)
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	dir := filepath.Join(xdg, "secondscreen")
	os.MkdirAll(dir, 0o755)
	os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`sweep_interval = "5s"`), 0o644)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.SweepInterval != 5*time.Second {
		t.Errorf("SweepInterval = %v, want 5s", cfg.SweepInterval)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("SS_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	clearAllEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("http_addr = "), 0o644)
	t.Setenv("SS_CONFIG", path)
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestLoad_GitMirror(t *testing.T) {
	clearAllEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MirrorGitRepo != "" || cfg.MirrorGitFile != "sessions.json" || cfg.MirrorGitBranch != "main" || cfg.MirrorGitPush {
		t.Errorf("git defaults = %q %q %q %v", cfg.MirrorGitRepo, cfg.MirrorGitFile, cfg.MirrorGitBranch, cfg.MirrorGitPush)
	}

	t.Setenv("SS_MIRROR_GIT_REPO", "/srv/state")
	t.Setenv("SS_MIRROR_GIT_BRANCH", "dash")
	t.Setenv("SS_MIRROR_GIT_PUSH", "true")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MirrorGitRepo != "/srv/state" || cfg.MirrorGitBranch != "dash" || !cfg.MirrorGitPush {
		t.Errorf("git from env = %q %q %v", cfg.MirrorGitRepo, cfg.MirrorGitBranch, cfg.MirrorGitPush)
	}

	t.Setenv("SS_MIRROR_GIT_PUSH", "sometimes")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "SS_MIRROR_GIT_PUSH") {
		t.Errorf("expected SS_MIRROR_GIT_PUSH error, got %v", err)
	}
}

func TestLoad_GRPCAddr(t *testing.T) {
	clearAllEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.GRPCAddr != "" {
		t.Errorf("GRPCAddr = %q, want empty by default", cfg.GRPCAddr)
	}

	t.Setenv("SS_GRPC_ADDR", ":9090")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want :9090", cfg.GRPCAddr)
	}
}
