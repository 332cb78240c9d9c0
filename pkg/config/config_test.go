package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"campusboard/pkg/config"
)

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  address: 127.0.0.1
  port: 9090
storage:
  db_path: /tmp/board-db
security:
  signing_keys:
    - alpha
    - beta
board:
  topics: [General, Memes]
  report_threshold: 5
  max_body_len: 500
retention:
  enabled: true
  cron: "0 3 * * *"
  removed_ttl_days: 7
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Fatalf("unexpected addr: %s", cfg.Addr())
	}
	if cfg.Storage.DBPath != "/tmp/board-db" {
		t.Fatalf("unexpected db path: %s", cfg.Storage.DBPath)
	}
	if len(cfg.Security.SigningKeys) != 2 {
		t.Fatalf("unexpected signing keys: %v", cfg.Security.SigningKeys)
	}
	if got := cfg.Topics(); len(got) != 2 || got[0] != "General" {
		t.Fatalf("unexpected topics: %v", got)
	}
	if cfg.ReportThreshold() != 5 {
		t.Fatalf("unexpected threshold: %d", cfg.ReportThreshold())
	}
	if cfg.MaxBodyLen() != 500 {
		t.Fatalf("unexpected body cap: %d", cfg.MaxBodyLen())
	}
	if !cfg.Retention.Enabled || cfg.Retention.RemovedTTLDays != 7 {
		t.Fatalf("unexpected retention: %+v", cfg.Retention)
	}
}

func TestDefaultsWhenUnset(t *testing.T) {
	cfg := &config.Config{}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected default addr: %s", cfg.Addr())
	}
	if cfg.ReportThreshold() != 20 {
		t.Fatalf("unexpected default threshold: %d", cfg.ReportThreshold())
	}
	if cfg.PageSize() != 20 {
		t.Fatalf("unexpected default page size: %d", cfg.PageSize())
	}
	if cfg.MaxBodyLen() != 2000 {
		t.Fatalf("unexpected default body cap: %d", cfg.MaxBodyLen())
	}
	if cfg.PollIntervalSeconds() != 120 {
		t.Fatalf("unexpected default poll interval: %d", cfg.PollIntervalSeconds())
	}
	if len(cfg.Topics()) != 8 {
		t.Fatalf("unexpected default topics: %v", cfg.Topics())
	}
	if got := cfg.ReactionTypes(); len(got) != 2 || got[0] != "smack" || got[1] != "cap" {
		t.Fatalf("unexpected default reactions: %v", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CAMPUSBOARD_ADDR", "10.0.0.1:7070")
	t.Setenv("CAMPUSBOARD_DB_PATH", "/data/board")
	t.Setenv("CAMPUSBOARD_SIGNING_KEYS", "k1, k2")
	t.Setenv("CAMPUSBOARD_REPORT_THRESHOLD", "3")
	t.Setenv("CAMPUSBOARD_TOPICS", "A,B,C")

	cfg := &config.Config{}
	keys, envUsed := config.LoadEnvOverrides(cfg)
	if !envUsed {
		t.Fatal("env vars should be detected")
	}
	if cfg.Addr() != "10.0.0.1:7070" {
		t.Fatalf("unexpected addr: %s", cfg.Addr())
	}
	if cfg.Storage.DBPath != "/data/board" {
		t.Fatalf("unexpected db path: %s", cfg.Storage.DBPath)
	}
	if _, ok := keys["k1"]; !ok {
		t.Fatalf("missing signing key: %v", keys)
	}
	if _, ok := keys["k2"]; !ok {
		t.Fatalf("whitespace should be trimmed: %v", keys)
	}
	if cfg.ReportThreshold() != 3 {
		t.Fatalf("unexpected threshold: %d", cfg.ReportThreshold())
	}
	if got := cfg.Topics(); len(got) != 3 {
		t.Fatalf("unexpected topics: %v", got)
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("CAMPUSBOARD_CONFIG", "/etc/campusboard.yaml")
	if got := config.ResolveConfigPath("./config.yaml", false); got != "/etc/campusboard.yaml" {
		t.Fatalf("env should win when the flag is unset: %s", got)
	}
	if got := config.ResolveConfigPath("./explicit.yaml", true); got != "./explicit.yaml" {
		t.Fatalf("explicit flag should win: %s", got)
	}
}

func TestRuntimeSigningKeysCopied(t *testing.T) {
	config.SetRuntime(&config.RuntimeConfig{
		SigningKeys: map[string]struct{}{"a": {}},
	})
	got := config.GetSigningKeys()
	got["b"] = struct{}{}
	if _, ok := config.GetSigningKeys()["b"]; ok {
		t.Fatal("GetSigningKeys must return a copy")
	}
}
