package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Match.Concurrency != 8 {
		t.Fatalf("unexpected default concurrency: %d", cfg.Match.Concurrency)
	}
	if cfg.SceneIndex.StaleAfter != 24*time.Hour {
		t.Fatalf("unexpected default staleness: %v", cfg.SceneIndex.StaleAfter)
	}
}

func TestLoadFileThenEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "match:\n  concurrency: 4\nredis:\n  addr: file-redis:6379\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("MATCH_CONCURRENCY", "12")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Redis.Addr != "file-redis:6379" {
		t.Fatalf("file value not applied: %q", cfg.Redis.Addr)
	}
	if cfg.Match.Concurrency != 12 {
		t.Fatalf("env override must win: %d", cfg.Match.Concurrency)
	}
}

func TestLoadMissingFileIsFine(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
}
