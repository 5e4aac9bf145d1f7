package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CHATTRIX_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg := Load()

	if cfg.ListenAddr != ":8080" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.StoreBackend != "file" {
		t.Fatalf("store backend = %q", cfg.StoreBackend)
	}
	if cfg.AIProvider != "gemini" {
		t.Fatalf("ai provider = %q", cfg.AIProvider)
	}
	if cfg.CompletionTimeout != 60*time.Second {
		t.Fatalf("completion timeout = %s", cfg.CompletionTimeout)
	}
	if cfg.MaxSessions != 50 {
		t.Fatalf("max sessions = %d", cfg.MaxSessions)
	}
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "chattrix.yaml")
	content := "listen_addr: \":9999\"\nstore_backend: memory\nmax_sessions: 10\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CHATTRIX_CONFIG_FILE", file)
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("COMPLETION_TIMEOUT", "5s")

	cfg := Load()

	// from the file
	if cfg.ListenAddr != ":9999" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.MaxSessions != 10 {
		t.Fatalf("max sessions = %d", cfg.MaxSessions)
	}

	// env wins over the file
	if cfg.StoreBackend != "redis" {
		t.Fatalf("store backend = %q", cfg.StoreBackend)
	}
	if cfg.CompletionTimeout != 5*time.Second {
		t.Fatalf("completion timeout = %s", cfg.CompletionTimeout)
	}
}
