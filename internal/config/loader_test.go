package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved path = %s, want %s", resolved, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	def := Default()
	if cfg.Addr != def.Addr || cfg.SnapshotInterval != def.SnapshotInterval || cfg.MaxUsers != def.MaxUsers {
		t.Fatalf("loaded config differs from defaults: %+v", cfg)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "addr: \":9999\"\nsnapshot_interval: 5s\nmax_users: 7\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("addr = %s", cfg.Addr)
	}
	if cfg.SnapshotInterval != 5*time.Second {
		t.Fatalf("snapshot_interval = %s", cfg.SnapshotInterval)
	}
	if cfg.MaxUsers != 7 {
		t.Fatalf("max_users = %d", cfg.MaxUsers)
	}
	// Untouched keys keep their defaults.
	if cfg.IdleTimeout != Default().IdleTimeout {
		t.Fatalf("idle_timeout = %s", cfg.IdleTimeout)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("addr: \":9999\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CHATBOIS_ADDR", ":7777")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7777" {
		t.Fatalf("addr = %s, want env override", cfg.Addr)
	}
}
