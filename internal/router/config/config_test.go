package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	content := "SERVER_ADDRESS=127.0.0.1:9090\nSTORE_TYPE=memory\nREQUEST_TIMEOUT=2s\nLOG_LEVEL=debug\n"
	if err := os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600); err != nil {
		t.Fatalf("write app.env: %v", err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() unexpected error: %v", err)
	}

	if cfg.ServerAddress != "127.0.0.1:9090" {
		t.Errorf("ServerAddress = %q", cfg.ServerAddress)
	}
	if cfg.StoreType != MemoryStore {
		t.Errorf("StoreType = %q, want %q", cfg.StoreType, MemoryStore)
	}
	if cfg.RequestTimeout != 2*time.Second {
		t.Errorf("RequestTimeout = %v, want 2s", cfg.RequestTimeout)
	}
	if cfg.MongoDB != "proposals" {
		t.Errorf("MongoDB default = %q, want %q", cfg.MongoDB, "proposals")
	}
}

func TestLoadConfig_EnvOverridesAndMissingFile(t *testing.T) {
	t.Setenv("STORE_TYPE", MongoStore)
	t.Setenv("MONGO_DB", "proposals_test")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() unexpected error: %v", err)
	}

	if cfg.StoreType != MongoStore || cfg.MongoDB != "proposals_test" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.ServerAddress != "0.0.0.0:8080" || cfg.RequestTimeout != 5*time.Second {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}
