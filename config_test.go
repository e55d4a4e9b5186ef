package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB", "")
	t.Setenv("ADDR", "")
	t.Setenv("DEV", "")

	cfg := loadConfig(filepath.Join(t.TempDir(), "missing.json"))

	if cfg.DB != "file:godsbooklet.db?_busy_timeout=5000&_txlock=deferred" {
		t.Errorf("default db = %q", cfg.DB)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("default addr = %q, want :8080", cfg.Addr)
	}
	if cfg.Dev || cfg.LogRequests {
		t.Error("dev and logging flags must default off")
	}
}

func TestLoadConfigJSONOverridesEnv(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("DEV", "true")
	t.Setenv("STORYTELLER_MODEL", "from-env")

	// A sparse file: only addr appears, so dev and the model must keep
	// their env values.
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"addr": ":7070"}`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := loadConfig(path)
	if cfg.Addr != ":7070" {
		t.Errorf("addr = %q, want the file's :7070 over the env's :9999", cfg.Addr)
	}
	if !cfg.Dev {
		t.Error("dev = false, want the env value kept")
	}
	if cfg.StorytellerModel != "from-env" {
		t.Errorf("storyteller model = %q, want from-env", cfg.StorytellerModel)
	}
}

func TestLoadConfigBadJSONKeepsEnvLayer(t *testing.T) {
	t.Setenv("ADDR", ":6060")

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := loadConfig(path)
	if cfg.Addr != ":6060" {
		t.Errorf("addr = %q, want the env value to survive a broken file", cfg.Addr)
	}
}
