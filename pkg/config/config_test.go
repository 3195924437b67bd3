package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies the built-in defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Server.Port)
	}
	if cfg.Storage.Root != "storage" {
		t.Errorf("Expected default storage root 'storage', got %s", cfg.Storage.Root)
	}
	if len(cfg.Labels) != 3 || cfg.Labels[0].Name != "ET" || cfg.Labels[1].Name != "WT" || cfg.Labels[2].Name != "TC" {
		t.Errorf("Unexpected default label table: %+v", cfg.Labels)
	}
}

// TestLoadConfigMissingFile verifies defaults are returned when the config
// file does not exist.
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != "8000" {
		t.Errorf("Expected defaults for missing file, got port %s", cfg.Server.Port)
	}
}

// TestLoadConfigCustomLabels verifies a configured label table overrides
// the default and keeps its order.
func TestLoadConfigCustomLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: "9000"
storage:
  root: /data
labels:
  - id: 5
    name: hippocampus_l
  - id: 6
    name: hippocampus_r
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != "9000" || cfg.Storage.Root != "/data" {
		t.Errorf("Unexpected server/storage settings: %+v", cfg)
	}
	if len(cfg.Labels) != 2 || cfg.Labels[0].ID != 5 || cfg.Labels[0].Name != "hippocampus_l" ||
		cfg.Labels[1].ID != 6 || cfg.Labels[1].Name != "hippocampus_r" {
		t.Errorf("Unexpected label table: %+v", cfg.Labels)
	}
}

// TestSaveLoadRoundtrip verifies SaveConfig output is loadable
func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Port = "8080"
	cfg.Storage.SaveParquet = true
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	back, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if back.Server.Port != "8080" || !back.Storage.SaveParquet {
		t.Errorf("Roundtrip lost settings: %+v", back)
	}
}
