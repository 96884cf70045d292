package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromFile(t *testing.T) {
	content := `{
  "data_dir": "tables",
  "input": {"file": "jgbcm_all.csv", "encoding": "shift_jis", "sentinels": ["-"]},
  "analysis": {"components": 3, "chart_title": "JGB PCA"},
  "email": {"server": "imap.example.jp:993", "check_interval": "30m"},
  "log_name": "pca.log"
}`
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "tables" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Input.Encoding != "shift_jis" {
		t.Errorf("Encoding = %q", cfg.Input.Encoding)
	}
	if time.Duration(cfg.Email.CheckInterval) != 30*time.Minute {
		t.Errorf("CheckInterval = %v", cfg.Email.CheckInterval)
	}
	// unset fields still get defaults
	if cfg.LogMaxSize == "" {
		t.Errorf("LogMaxSize default not applied")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Analysis.Components != 3 {
		t.Errorf("Components = %d, want 3", cfg.Analysis.Components)
	}
	if cfg.Input.Encoding != "cp932" {
		t.Errorf("Encoding = %q, want cp932", cfg.Input.Encoding)
	}
	if len(cfg.Input.Sentinels) == 0 {
		t.Errorf("Sentinels default not applied")
	}
}

func TestLoadBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{nope"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := load(path); err == nil {
		t.Errorf("expected error for malformed config")
	}
}

func TestDurationRoundTrip(t *testing.T) {
	d := Duration(90 * time.Minute)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	var back Duration
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back != d {
		t.Errorf("round trip: %v != %v", back, d)
	}

	var bad Duration
	if err := json.Unmarshal([]byte(`"soon"`), &bad); err == nil {
		t.Errorf("expected error for bad duration")
	}
}
