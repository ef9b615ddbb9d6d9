package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	t.Setenv("CHALK_DATA_DIR", "")
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.FirstWeekday() != time.Monday {
		t.Errorf("FirstWeekday = %v, want Monday", cfg.FirstWeekday())
	}
	if !cfg.Notifications {
		t.Error("notifications should default to on")
	}
}

func TestLoadFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
data_dir = "` + filepath.ToSlash(dir) + `/data"
log_level = "debug"
week_start = "sunday"
notifications = false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.FirstWeekday() != time.Sunday {
		t.Errorf("FirstWeekday = %v, want Sunday", cfg.FirstWeekday())
	}
	if cfg.Notifications {
		t.Error("notifications should be off")
	}
	if cfg.DBPath() != filepath.Join(dir, "data", "chalk.db") {
		t.Errorf("DBPath = %q", cfg.DBPath())
	}
}

func TestExportDirFollowsFileDataDir(t *testing.T) {
	t.Setenv("CHALK_DATA_DIR", "")
	t.Setenv("CHALK_EXPORT_DIR", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `data_dir = "` + filepath.ToSlash(dir) + `/data"`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	want := filepath.Join(dir, "data", "exports")
	if cfg.ExportDir != want {
		t.Errorf("ExportDir = %q, want %q", cfg.ExportDir, want)
	}

	if got := Default().ExportPath(); got != filepath.Join(Default().DataDir, "exports") {
		t.Errorf("Default ExportPath = %q", got)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`log_level = "debug"`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CHALK_LOG_LEVEL", "error")
	t.Setenv("CHALK_DATA_DIR", dir)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error", cfg.LogLevel)
	}
	if cfg.ExportDir != filepath.Join(dir, "exports") {
		t.Errorf("ExportDir = %q", cfg.ExportDir)
	}
}

func TestInvalidWeekStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`week_start = "friday"`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for invalid week_start")
	}
}

func TestMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`log_level = `), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for malformed TOML")
	}
}
