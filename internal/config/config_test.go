package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recap/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[captions]
languages = ["en"]

[summary]
model = "qwen-max"

[progress]
min_edit_seconds = 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Captions.Languages; len(got) != 1 || got[0] != "en" {
		t.Fatalf("captions.languages = %v, want [en]", got)
	}
	if cfg.Summary.Model != "qwen-max" {
		t.Fatalf("summary.model = %q", cfg.Summary.Model)
	}
	if cfg.Summary.BaseURL == "" {
		t.Fatal("summary.base_url default missing")
	}
	if cfg.Progress.MinEditSeconds != 5 {
		t.Fatalf("progress.min_edit_seconds = %d", cfg.Progress.MinEditSeconds)
	}
	if cfg.Progress.HeartbeatSeconds < cfg.Progress.MinEditSeconds {
		t.Fatal("heartbeat should be raised to at least the edit interval")
	}
	if len(cfg.Captions.Formats) == 0 {
		t.Fatal("captions.formats default missing")
	}
}

func TestLoadMissingExplicitPathFails(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestValidateRejectsPartialStorage(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Endpoint = "https://oss-cn-beijing.aliyuncs.com"
	cfg.Storage.Bucket = "audio"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "storage") {
		t.Fatalf("expected partial storage rejection, got %v", err)
	}
}

func TestValidateRejectsBadProxyURL(t *testing.T) {
	cfg := config.Default()
	cfg.Proxy.URL = "127.0.0.1:7890"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for schemeless proxy URL")
	}
}

func TestHomeExpansion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[paths]\ndownload_dir = \"~/dl\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if strings.HasPrefix(cfg.Paths.DownloadDir, "~") {
		t.Fatalf("download_dir not expanded: %q", cfg.Paths.DownloadDir)
	}
}
