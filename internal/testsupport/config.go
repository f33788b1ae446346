// Package testsupport holds shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"recap/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Paths.ResultsDir = filepath.Join(base, "results")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.ASR.APIKey = "sk-test"
	cfg.Summary.APIKey = "sk-test"

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithStorage fills in a complete object-store quad.
func WithStorage(endpoint, bucket, keyID, secret string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Storage.Endpoint = endpoint
		cfg.Storage.Bucket = bucket
		cfg.Storage.AccessKeyID = keyID
		cfg.Storage.AccessKeySecret = secret
	}
}

// WithProxy sets the acquisition proxy URL.
func WithProxy(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Proxy.URL = url
	}
}
