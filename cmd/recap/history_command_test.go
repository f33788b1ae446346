package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"recap/internal/runstore"
)

func TestHistoryEmpty(t *testing.T) {
	cfg := newTestConfig(t)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"history"}, configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded yet.")
}

func TestHistoryListsRuns(t *testing.T) {
	cfg := newTestConfig(t)
	configPath := writeTestConfig(t, cfg)

	store, err := runstore.Open(filepath.Join(cfg.Paths.LogDir, "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()
	run, err := store.NewRun(ctx, "https://example.com/watch?v=abc123", "abc123")
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	if err := store.Complete(ctx, run.ID, "captioned", "zh", "/tmp/recap_x.txt", true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	failed, err := store.NewRun(ctx, "https://example.com/watch?v=def456", "def456")
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	if err := store.Fail(ctx, failed.ID, "transient_network", "connect timeout"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	out, _, err := runCLI(t, []string{"history"}, configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "abc123")
	requireContains(t, out, "completed")
	requireContains(t, out, "failed")
	requireContains(t, out, "transient_network: connect timeout")
}

func TestHistoryDetail(t *testing.T) {
	failed := &runstore.Run{Status: runstore.StatusFailed, ErrorKind: "no_text", ErrorDetail: "nothing there"}
	if got := historyDetail(failed); got != "no_text: nothing there" {
		t.Fatalf("historyDetail(failed) = %q", got)
	}
	done := &runstore.Run{Status: runstore.StatusCompleted, ArtifactPath: "/tmp/out.txt"}
	if got := historyDetail(done); got != "/tmp/out.txt" {
		t.Fatalf("historyDetail(done) = %q", got)
	}
	pending := &runstore.Run{Status: runstore.StatusPending}
	if got := historyDetail(pending); got != "" {
		t.Fatalf("historyDetail(pending) = %q", got)
	}
}

func TestTruncateCell(t *testing.T) {
	if got := truncateCell("short"); got != "short" {
		t.Fatalf("truncateCell(short) = %q", got)
	}
	got := truncateCell(strings.Repeat("x", 80))
	if len([]rune(got)) != maxCellWidth {
		t.Fatalf("truncated length = %d, want %d", len([]rune(got)), maxCellWidth)
	}
	if got[len(got)-len("…"):] != "…" {
		t.Fatalf("truncated cell missing ellipsis: %q", got)
	}
}
