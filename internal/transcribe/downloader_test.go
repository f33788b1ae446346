package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recap/internal/media"
)

func downloadRef(t *testing.T) media.Reference {
	t.Helper()
	ref, err := media.Parse("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("parse reference: %v", err)
	}
	return ref
}

// writeForTemplate simulates yt-dlp writing its output file.
func writeForTemplate(t *testing.T, args []string, id string) {
	t.Helper()
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			path := strings.NewReplacer("%(id)s", id, "%(ext)s", "m4a").Replace(args[i+1])
			if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
				t.Fatalf("write output: %v", err)
			}
			return
		}
	}
	t.Fatal("no -o flag in args")
}

func TestDownloadAudioPrimary(t *testing.T) {
	dir := t.TempDir()
	d := NewYtDlpDownloader("yt-dlp", "", WithDownloadProxy("http://127.0.0.1:7890"))
	var gotURLs []string
	d.runCommand = func(ctx context.Context, name string, args ...string) error {
		gotURLs = append(gotURLs, args[len(args)-1])
		if !strings.Contains(strings.Join(args, " "), "--proxy http://127.0.0.1:7890") {
			t.Errorf("expected proxy flag in %v", args)
		}
		writeForTemplate(t, args, "dQw4w9WgXcQ")
		return nil
	}

	path, err := d.DownloadAudio(context.Background(), downloadRef(t), dir)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if filepath.Base(path) != "audio_dQw4w9WgXcQ.m4a" {
		t.Fatalf("unexpected output path %s", path)
	}
	if len(gotURLs) != 1 || gotURLs[0] != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("unexpected URLs %v", gotURLs)
	}
}

func TestDownloadAudioFallback(t *testing.T) {
	dir := t.TempDir()
	d := NewYtDlpDownloader("yt-dlp", "", WithFallbackURL("https://mirror.example.com/"))
	var gotURLs []string
	d.runCommand = func(ctx context.Context, name string, args ...string) error {
		url := args[len(args)-1]
		gotURLs = append(gotURLs, url)
		if strings.Contains(url, "youtube.com") {
			return errors.New("blocked")
		}
		writeForTemplate(t, args, "dQw4w9WgXcQ")
		return nil
	}

	path, err := d.DownloadAudio(context.Background(), downloadRef(t), dir)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if path == "" {
		t.Fatal("expected output path")
	}
	if len(gotURLs) != 2 {
		t.Fatalf("expected two attempts, got %v", gotURLs)
	}
	if gotURLs[1] != "https://mirror.example.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("unexpected fallback URL %q", gotURLs[1])
	}
}

func TestDownloadAudioNoFallbackConfigured(t *testing.T) {
	d := NewYtDlpDownloader("yt-dlp", "")
	attempts := 0
	d.runCommand = func(ctx context.Context, name string, args ...string) error {
		attempts++
		return errors.New("blocked")
	}

	_, err := d.DownloadAudio(context.Background(), downloadRef(t), t.TempDir())
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt without a fallback, got %d", attempts)
	}
}

func TestDownloadAudioBothAttemptsFail(t *testing.T) {
	d := NewYtDlpDownloader("yt-dlp", "", WithFallbackURL("https://mirror.example.com"))
	d.runCommand = func(ctx context.Context, name string, args ...string) error {
		return errors.New("blocked")
	}

	_, err := d.DownloadAudio(context.Background(), downloadRef(t), t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "fallback failed") {
		t.Fatalf("expected combined failure, got %v", err)
	}
}

func TestDownloadAudioMissingOutput(t *testing.T) {
	d := NewYtDlpDownloader("yt-dlp", "")
	d.runCommand = func(ctx context.Context, name string, args ...string) error {
		return nil
	}

	_, err := d.DownloadAudio(context.Background(), downloadRef(t), t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "no audio file found") {
		t.Fatalf("expected missing output error, got %v", err)
	}
}
