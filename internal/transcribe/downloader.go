package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"recap/internal/media"
)

// Downloader fetches a video's audio track to local disk and returns the
// file path.
type Downloader interface {
	DownloadAudio(ctx context.Context, ref media.Reference, destDir string) (string, error)
}

// YtDlpDownloader shells out to yt-dlp for audio extraction. A fallback URL,
// when configured, is tried after the primary URL fails; it points at a
// mirror that serves the same video IDs.
type YtDlpDownloader struct {
	binary      string
	format      string
	proxyURL    string
	noProxy     bool
	fallbackURL string
	timeout     time.Duration

	// runCommand overrides binary invocation in tests.
	runCommand func(ctx context.Context, name string, args ...string) error
}

// DownloaderOption configures a YtDlpDownloader.
type DownloaderOption func(*YtDlpDownloader)

// WithDownloadProxy routes the download through an explicit proxy.
func WithDownloadProxy(url string) DownloaderOption {
	return func(d *YtDlpDownloader) { d.proxyURL = url }
}

// WithDownloadNoProxy forces direct connections even when the environment
// carries proxy variables.
func WithDownloadNoProxy() DownloaderOption {
	return func(d *YtDlpDownloader) { d.noProxy = true }
}

// WithFallbackURL enables a mirror retry after the primary download fails.
func WithFallbackURL(base string) DownloaderOption {
	return func(d *YtDlpDownloader) { d.fallbackURL = base }
}

// WithDownloadTimeout caps a single download attempt.
func WithDownloadTimeout(timeout time.Duration) DownloaderOption {
	return func(d *YtDlpDownloader) { d.timeout = timeout }
}

// NewYtDlpDownloader builds a downloader. format is the yt-dlp format
// selector; empty means bestaudio.
func NewYtDlpDownloader(binary, format string, opts ...DownloaderOption) *YtDlpDownloader {
	if binary == "" {
		binary = "yt-dlp"
	}
	if format == "" {
		format = "bestaudio/best"
	}
	d := &YtDlpDownloader{
		binary:  binary,
		format:  format,
		timeout: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DownloadAudio fetches the audio track into destDir and returns the
// resulting file path. The output filename is derived from the video ID so
// repeated runs overwrite rather than accumulate.
func (d *YtDlpDownloader) DownloadAudio(ctx context.Context, ref media.Reference, destDir string) (string, error) {
	primaryErr := d.attempt(ctx, ref.URL(), destDir)
	if primaryErr == nil {
		return d.locateOutput(ref, destDir)
	}
	if ctx.Err() != nil {
		return "", primaryErr
	}

	fallback := d.fallbackFor(ref)
	if fallback == "" {
		return "", primaryErr
	}
	if err := d.attempt(ctx, fallback, destDir); err != nil {
		return "", fmt.Errorf("primary failed (%v); fallback failed: %w", primaryErr, err)
	}
	return d.locateOutput(ref, destDir)
}

// fallbackFor rewrites a YouTube reference onto the configured mirror.
// References without a video ID have no mirror equivalent.
func (d *YtDlpDownloader) fallbackFor(ref media.Reference) string {
	if d.fallbackURL == "" || ref.VideoID() == "" {
		return ""
	}
	return strings.TrimRight(d.fallbackURL, "/") + "/watch?v=" + ref.VideoID()
}

func (d *YtDlpDownloader) attempt(ctx context.Context, url, destDir string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	template := filepath.Join(destDir, "audio_%(id)s.%(ext)s")
	args := []string{
		"-f", d.format,
		"--no-playlist",
		"--no-warnings",
		"-o", template,
	}
	switch {
	case d.noProxy:
		args = append(args, "--proxy", "")
	case d.proxyURL != "":
		args = append(args, "--proxy", d.proxyURL)
	}
	args = append(args, url)
	return d.run(ctx, args...)
}

// locateOutput finds the file yt-dlp wrote; the extension depends on the
// source container.
func (d *YtDlpDownloader) locateOutput(ref media.Reference, destDir string) (string, error) {
	id := ref.VideoID()
	if id == "" {
		id = "*"
	}
	matches, err := filepath.Glob(filepath.Join(destDir, "audio_"+id+".*"))
	if err != nil {
		return "", fmt.Errorf("scan download dir: %w", err)
	}
	var newest string
	var newestTime time.Time
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = match
			newestTime = info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("download reported success but no audio file found in %s", destDir)
	}
	return newest, nil
}

func (d *YtDlpDownloader) run(ctx context.Context, args ...string) error {
	if d.runCommand != nil {
		return d.runCommand(ctx, d.binary, args...)
	}
	cmd := exec.CommandContext(ctx, d.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s: %w: %s", d.binary, err, strings.TrimSpace(string(output)))
		}
		return fmt.Errorf("%s: %w", d.binary, err)
	}
	return nil
}
