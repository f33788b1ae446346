package captions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"recap/internal/media"
)

const fetchTimeout = 30 * time.Second

// YtDlpProvider lists caption tracks with the yt-dlp binary and fetches
// payloads over plain HTTP. The HTTP client honors the ambient proxy
// environment, so callers wrap Fetch in the appropriate proxy scope.
type YtDlpProvider struct {
	binary     string
	proxyURL   string
	noProxy    bool
	httpClient *http.Client

	// commandOutput overrides binary invocation in tests.
	commandOutput func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewYtDlpProvider builds a provider. proxyURL may be empty to inherit the
// environment; noProxy forces direct connections even when the environment
// carries proxy variables.
func NewYtDlpProvider(binary, proxyURL string, noProxy bool) *YtDlpProvider {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YtDlpProvider{
		binary:     binary,
		proxyURL:   proxyURL,
		noProxy:    noProxy,
		httpClient: &http.Client{Timeout: fetchTimeout, Transport: fetchTransport(proxyURL, noProxy)},
	}
}

// fetchTransport pins caption downloads to the same route yt-dlp uses
// instead of whatever the ambient environment says.
func fetchTransport(proxyURL string, noProxy bool) http.RoundTripper {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	switch {
	case noProxy:
		transport.Proxy = nil
	case proxyURL != "":
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	}
	return transport
}

// WithCommandOutput sets a custom command runner (for testing).
func (p *YtDlpProvider) WithCommandOutput(fn func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	p.commandOutput = fn
}

// videoInfo mirrors the yt-dlp -J fields we need.
type videoInfo struct {
	Subtitles         map[string][]trackInfo `json:"subtitles"`
	AutomaticCaptions map[string][]trackInfo `json:"automatic_captions"`
}

type trackInfo struct {
	Ext string `json:"ext"`
	URL string `json:"url"`
}

// ListTracks asks yt-dlp for the video's caption inventory without
// downloading anything.
func (p *YtDlpProvider) ListTracks(ctx context.Context, ref media.Reference) (Tracks, error) {
	args := []string{"-J", "--skip-download", "--no-warnings"}
	switch {
	case p.noProxy:
		// An empty --proxy value forces a direct connection.
		args = append(args, "--proxy", "")
	case p.proxyURL != "":
		args = append(args, "--proxy", p.proxyURL)
	}
	args = append(args, ref.URL())

	output, err := p.run(ctx, args...)
	if err != nil {
		return Tracks{}, fmt.Errorf("yt-dlp list tracks: %w", err)
	}

	var info videoInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return Tracks{}, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}

	return Tracks{
		Manual: convertTracks(info.Subtitles),
		Auto:   convertTracks(info.AutomaticCaptions),
	}, nil
}

// Fetch downloads a caption payload.
func (p *YtDlpProvider) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build caption request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch caption payload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch caption payload: http %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read caption payload: %w", err)
	}
	return data, nil
}

func (p *YtDlpProvider) run(ctx context.Context, args ...string) ([]byte, error) {
	if p.commandOutput != nil {
		return p.commandOutput(ctx, p.binary, args...)
	}
	cmd := exec.CommandContext(ctx, p.binary, args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s: %w: %s", p.binary, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s: %w", p.binary, err)
	}
	return output, nil
}

func convertTracks(raw map[string][]trackInfo) map[string][]Track {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string][]Track, len(raw))
	for lang, infos := range raw {
		tracks := make([]Track, 0, len(infos))
		for _, info := range infos {
			if info.URL == "" {
				continue
			}
			tracks = append(tracks, Track{Format: info.Ext, URL: info.URL})
		}
		if len(tracks) > 0 {
			out[lang] = tracks
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
