// Package summarizer condenses a transcript into a short summary through an
// OpenAI-compatible chat completion endpoint. The endpoint is reached
// directly; requests never inherit the process proxy environment because the
// acquisition proxy commonly breaks TLS to the completion host.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"recap/internal/logging"
	"recap/internal/proxy"
	"recap/internal/services"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	maxTranscriptRunes = 60000
)

// Config captures the runtime settings required to talk to the model.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	// UserPrompt is the instruction the transcript is appended to in the
	// user message. Empty sends the transcript bare.
	UserPrompt     string
	TimeoutSeconds int
}

// Summarizer produces summaries from transcript text.
type Summarizer struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the summarizer.
type Option func(*Summarizer)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Summarizer) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Summarizer) {
		s.logger = logging.NewComponentLogger(logger, "summarizer")
	}
}

// New constructs a summarizer using the supplied configuration.
func New(cfg Config, opts ...Option) *Summarizer {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	s := &Summarizer{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			SystemPrompt:   cfg.SystemPrompt,
			UserPrompt:     strings.TrimSpace(cfg.UserPrompt),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout, Transport: proxy.DirectTransport()},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Summarize condenses transcript text. The call runs with proxies disabled
// and the prior environment is restored before returning.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", services.Wrap(services.ErrEmptyContent, "summarize", "validate", "transcript is empty", nil)
	}
	if s.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "summarize", "validate", "api key required", nil)
	}
	transcript = truncateRunes(transcript, maxTranscriptRunes)

	var summary string
	err := proxy.Do(ctx, s.logger, proxy.None(), func(ctx context.Context) error {
		var err error
		summary, err = s.complete(ctx, transcript)
		return err
	})
	if err != nil {
		return "", err
	}
	return summary, nil
}

func (s *Summarizer) complete(ctx context.Context, transcript string) (string, error) {
	userContent := transcript
	if s.cfg.UserPrompt != "" {
		userContent = s.cfg.UserPrompt + "\n\n" + transcript
	}
	body, err := json.Marshal(chatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: s.cfg.SystemPrompt},
			{Role: "user", Content: userContent},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if isTransportUnsupported(err) {
			return "", services.Wrap(services.ErrTransportUnsupported, "summarize", "request",
				"proxy transport cannot reach the completion endpoint", err)
		}
		return "", services.Wrap(services.ErrTransient, "summarize", "request", "", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "summarize", "read response", "", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrTransient, "summarize", "request",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", services.Wrap(services.ErrTransient, "summarize", "decode response", "", err)
	}
	if parsed.Error != nil {
		return "", services.Wrap(services.ErrTransient, "summarize", "request", parsed.Error.Message, nil)
	}
	if len(parsed.Choices) == 0 {
		return "", services.Wrap(services.ErrEmptyContent, "summarize", "decode response", "empty choices", nil)
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", services.Wrap(services.ErrEmptyContent, "summarize", "decode response",
			"empty content (finish_reason="+parsed.Choices[0].FinishReason+")", nil)
	}
	return content, nil
}

// isTransportUnsupported recognizes failures caused by a proxy scheme the
// HTTP transport cannot speak, most commonly a SOCKS URL left in the
// environment without SOCKS support compiled in.
func isTransportUnsupported(err error) bool {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return false
	}
	msg := strings.ToLower(urlErr.Error())
	return strings.Contains(msg, "socks") ||
		strings.Contains(msg, "unsupported protocol scheme") ||
		strings.Contains(msg, "proxyconnect")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
