package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"recap/internal/services"
)

func testConfig(baseURL string) Config {
	return Config{
		APIKey:       "test-key",
		BaseURL:      baseURL,
		Model:        "qwen-plus",
		SystemPrompt: "Summarize the transcript.",
	}
}

func TestSummarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected authorization %q", r.Header.Get("Authorization"))
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"  a tidy summary  "}}]}`)
	}))
	defer server.Close()

	s := New(testConfig(server.URL))
	summary, err := s.Summarize(context.Background(), "long transcript text")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary != "a tidy summary" {
		t.Fatalf("unexpected summary %q", summary)
	}
}

func TestSummarizeWrapsTranscriptInUserPrompt(t *testing.T) {
	var userContent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) == 2 {
			userContent = req.Messages[1].Content
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.UserPrompt = "请总结以下文本内容："
	if _, err := New(cfg).Summarize(context.Background(), "transcript body"); err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if userContent != "请总结以下文本内容：\n\ntranscript body" {
		t.Fatalf("unexpected user message %q", userContent)
	}
}

func TestNewPinsDirectTransport(t *testing.T) {
	t.Setenv("HTTPS_PROXY", "socks5://127.0.0.1:1080")
	s := New(testConfig("http://unused"))
	transport, ok := s.httpClient.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("unexpected transport %T", s.httpClient.Transport)
	}
	if transport.Proxy != nil {
		t.Fatal("completion client must not carry a proxy resolver")
	}
}

func TestSummarizeClearsProxyEnvironment(t *testing.T) {
	var sawProxy string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawProxy = os.Getenv("HTTPS_PROXY")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer server.Close()

	t.Setenv("HTTPS_PROXY", "socks5://127.0.0.1:1080")
	s := New(testConfig(server.URL))
	if _, err := s.Summarize(context.Background(), "text"); err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sawProxy != "" {
		t.Fatalf("proxy environment leaked into the request: %q", sawProxy)
	}
	if got := os.Getenv("HTTPS_PROXY"); got != "socks5://127.0.0.1:1080" {
		t.Fatalf("proxy environment not restored: %q", got)
	}
}

func TestSummarizeEmptyTranscript(t *testing.T) {
	s := New(testConfig("http://unused"))
	_, err := s.Summarize(context.Background(), "   ")
	if !errors.Is(err, services.ErrEmptyContent) {
		t.Fatalf("expected empty content error, got %v", err)
	}
}

func TestSummarizeMissingAPIKey(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.APIKey = ""
	s := New(cfg)
	_, err := s.Summarize(context.Background(), "text")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSummarizeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	s := New(testConfig(server.URL))
	_, err := s.Summarize(context.Background(), "text")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestSummarizeEmptyChoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":""},"finish_reason":"content_filter"}]}`)
	}))
	defer server.Close()

	s := New(testConfig(server.URL))
	_, err := s.Summarize(context.Background(), "text")
	if !errors.Is(err, services.ErrEmptyContent) {
		t.Fatalf("expected empty content error, got %v", err)
	}
}

func TestIsTransportUnsupported(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"socks without support", &url.Error{Op: "Get", URL: "https://x", Err: errors.New("socks connect tcp 127.0.0.1:1080: unknown error")}, true},
		{"unsupported scheme", &url.Error{Op: "Get", URL: "https://x", Err: errors.New(`proxy: unsupported protocol scheme "socks5h"`)}, true},
		{"proxyconnect", &url.Error{Op: "Get", URL: "https://x", Err: errors.New("proxyconnect tcp: dial tcp 127.0.0.1:7890: connect: connection refused")}, true},
		{"plain network error", &url.Error{Op: "Get", URL: "https://x", Err: errors.New("dial tcp: i/o timeout")}, false},
		{"not a url error", errors.New("socks"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isTransportUnsupported(tc.err); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}
