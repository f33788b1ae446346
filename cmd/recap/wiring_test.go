package main

import (
	"context"
	"errors"
	"testing"

	"recap/internal/config"
	"recap/internal/media"
	"recap/internal/services"
)

func TestResolveProxy(t *testing.T) {
	t.Setenv("HTTP_PROXY", "")
	t.Setenv("http_proxy", "")

	cfg := &config.Config{Proxy: config.Proxy{URL: "http://cfg:8080"}}

	if url, noProxy := resolveProxy(acquisitionFlags{}, cfg); noProxy || url != "http://cfg:8080" {
		t.Fatalf("config proxy: got (%q, %v)", url, noProxy)
	}
	if url, noProxy := resolveProxy(acquisitionFlags{proxyOverride: "http://flag:1"}, cfg); noProxy || url != "http://flag:1" {
		t.Fatalf("flag override: got (%q, %v)", url, noProxy)
	}
	t.Setenv("HTTP_PROXY", "http://env:2")
	if url, noProxy := resolveProxy(acquisitionFlags{}, cfg); noProxy || url != "http://env:2" {
		t.Fatalf("env beats config: got (%q, %v)", url, noProxy)
	}
	if url, noProxy := resolveProxy(acquisitionFlags{noProxy: true}, cfg); !noProxy || url != "" {
		t.Fatalf("no-proxy flag: got (%q, %v)", url, noProxy)
	}
	cfg.Proxy.Disabled = true
	if _, noProxy := resolveProxy(acquisitionFlags{}, cfg); !noProxy {
		t.Fatal("disabled config should force direct connections")
	}
}

func TestURLOnlyTranscriberRejectsDownloadPath(t *testing.T) {
	transcriber := urlOnlyTranscriber{}

	ref, err := media.Parse("https://example.com/watch?v=abc123")
	if err != nil {
		t.Fatalf("parse reference: %v", err)
	}
	_, err = transcriber.Transcribe(context.Background(), ref)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
