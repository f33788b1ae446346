package proxy_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"recap/internal/proxy"
)

func TestDoRestoresEnvironmentOnError(t *testing.T) {
	t.Setenv("HTTP_PROXY", "http://10.0.0.1:8080")
	t.Setenv("NO_PROXY", "internal.example")
	os.Unsetenv("ALL_PROXY")

	boom := errors.New("boom")
	err := proxy.Do(context.Background(), nil, proxy.None(), func(context.Context) error {
		if got := os.Getenv("HTTP_PROXY"); got != "" {
			t.Fatalf("HTTP_PROXY inside scope = %q, want cleared", got)
		}
		if got := os.Getenv("NO_PROXY"); got != "*" {
			t.Fatalf("NO_PROXY inside scope = %q, want *", got)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("wrapped error lost: %v", err)
	}

	if got := os.Getenv("HTTP_PROXY"); got != "http://10.0.0.1:8080" {
		t.Fatalf("HTTP_PROXY after scope = %q", got)
	}
	if got := os.Getenv("NO_PROXY"); got != "internal.example" {
		t.Fatalf("NO_PROXY after scope = %q", got)
	}
	if _, ok := os.LookupEnv("ALL_PROXY"); ok {
		t.Fatal("ALL_PROXY should stay unset after scope")
	}
}

func TestDoRemovesIntroducedKeys(t *testing.T) {
	os.Unsetenv("HTTPS_PROXY")
	os.Unsetenv("https_proxy")

	err := proxy.Do(context.Background(), nil, proxy.Explicit("http://127.0.0.1:7890"), func(context.Context) error {
		if got := os.Getenv("HTTPS_PROXY"); got != "http://127.0.0.1:7890" {
			t.Fatalf("HTTPS_PROXY inside scope = %q", got)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := os.LookupEnv("HTTPS_PROXY"); ok {
		t.Fatal("HTTPS_PROXY introduced by scope was not removed")
	}
}

func TestInheritLeavesEnvironmentAlone(t *testing.T) {
	t.Setenv("http_proxy", "http://127.0.0.1:1080")
	_ = proxy.Do(context.Background(), nil, proxy.Inherit(), func(context.Context) error {
		if got := os.Getenv("http_proxy"); got != "http://127.0.0.1:1080" {
			t.Fatalf("http_proxy inside inherit scope = %q", got)
		}
		return nil
	})
}

func TestDirectTransportIgnoresProxyEnvironment(t *testing.T) {
	t.Setenv("HTTP_PROXY", "http://proxy.acquisition.internal:8080")
	t.Setenv("HTTPS_PROXY", "http://proxy.acquisition.internal:8080")

	transport := proxy.DirectTransport()
	if transport.Proxy != nil {
		t.Fatal("direct transport must not carry a proxy resolver")
	}
	if transport == http.DefaultTransport {
		t.Fatal("direct transport must not alias the default transport")
	}
}

func TestEffectiveURL(t *testing.T) {
	t.Setenv("HTTP_PROXY", "http://env:3128")
	if got := proxy.EffectiveURL("http://flag:1", "http://cfg:2"); got != "http://flag:1" {
		t.Fatalf("override should win, got %q", got)
	}
	if got := proxy.EffectiveURL("", "http://cfg:2"); got != "http://env:3128" {
		t.Fatalf("env should beat config, got %q", got)
	}
	os.Unsetenv("HTTP_PROXY")
	os.Unsetenv("http_proxy")
	if got := proxy.EffectiveURL("", "http://cfg:2"); got != "http://cfg:2" {
		t.Fatalf("config fallback, got %q", got)
	}
}
