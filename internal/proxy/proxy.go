// Package proxy scopes the process-wide proxy environment. Different pipeline
// stages need mutually incompatible routing: media acquisition may go through
// a forward proxy while the summarizer endpoint must never inherit one. A
// Scope applies one configuration, and Exit restores exactly the variables
// captured on entry.
//
// The proxy environment is shared mutable state for the whole process, so
// scopes are serialized behind a package-level mutex. Nested or concurrent
// scopes are not supported.
package proxy

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"recap/internal/logging"
)

// Mode selects how a scope treats the proxy environment.
type Mode int

const (
	// ModeInherit leaves the environment untouched.
	ModeInherit Mode = iota
	// ModeExplicit routes HTTP(S) traffic through Config.URL.
	ModeExplicit
	// ModeNone clears every proxy variable and sets NO_PROXY=*.
	ModeNone
)

// Config describes the proxy environment a scope establishes.
type Config struct {
	Mode Mode
	URL  string
}

// Inherit returns a config that keeps the current environment.
func Inherit() Config { return Config{Mode: ModeInherit} }

// Explicit returns a config that routes through the given proxy URL.
func Explicit(url string) Config { return Config{Mode: ModeExplicit, URL: url} }

// None returns a config that disables every proxy.
func None() Config { return Config{Mode: ModeNone} }

var proxyVars = []string{
	"HTTP_PROXY", "http_proxy",
	"HTTPS_PROXY", "https_proxy",
	"ALL_PROXY", "all_proxy",
	"NO_PROXY", "no_proxy",
}

// Snapshot records the proxy-related environment present when a scope was
// entered. Only keys that existed are restored; keys a scope introduced are
// removed on exit.
type Snapshot struct {
	values map[string]string
}

var mu sync.Mutex

// Enter locks the process-wide proxy state, captures a snapshot, and applies
// cfg. The returned snapshot must be passed to Exit on every path.
func Enter(cfg Config) Snapshot {
	mu.Lock()
	snap := capture()
	apply(cfg)
	return snap
}

// Exit reapplies the captured snapshot and releases the proxy state. Restore
// failures cannot occur with os.Setenv on supported platforms, but Exit is
// shaped so callers always pair it with Enter via defer.
func Exit(snap Snapshot) {
	restore(snap)
	mu.Unlock()
}

// Do runs fn with cfg applied, restoring the prior environment on every exit
// path. fn's error propagates unchanged.
func Do(ctx context.Context, logger *slog.Logger, cfg Config, fn func(context.Context) error) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	snap := Enter(cfg)
	defer Exit(snap)

	switch cfg.Mode {
	case ModeExplicit:
		logger.Debug("proxy scope entered", logging.String("proxy", cfg.URL))
	case ModeNone:
		logger.Debug("proxy scope entered", logging.String("proxy", "disabled"))
	}
	return fn(ctx)
}

func capture() Snapshot {
	values := make(map[string]string, len(proxyVars))
	for _, key := range proxyVars {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}
	return Snapshot{values: values}
}

func apply(cfg Config) {
	switch cfg.Mode {
	case ModeInherit:
	case ModeExplicit:
		for _, key := range []string{"HTTP_PROXY", "http_proxy", "HTTPS_PROXY", "https_proxy"} {
			os.Setenv(key, cfg.URL)
		}
		os.Unsetenv("NO_PROXY")
		os.Unsetenv("no_proxy")
	case ModeNone:
		for _, key := range proxyVars {
			os.Unsetenv(key)
		}
		os.Setenv("NO_PROXY", "*")
		os.Setenv("no_proxy", "*")
	}
}

func restore(snap Snapshot) {
	for _, key := range proxyVars {
		if v, ok := snap.values[key]; ok {
			os.Setenv(key, v)
		} else {
			os.Unsetenv(key)
		}
	}
}

// DirectTransport returns a transport that never routes through a proxy.
// http.DefaultTransport resolves ProxyFromEnvironment, which caches the
// environment process-wide on first use, so a scoped environment alone
// cannot keep an in-process HTTP client off the acquisition proxy. Clients
// whose endpoints must always be reached directly carry this transport
// instead.
func DirectTransport() *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	return transport
}

// EffectiveURL resolves the proxy used for media acquisition: an explicit
// override wins, then the ambient HTTP proxy, then the configured default.
func EffectiveURL(override, configured string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}
	for _, key := range []string{"HTTP_PROXY", "http_proxy"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(configured)
}
