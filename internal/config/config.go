package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DownloadDir string `toml:"download_dir"`
	ResultsDir  string `toml:"results_dir"`
	LogDir      string `toml:"log_dir"`
}

// Proxy contains network-routing configuration for the acquisition stages.
// The summarizer never uses a proxy regardless of these settings.
type Proxy struct {
	// URL is the forward proxy used for caption listing and media download
	// when the environment does not already provide one.
	URL string `toml:"url"`
	// Disabled clears every proxy variable for the whole run.
	Disabled bool `toml:"disabled"`
}

// Captions contains caption-extraction preferences.
type Captions struct {
	// Languages is the ordered language-preference list.
	Languages []string `toml:"languages"`
	// Formats is the ordered delivery-format preference list.
	Formats []string `toml:"formats"`
}

// Download contains media download settings.
type Download struct {
	// Format is the yt-dlp format selector.
	Format string `toml:"format"`
	// FallbackURL, when set, is downloaded instead after the real reference
	// fails. Intended for operability testing only; empty disables it.
	FallbackURL string `toml:"fallback_url"`
	// TimeoutSeconds bounds a single download attempt.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Storage contains the OSS-compatible object store used to stage audio for
// the transcription service.
type Storage struct {
	Endpoint        string `toml:"endpoint"`
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	AccessKeyID     string `toml:"access_key_id"`
	AccessKeySecret string `toml:"access_key_secret"`
	// SignedURLTTLHours is the expiry for presigned GET URLs handed to the
	// transcription service.
	SignedURLTTLHours int `toml:"signed_url_ttl_hours"`
}

// Configured reports whether the storage settings are complete enough to
// run the transcription fallback.
func (s Storage) Configured() bool {
	return s.Endpoint != "" && s.Bucket != "" && s.AccessKeyID != "" && s.AccessKeySecret != ""
}

// ASR contains the asynchronous speech-to-text service settings.
type ASR struct {
	APIKey              string   `toml:"api_key"`
	BaseURL             string   `toml:"base_url"`
	Model               string   `toml:"model"`
	LanguageHints       []string `toml:"language_hints"`
	PollIntervalSeconds int      `toml:"poll_interval_seconds"`
	WaitTimeoutSeconds  int      `toml:"wait_timeout_seconds"`
}

// Summary contains the chat-completion summarizer settings.
type Summary struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	SystemPrompt   string `toml:"system_prompt"`
	UserPrompt     string `toml:"user_prompt"`
}

// Telegram contains bot-mode settings.
type Telegram struct {
	BotToken     string   `toml:"bot_token"`
	AllowedUsers []string `toml:"allowed_users"`
}

// Progress contains reporter pacing settings.
type Progress struct {
	// MinEditSeconds is the minimum spacing between status edits while new
	// events arrive.
	MinEditSeconds int `toml:"min_edit_seconds"`
	// HeartbeatSeconds forces an edit at least this often during a run.
	HeartbeatSeconds int `toml:"heartbeat_seconds"`
	// WindowLines is how many recent events a status render shows.
	WindowLines int `toml:"window_lines"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Proxy    Proxy    `toml:"proxy"`
	Captions Captions `toml:"captions"`
	Download Download `toml:"download"`
	Storage  Storage  `toml:"storage"`
	ASR      ASR      `toml:"asr"`
	Summary  Summary  `toml:"summary"`
	Telegram Telegram `toml:"telegram"`
	Progress Progress `toml:"progress"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the standard config location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "recap", "config.toml"), nil
}

// Load reads the configuration from path, or from the default location when
// path is empty. A missing file at the default location yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// Default location absent: run with defaults plus env overrides.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DASHSCOPE_API_KEY"); v != "" {
		if c.ASR.APIKey == "" {
			c.ASR.APIKey = v
		}
		if c.Summary.APIKey == "" {
			c.Summary.APIKey = v
		}
	}
	if v := os.Getenv("OSS_ACCESS_KEY_ID"); v != "" && c.Storage.AccessKeyID == "" {
		c.Storage.AccessKeyID = v
	}
	if v := os.Getenv("OSS_ACCESS_KEY_SECRET"); v != "" && c.Storage.AccessKeySecret == "" {
		c.Storage.AccessKeySecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" && c.Telegram.BotToken == "" {
		c.Telegram.BotToken = v
	}
}

// EnsureDirectories creates the working directories the pipeline writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DownloadDir, c.Paths.ResultsDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample config to path, refusing to overwrite.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}
