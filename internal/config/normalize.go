package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCaptions()
	c.normalizeDownload()
	c.normalizeStorage()
	c.normalizeASR()
	c.normalizeSummary()
	c.normalizeProgress()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ResultsDir) == "" {
		c.Paths.ResultsDir = defaultResultsDir
	}
	if c.Paths.ResultsDir, err = expandPath(c.Paths.ResultsDir); err != nil {
		return fmt.Errorf("paths.results_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCaptions() {
	if len(c.Captions.Languages) == 0 {
		c.Captions.Languages = defaultCaptionLanguages()
	}
	if len(c.Captions.Formats) == 0 {
		c.Captions.Formats = defaultCaptionFormats()
	}
}

func (c *Config) normalizeDownload() {
	if strings.TrimSpace(c.Download.Format) == "" {
		c.Download.Format = defaultDownloadFormat
	}
	if c.Download.TimeoutSeconds <= 0 {
		c.Download.TimeoutSeconds = defaultDownloadTimeout
	}
	c.Download.FallbackURL = strings.TrimSpace(c.Download.FallbackURL)
}

func (c *Config) normalizeStorage() {
	c.Storage.Endpoint = strings.TrimRight(strings.TrimSpace(c.Storage.Endpoint), "/")
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	if c.Storage.SignedURLTTLHours <= 0 {
		c.Storage.SignedURLTTLHours = defaultSignedURLTTL
	}
}

func (c *Config) normalizeASR() {
	if strings.TrimSpace(c.ASR.BaseURL) == "" {
		c.ASR.BaseURL = defaultASRBaseURL
	}
	c.ASR.BaseURL = strings.TrimRight(strings.TrimSpace(c.ASR.BaseURL), "/")
	if strings.TrimSpace(c.ASR.Model) == "" {
		c.ASR.Model = defaultASRModel
	}
	if len(c.ASR.LanguageHints) == 0 {
		c.ASR.LanguageHints = defaultLanguageHints()
	}
	if c.ASR.PollIntervalSeconds <= 0 {
		c.ASR.PollIntervalSeconds = defaultASRPollInterval
	}
	if c.ASR.WaitTimeoutSeconds <= 0 {
		c.ASR.WaitTimeoutSeconds = defaultASRWaitTimeout
	}
}

func (c *Config) normalizeSummary() {
	if strings.TrimSpace(c.Summary.BaseURL) == "" {
		c.Summary.BaseURL = defaultSummaryBaseURL
	}
	c.Summary.BaseURL = strings.TrimRight(strings.TrimSpace(c.Summary.BaseURL), "/")
	if strings.TrimSpace(c.Summary.Model) == "" {
		c.Summary.Model = defaultSummaryModel
	}
	if c.Summary.TimeoutSeconds <= 0 {
		c.Summary.TimeoutSeconds = defaultSummaryTimeout
	}
	if strings.TrimSpace(c.Summary.SystemPrompt) == "" {
		c.Summary.SystemPrompt = defaultSystemPrompt
	}
	if strings.TrimSpace(c.Summary.UserPrompt) == "" {
		c.Summary.UserPrompt = defaultUserPrompt
	}
}

func (c *Config) normalizeProgress() {
	if c.Progress.MinEditSeconds <= 0 {
		c.Progress.MinEditSeconds = defaultMinEditSeconds
	}
	if c.Progress.HeartbeatSeconds <= 0 {
		c.Progress.HeartbeatSeconds = defaultHeartbeatSeconds
	}
	if c.Progress.HeartbeatSeconds < c.Progress.MinEditSeconds {
		c.Progress.HeartbeatSeconds = c.Progress.MinEditSeconds
	}
	if c.Progress.WindowLines <= 0 {
		c.Progress.WindowLines = defaultWindowLines
	}
}

func (c *Config) normalizeLogging() {
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return home + trimmed[1:], nil
	}
	return trimmed, nil
}
