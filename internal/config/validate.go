package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable for a full pipeline run.
// Stages with missing credentials fail individually at run time; Validate
// catches the mistakes that would make every run fail.
func (c *Config) Validate() error {
	if err := c.validateProxy(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateASR(); err != nil {
		return err
	}
	if err := c.validateSummary(); err != nil {
		return err
	}
	if err := c.validateProgress(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateProxy() error {
	if strings.TrimSpace(c.Proxy.URL) == "" {
		return nil
	}
	parsed, err := url.Parse(c.Proxy.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("proxy.url must be an absolute URL, got %q", c.Proxy.URL)
	}
	return nil
}

func (c *Config) validateStorage() error {
	// Storage is only exercised on the transcription path; partial settings
	// are the mistake worth catching early.
	set := 0
	for _, v := range []string{c.Storage.Endpoint, c.Storage.Bucket, c.Storage.AccessKeyID, c.Storage.AccessKeySecret} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}
	if set > 0 && set < 4 {
		return errors.New("storage requires endpoint, bucket, access_key_id, and access_key_secret together")
	}
	if c.Storage.SignedURLTTLHours > 168 {
		return errors.New("storage.signed_url_ttl_hours must not exceed 168")
	}
	return nil
}

func (c *Config) validateASR() error {
	if c.ASR.PollIntervalSeconds > c.ASR.WaitTimeoutSeconds {
		return errors.New("asr.poll_interval_seconds must not exceed asr.wait_timeout_seconds")
	}
	return nil
}

func (c *Config) validateSummary() error {
	if c.Summary.TimeoutSeconds > 600 {
		return errors.New("summary.timeout_seconds must not exceed 600")
	}
	return nil
}

func (c *Config) validateProgress() error {
	if c.Progress.MinEditSeconds > c.Progress.HeartbeatSeconds {
		return errors.New("progress.min_edit_seconds must not exceed progress.heartbeat_seconds")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}
