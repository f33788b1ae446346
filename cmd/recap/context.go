package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"recap/internal/config"
	"recap/internal/logging"
	"recap/internal/progress"
	"recap/internal/runstore"
)

// commandContext lazily loads shared state so commands that never touch the
// config (e.g. config init) do not require one.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openStore() (*runstore.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return runstore.Open(filepath.Join(cfg.Paths.LogDir, "runs.db"))
}

func (c *commandContext) progressOptions(logger *slog.Logger) []progress.Option {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil
	}
	return []progress.Option{
		progress.WithMinInterval(time.Duration(cfg.Progress.MinEditSeconds) * time.Second),
		progress.WithHeartbeat(time.Duration(cfg.Progress.HeartbeatSeconds) * time.Second),
		progress.WithWindow(cfg.Progress.WindowLines),
		progress.WithLogger(logger),
	}
}
