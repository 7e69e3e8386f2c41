package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"carillon/internal/config"
	"carillon/internal/history"
	"carillon/internal/logging"
)

// errHistoryDisabled is returned by history commands when history.enabled is false.
var errHistoryDisabled = errors.New("performance history is disabled (history.enabled = false)")

// lazy computes a value once and caches the result, error included.
type lazy[T any] struct {
	once sync.Once
	val  T
	err  error
}

func (l *lazy[T]) get(fn func() (T, error)) (T, error) {
	l.once.Do(func() { l.val, l.err = fn() })
	return l.val, l.err
}

// commandContext carries the persistent flags and the config and logger
// built from them. Commands that never touch configuration skip loading it.
type commandContext struct {
	configFlag   string
	logLevelFlag string

	configPath string
	cfg        lazy[*config.Config]
	logger     lazy[*slog.Logger]
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	return c.cfg.get(c.loadConfig)
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	cfg, path, _, err := config.Load(strings.TrimSpace(c.configFlag))
	if err != nil {
		return nil, err
	}
	if level := strings.TrimSpace(c.logLevelFlag); level != "" {
		cfg.Logging.Level = level
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	c.configPath = path
	return cfg, nil
}

// ensureLogger returns the console logger, which writes to stderr.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	return c.logger.get(func() (*slog.Logger, error) {
		cfg, err := c.ensureConfig()
		if err != nil {
			return nil, err
		}
		return logging.NewFromConfig(cfg)
	})
}

// withStore opens the history database for the duration of fn.
func (c *commandContext) withStore(fn func(*config.Config, *history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errHistoryDisabled
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		if cmd.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
