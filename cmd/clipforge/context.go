package main

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/progress"
)

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
		resolved := *cfg
		resolved.Logging.Format = resolveLogFormat(cfg.Logging.Format)
		c.logger, c.loggerErr = logging.NewFromConfig(&resolved)
	})
	return c.logger, c.loggerErr
}

// resolveLogFormat maps "auto" to console on a terminal and JSON elsewhere,
// so piped output stays machine readable.
func resolveLogFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "auto" && format != "" {
		return format
	}
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return "console"
	}
	return "json"
}

func (c *commandContext) openStore() (progress.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return progress.OpenSQLite(cfg)
}
