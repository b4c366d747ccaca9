// Package cli provides common CLI initialization utilities shared by
// cmd/ledger and cmd/ledger-events.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ledger/internal/config"
	applog "ledger/internal/log"
)

// SetupLogger installs a text logger at level as the process default.
func SetupLogger(level slog.Level) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     level,
		Component: applog.ComponentApp,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// A missing file is fine; production sets real environment variables.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// The process exits on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Bootstrap runs the startup sequence common to every binary: .env, a
// bootstrap logger, config, then the logger at the configured level.
func Bootstrap() (*config.Config, *applog.Logger) {
	LoadEnvFile()
	cfg := LoadAndValidateConfig(SetupLogger(slog.LevelInfo))
	return cfg, SetupLogger(cfg.SlogLevel())
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
// The stop function releases the signal handler.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
