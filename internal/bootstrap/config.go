package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/xnome/dashboard/config"
)

// logLevel is shared by every logger InitLogger builds so the level can be
// raised or lowered once configuration is known.
var logLevel = new(slog.LevelVar)

// InitLogger initializes the structured JSON logger on stdout and makes it the default.
func InitLogger() *slog.Logger {
	return newJSONLogger(os.Stdout)
}

func newJSONLogger(w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return logger
}

// ApplyLogLevel switches the shared logger level to LOG_LEVEL.
func ApplyLogLevel(cfg *config.AppConfig) {
	if cfg == nil {
		return
	}
	logLevel.Set(cfg.Observability.SlogLevel())
}

// LoadConfig loads configuration from environment variables, reading a local
// .env file first when one exists.
func LoadConfig() (config.AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}
