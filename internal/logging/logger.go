package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/i474232898/agro-insight/internal/config"
)

const appName = "agro-insight"

// New builds the process logger: colored text in dev, JSON otherwise.
func New(cfg *config.AppConfig) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *config.AppConfig) *slog.Logger {
	if cfg.AppEnv == config.EnvDev {
		h := tint.NewHandler(w, &tint.Options{
			Level:      cfg.SlogLevel(),
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})
	return slog.New(h).With(
		"app", appName,
		"env", cfg.AppEnv,
	)
}
