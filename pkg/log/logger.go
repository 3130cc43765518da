package log

import (
	"log/slog"
	"os"

	"github.com/kode4food/twill"
)

// New constructs a JSON slog.Logger at info level, stamped with the
// runtime identity and the provided environment name
func New(env string) *slog.Logger {
	return NewWithLevel(env, slog.LevelInfo)
}

// NewWithLevel constructs a JSON slog.Logger at the provided level
func NewWithLevel(env string, lvl slog.Level) *slog.Logger {
	return NewService(twill.Name, env, twill.Version, lvl)
}

// NewService constructs a JSON slog.Logger carrying an explicit service
// identity. Binaries that report their own name use this instead of
// NewWithLevel
func NewService(service, env, version string, lvl slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})

	return slog.New(handler).With(
		slog.String("service", service),
		slog.String("env", env),
		slog.String("version", version))
}
