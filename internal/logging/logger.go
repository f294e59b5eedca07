// Package logging configures the zerolog loggers used across the service.
//
// Components take a zerolog.Logger at construction and tag it with
// Component, so every line carries a "component" field:
//
//	log := logging.Component(logger, "command")
//	log.Info().Str("session", id).Msg("item added to cart")
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger options.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error.
	Level string
	// Format is json, console or auto (console on a terminal).
	Format string
	// Output is stderr, stdout or a file path.
	Output string
	NoColor bool
}

func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Format:  "auto",
		Output:  "stderr",
		NoColor: os.Getenv("NO_COLOR") != "",
	}
}

var defaultLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Nop discards everything.
var Nop = zerolog.Nop()

// New builds a logger from cfg. A file output that cannot be opened falls
// back to stderr.
func New(cfg Config) zerolog.Logger {
	level := ParseLevel(cfg.Level)

	var writer io.Writer = writerFor(cfg.Output)
	if useConsole(cfg.Format, writer) {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// Configure builds a logger from cfg and installs it as the default.
func Configure(cfg Config) zerolog.Logger {
	logger := New(cfg)
	SetDefault(logger)
	return logger
}

func Default() *zerolog.Logger {
	return &defaultLogger
}

func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// Component returns a child logger tagged with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// WithLogger stores a logger in ctx.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &defaultLogger
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warning":
		return zerolog.WarnLevel
	case "":
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func writerFor(output string) io.Writer {
	switch strings.ToLower(output) {
	case "", "stderr":
		return os.Stderr
	case "stdout":
		return os.Stdout
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return os.Stderr
	}
	return f
}

func useConsole(format string, w io.Writer) bool {
	switch strings.ToLower(format) {
	case "console", "pretty", "text":
		return true
	case "json":
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
