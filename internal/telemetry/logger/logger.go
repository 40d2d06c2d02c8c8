// Package logger provides structured logging for bunda-cli.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is what the rest of the module logs through.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger

	// WithContext binds ctx so values carried in it, such as the API
	// request ID, are attached to every entry.
	WithContext(ctx context.Context) Logger
}

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Output io.Writer
}

// DefaultConfig returns the CLI default: warnings and above, as text.
func DefaultConfig() Config {
	return Config{
		Level:  "warn",
		Format: "text",
		Output: os.Stderr,
	}
}

// level is shared by every logger so the shell can change it live.
var level = new(slog.LevelVar)

// New creates a logger. Every logger created here shares one level.
func New(cfg Config) (Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		h = slog.NewTextHandler(out, opts)
	case "json":
		h = slog.NewJSONHandler(out, opts)
	default:
		return nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}

	level.Set(lvl)
	return &slogger{l: slog.New(contextHandler{h}), ctx: context.Background()}, nil
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &slogger{l: slog.New(slog.DiscardHandler), ctx: context.Background()}
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
// An empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logger: unknown level %q", s)
	}
}

// SetLevel changes the level of every logger. Unknown levels are ignored
// and reported.
func SetLevel(s string) error {
	lvl, err := ParseLevel(s)
	if err != nil {
		return err
	}
	level.Set(lvl)
	return nil
}

// Level returns the current level name.
func Level() string {
	switch l := level.Level(); {
	case l <= slog.LevelDebug:
		return "debug"
	case l <= slog.LevelInfo:
		return "info"
	case l <= slog.LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

type slogger struct {
	l   *slog.Logger
	ctx context.Context
}

func (s *slogger) Debug(msg string, args ...any) { s.l.DebugContext(s.ctx, msg, args...) }
func (s *slogger) Info(msg string, args ...any)  { s.l.InfoContext(s.ctx, msg, args...) }
func (s *slogger) Warn(msg string, args ...any)  { s.l.WarnContext(s.ctx, msg, args...) }
func (s *slogger) Error(msg string, args ...any) { s.l.ErrorContext(s.ctx, msg, args...) }

func (s *slogger) With(args ...any) Logger {
	return &slogger{l: s.l.With(args...), ctx: s.ctx}
}

func (s *slogger) WithContext(ctx context.Context) Logger {
	return &slogger{l: s.l, ctx: ctx}
}

var defaultLogger atomic.Value

func init() {
	l, _ := New(DefaultConfig())
	defaultLogger.Store(holder{l})
}

type holder struct{ Logger }

// SetDefault replaces the logger returned by Default.
func SetDefault(l Logger) {
	if l != nil {
		defaultLogger.Store(holder{l})
	}
}

// Default returns the process-wide logger.
func Default() Logger {
	return defaultLogger.Load().(holder).Logger
}
