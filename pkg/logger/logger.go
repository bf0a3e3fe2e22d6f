package logger

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// Logger wraps a zerolog.Logger so call sites can attach fields through
// the context and stay decoupled from the logging backend.
type Logger struct {
	zl zerolog.Logger
}

func New(service, level string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zl := zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Str("service", service).
		Logger()

	return &Logger{zl: zl}
}

func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Attach stores the logger in the context so downstream code can retrieve
// it with FromContext.
func (l *Logger) Attach(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return NewNop()
}

func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *Logger) WithFields(fields map[string]any) *Logger {
	zctx := l.zl.With()
	for k, v := range fields {
		zctx = zctx.Interface(k, v)
	}
	return &Logger{zl: zctx.Logger()}
}

func (l *Logger) Debug(msg string) {
	l.zl.Debug().Msg(msg)
}

func (l *Logger) Info(msg string) {
	l.zl.Info().Msg(msg)
}

func (l *Logger) Warn(msg string) {
	l.zl.Warn().Msg(msg)
}

func (l *Logger) Error(err error, msg string) {
	l.zl.Error().Err(err).Msg(msg)
}

func (l *Logger) Fatal(err error, msg string) {
	l.zl.Fatal().Err(err).Msg(msg)
}
