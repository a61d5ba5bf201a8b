package log

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// zeroLogger adapts a zerolog.Logger to the Logger interface.
type zeroLogger struct {
	zl zerolog.Logger
}

var (
	mu       sync.RWMutex
	root     = zerolog.New(os.Stderr).With().Timestamp().Logger()
	minLevel = LevelInfo
)

// SetOutput redirects all loggers created afterwards to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	root = zerolog.New(w).With().Timestamp().Logger()
}

// SetLevel sets the minimum level emitted by all loggers.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

// GetLogger returns the default logger.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &zeroLogger{zl: root}
}

// GetLoggerWithName returns a logger tagged with a component name,
// e.g. "gbdt.trainer" or "hyperion.pipeline".
func GetLoggerWithName(name string) Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &zeroLogger{zl: root.With().Str(ComponentKey, name).Logger()}
}

func enabled(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return minLevel <= l
}

func addFields(e *zerolog.Event, fields []any) *zerolog.Event {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	return e
}

func (z *zeroLogger) Debug(msg string, fields ...any) {
	if enabled(LevelDebug) {
		addFields(z.zl.Debug(), fields).Msg(msg)
	}
}

func (z *zeroLogger) Info(msg string, fields ...any) {
	if enabled(LevelInfo) {
		addFields(z.zl.Info(), fields).Msg(msg)
	}
}

func (z *zeroLogger) Warn(msg string, fields ...any) {
	if enabled(LevelWarn) {
		addFields(z.zl.Warn(), fields).Msg(msg)
	}
}

func (z *zeroLogger) Error(msg string, fields ...any) {
	if enabled(LevelError) {
		addFields(z.zl.Error(), fields).Msg(msg)
	}
}

func (z *zeroLogger) With(fields ...any) Logger {
	ctx := z.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case error:
			ctx = ctx.AnErr(key, v)
		default:
			ctx = ctx.Interface(key, v)
		}
	}
	return &zeroLogger{zl: ctx.Logger()}
}

func (z *zeroLogger) Enabled(_ context.Context, level Level) bool {
	return enabled(level)
}
