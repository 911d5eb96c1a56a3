// Package logger is a zap sugared logger that tags each line with the
// request and user found in the context.
package logger

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appctx "stockledger/internal/core/context"
)

type Logger struct {
	*zap.SugaredLogger
}

type Config struct {
	Level       string // debug, info, warn, error; anything else means info
	Development bool
	OutputPaths []string
}

func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}

	zl, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{zl.Sugar()}, nil
}

func Nop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

var current atomic.Pointer[Logger]

// Default is the logger behind Info, Warn and friends. Until SetDefault is
// called it writes JSON at info level to stdout.
func Default() *Logger {
	if l := current.Load(); l != nil {
		return l
	}
	l, err := New(Config{Level: "info", OutputPaths: []string{"stdout"}})
	if err != nil {
		l = Nop()
	}
	current.CompareAndSwap(nil, l)
	return current.Load()
}

func SetDefault(l *Logger) {
	current.Store(l)
}

// WithContext attaches trace_id, request_id and user_id when present.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	s := l.SugaredLogger
	if t := appctx.GetTrace(ctx); t != nil {
		s = s.With("trace_id", t.TraceID, "request_id", t.RequestID)
	}
	if u := appctx.GetUser(ctx); u != nil {
		s = s.With("user_id", u.UserID)
	}
	return &Logger{s}
}

func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{l.SugaredLogger.With("component", name)}
}

func Debug(ctx context.Context, msg string, kv ...any) {
	Default().WithContext(ctx).Debugw(msg, kv...)
}

func Info(ctx context.Context, msg string, kv ...any) {
	Default().WithContext(ctx).Infow(msg, kv...)
}

func Warn(ctx context.Context, msg string, kv ...any) {
	Default().WithContext(ctx).Warnw(msg, kv...)
}

func Error(ctx context.Context, msg string, kv ...any) {
	Default().WithContext(ctx).Errorw(msg, kv...)
}
