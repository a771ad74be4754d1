// Package log is a key/value logging front end over zap.
//
// Call sites pass a message followed by alternating keys and values:
//
//	log.Info("Staked collateral", "owner", owner, "amount", amount)
package log

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes key/value records at a fixed set of levels.
type Logger interface {
	// New returns a Logger that has this logger's context plus the given context.
	New(ctx ...interface{}) Logger

	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
}

type logger struct {
	sugar *zap.SugaredLogger
}

// NewZap wraps an existing zap logger.
func NewZap(l *zap.Logger) Logger {
	return &logger{sugar: l.Sugar()}
}

// New builds a production zap logger. LOG_LEVEL and LOG_ENCODING in the
// environment take precedence over the arguments.
func New(level, encoding string) (Logger, error) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level = v
	}
	if v := os.Getenv("LOG_ENCODING"); v != "" {
		encoding = v
	}
	if encoding == "" {
		encoding = "console"
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = encoding
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Development = lvl == zap.DebugLevel
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding == "console" {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	l, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}
	return NewZap(l), nil
}

// ParseLevel maps a level name to a zap level. "trace" is folded into debug.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug":
		return zap.DebugLevel, nil
	case "", "info":
		return zap.InfoLevel, nil
	case "warn", "warning":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	case "crit", "fatal":
		return zap.FatalLevel, nil
	}
	return zap.InfoLevel, fmt.Errorf("unknown log level %q", level)
}

func (l *logger) New(ctx ...interface{}) Logger {
	return &logger{sugar: l.sugar.With(normalize(ctx)...)}
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.sugar.Debugw(msg, normalize(ctx)...) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.sugar.Debugw(msg, normalize(ctx)...) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.sugar.Infow(msg, normalize(ctx)...) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.sugar.Warnw(msg, normalize(ctx)...) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.sugar.Errorw(msg, normalize(ctx)...) }

func (l *logger) Crit(msg string, ctx ...interface{}) {
	l.sugar.Errorw(msg, normalize(ctx)...)
	l.sugar.Sync()
	os.Exit(1)
}

// normalize turns a key/value list into zap's sugared form without touching
// the caller's slice. Keys must be strings; an odd trailing value is
// reported under a placeholder key.
func normalize(ctx []interface{}) []interface{} {
	out := make([]interface{}, 0, len(ctx)+1)
	for i := 0; i < len(ctx); i += 2 {
		if i+1 == len(ctx) {
			out = append(out, "LOG_ERROR", ctx[i])
			break
		}
		key, val := ctx[i], ctx[i+1]
		if _, ok := key.(string); !ok {
			key = fmt.Sprint(key)
		}
		if s, ok := val.(fmt.Stringer); ok {
			val = s.String()
		}
		out = append(out, key, val)
	}
	return out
}
