package log

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var root atomic.Value

func init() {
	root.Store(NewZap(zap.NewNop()))
}

// SetDefault replaces the root logger.
func SetDefault(l Logger) {
	root.Store(l)
}

// Root returns the root logger.
func Root() Logger {
	return root.Load().(Logger)
}

// The following functions bypass the exported logger methods (logger.Debug,
// etc.) to keep the call depth the same for all paths to the zap core.

// Trace is a convenient alias for Root().Trace
func Trace(msg string, ctx ...interface{}) { Root().Trace(msg, ctx...) }

// Debug is a convenient alias for Root().Debug
func Debug(msg string, ctx ...interface{}) { Root().Debug(msg, ctx...) }

// Info is a convenient alias for Root().Info
func Info(msg string, ctx ...interface{}) { Root().Info(msg, ctx...) }

// Warn is a convenient alias for Root().Warn
func Warn(msg string, ctx ...interface{}) { Root().Warn(msg, ctx...) }

// Error is a convenient alias for Root().Error
func Error(msg string, ctx ...interface{}) { Root().Error(msg, ctx...) }

// Crit is a convenient alias for Root().Crit
func Crit(msg string, ctx ...interface{}) { Root().Crit(msg, ctx...) }
