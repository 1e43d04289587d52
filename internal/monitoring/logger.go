// Package monitoring holds the package-level diagnostic loggers used by the
// sweep, sampling and simulation packages.
package monitoring

import (
	"go.uber.org/zap"
)

// Logf is the package-level diagnostic logger. It defaults to zap's global
// sugared logger (a no-op until Install or zap.ReplaceGlobals is called) and
// may be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	zap.S().Infof(format, v...)
}

// Debugf logs per-sample progress.
var Debugf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	zap.S().Debugf(format, v...)
}

// Warnf logs recoverable conditions such as a non power-of-two sample count.
var Warnf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	zap.S().Warnf(format, v...)
}

// SetLogger replaces all package loggers with f. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	Logf = f
	Debugf = f
	Warnf = f
}

// NewLogger builds the zap logger used by the command-line tools. Verbose
// selects the development config (debug level, console encoding).
func NewLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// Install routes the package loggers through l and makes it zap's global
// logger. The returned function restores the previous zap globals and
// package loggers.
func Install(l *zap.Logger) func() {
	prevLogf, prevDebugf, prevWarnf := Logf, Debugf, Warnf
	restoreZap := zap.ReplaceGlobals(l)
	s := l.Sugar()
	Logf = s.Infof
	Debugf = s.Debugf
	Warnf = s.Warnf
	return func() {
		restoreZap()
		Logf, Debugf, Warnf = prevLogf, prevDebugf, prevWarnf
	}
}
