package config

import (
	"log"
	"os"
)

// Logger is the logging interface used throughout ruleflow. It mirrors the
// teacher's minimal Printf-style contract so any existing log adapter
// (logrus, zap, zerolog) can be wrapped in a few lines without pulling a
// specific logging library into the core.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// stdLogger is the default Logger, backed by the standard library's log
// package. It writes everything to stderr with a level prefix; production
// callers are expected to supply their own Logger via WithLogger.
type stdLogger struct {
	l *log.Logger
}

// DefaultLogger returns the built-in stdlib-backed Logger.
func DefaultLogger() Logger {
	return &stdLogger{l: log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)}
}

func (s *stdLogger) Debugf(format string, args ...any) { s.l.Printf("DEBUG "+format, args...) }
func (s *stdLogger) Infof(format string, args ...any)  { s.l.Printf("INFO  "+format, args...) }
func (s *stdLogger) Warnf(format string, args ...any)  { s.l.Printf("WARN  "+format, args...) }
func (s *stdLogger) Errorf(format string, args ...any) { s.l.Printf("ERROR "+format, args...) }

// NopLogger discards every message. Useful in tests where log noise is
// unwanted but a non-nil Logger is still required by the contract.
func NopLogger() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
