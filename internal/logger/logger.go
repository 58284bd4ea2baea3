// Package logger provides the structured logger shared by the client, the
// webhook receiver and the CLI. It is a thin layer over zap that keeps a
// process-wide default and offers field-scoped child loggers.
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the logging level
type Level int

const (
	// DebugLevel logs everything
	DebugLevel Level = iota
	// InfoLevel logs info, warnings, and errors
	InfoLevel
	// WarnLevel logs warnings and errors
	WarnLevel
	// ErrorLevel logs only errors
	ErrorLevel
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zap.DebugLevel
	case WarnLevel:
		return zap.WarnLevel
	case ErrorLevel:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Logger provides structured logging backed by zap
type Logger struct {
	zap *ZapLogger
}

var (
	globalLogger *Logger
	globalMu     sync.Mutex
)

func init() {
	if zl, err := NewZapLoggerFromConfig(ConfigFromEnv()); err == nil {
		globalLogger = &Logger{zap: zl}
	} else {
		globalLogger = NewNop()
	}
}

// NewFromZap wraps an existing zap logger, mostly useful in tests with zaptest/observer
func NewFromZap(l *zap.Logger) *Logger {
	return &Logger{zap: wrapZap(l)}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return NewFromZap(zap.NewNop())
}

// WithField adds a single field to the logger context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zap: wrapZap(l.zap.With(zap.Any(key, value)))}
}

// WithFields adds multiple fields to the logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return &Logger{zap: wrapZap(l.zap.With(zapFields...))}
}

// WithError attaches err and its concrete type
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zap: l.zap.WithError(err)}
}

// WithRun attaches a run identifier
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{zap: l.zap.WithRun(runID)}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) { l.zap.Debug(msg) }

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) { l.zap.Debugf(format, args...) }

// Info logs an info message
func (l *Logger) Info(msg string) { l.zap.Info(msg) }

// Warn logs a warning message
func (l *Logger) Warn(msg string) { l.zap.Warn(msg) }

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) { l.zap.Warnf(format, args...) }

// Error logs an error message
func (l *Logger) Error(msg string) { l.zap.Error(msg) }

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalLogger
}

// SetLogger sets the global logger instance
func SetLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// LevelFromString converts a string to a log level
func LevelFromString(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Initialize replaces the global logger according to cfg
func Initialize(cfg *Config) error {
	zl, err := NewZapLoggerFromConfig(cfg)
	if err != nil {
		return err
	}
	SetLogger(&Logger{zap: zl})
	return nil
}

// WithField is a convenience function that returns a logger with a field
func WithField(key string, value interface{}) *Logger {
	return GetLogger().WithField(key, value)
}
