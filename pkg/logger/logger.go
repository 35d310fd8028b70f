package logger

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config contains logger configuration settings
type Config struct {
	Level  string // Log level: "debug", "info", "warn", or "error"
	Format string // Log format: "json" (structured) or "console" (human-readable)
}

// Logger is a thin wrapper around zap.Logger
type Logger struct {
	z *zap.Logger
}

// Field is a structured log field
type Field = zap.Field

// New creates a new logger with the given configuration
func New(cfg Config) (*Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info", "":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console", "":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return &Logger{z: z}, nil
}

// NewNop returns a logger that discards all output (used in tests)
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Debug logs a message at debug level
func (l *Logger) Debug(msg string, fields ...Field) {
	l.z.Debug(msg, fields...)
}

// Info logs a message at info level
func (l *Logger) Info(msg string, fields ...Field) {
	l.z.Info(msg, fields...)
}

// Warn logs a message at warn level
func (l *Logger) Warn(msg string, fields ...Field) {
	l.z.Warn(msg, fields...)
}

// Error logs a message at error level
func (l *Logger) Error(msg string, fields ...Field) {
	l.z.Error(msg, fields...)
}

// With returns a logger with the given fields attached to every message
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{z: l.z.With(fields...)}
}

// Named returns a logger with the given name segment appended
func (l *Logger) Named(name string) *Logger {
	return &Logger{z: l.z.Named(name)}
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.z.Sync()
}

// Field constructors

// String creates a string field
func String(key, value string) Field { return zap.String(key, value) }

// Int creates an int field
func Int(key string, value int) Field { return zap.Int(key, value) }

// Int64 creates an int64 field
func Int64(key string, value int64) Field { return zap.Int64(key, value) }

// Float64 creates a float64 field
func Float64(key string, value float64) Field { return zap.Float64(key, value) }

// Bool creates a bool field
func Bool(key string, value bool) Field { return zap.Bool(key, value) }

// Duration creates a duration field
func Duration(key string, value time.Duration) Field { return zap.Duration(key, value) }

// Time creates a time field
func Time(key string, value time.Time) Field { return zap.Time(key, value) }

// Any creates a field with an arbitrary value
func Any(key string, value any) Field { return zap.Any(key, value) }

// Error creates an error field
func Error(err error) Field { return zap.Error(err) }
