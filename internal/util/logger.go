package util

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// InitLogger builds the process logger. Production emits JSON at info,
// anything else emits colored console output at debug. A non-empty
// levelName overrides the environment default.
func InitLogger(env, levelName string) error {
	cfg := zap.NewDevelopmentConfig()
	lvl := zapcore.DebugLevel
	if env == "production" {
		cfg = zap.NewProductionConfig()
		lvl = zapcore.InfoLevel
	} else {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if levelName != "" {
		parsed, err := zapcore.ParseLevel(levelName)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", levelName, err)
		}
		lvl = parsed
	}
	level.SetLevel(lvl)
	cfg.Level = level
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.Fields(
		zap.String("service", serviceName),
		zap.String("env", env),
	))
	if err != nil {
		return err
	}

	logger = l
	zap.ReplaceGlobals(logger)
	return nil
}

// LogLevel reports the active level
func LogLevel() zapcore.Level {
	return level.Level()
}

// GetLogger returns the process logger, or a no-op logger before InitLogger
func GetLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// Named scopes the process logger to one component, e.g. "reconciler"
func Named(component string) *zap.Logger {
	return GetLogger().Named(component)
}

// SyncLogger flushes any buffered log entries
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}
