// ABOUTME: Structured logger construction and the process-wide logger
// ABOUTME: JSON in production, console in development, always on stderr
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/incial/crm/config"
)

var (
	mu     sync.RWMutex
	global *zap.Logger
	once   sync.Once
)

// New builds a logger from cfg. An unknown level falls back to info.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}

// Set replaces the process logger.
func Set(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = logger
}

// Get returns the process logger, creating a no-op logger on first use if
// none was set.
func Get() *zap.Logger {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if global == nil {
			global = zap.NewNop()
		}
	})
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync flushes the process logger.
func Sync() {
	_ = Get().Sync()
}
