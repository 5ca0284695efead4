package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ndcscan/internal/config"
)

// New builds the process logger. Production JSON output unless LOG_DEV is set.
func New(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	if cfg.LogDev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
