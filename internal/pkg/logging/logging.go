package logging

import (
	"github.com/ManuelReschke/freelancedesk/internal/pkg/env"
	"go.uber.org/zap"
)

// New builds the process logger. Development mode logs human readable output
// at debug level; everything else gets JSON at info level.
func New() (*zap.Logger, error) {
	if env.IsDev() {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	if level := env.GetEnv("LOG_LEVEL", ""); level != "" {
		if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
			return nil, err
		}
	}
	return cfg.Build()
}

// MustNew is New that panics on error.
func MustNew() *zap.Logger {
	logger, err := New()
	if err != nil {
		panic(err)
	}
	return logger
}
