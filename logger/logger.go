/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package logger builds the process zap logger.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger for level: debug, info, warn, error, dpanic, panic or
// fatal. Unknown or empty levels fall back to info. Debug switches to the
// development console encoder; everything else logs structured JSON.
func New(level string) (*zap.Logger, error) {
	return config(level).Build()
}

func config(level string) zap.Config {
	level = strings.ToLower(strings.TrimSpace(level))

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil || level == "" {
		lvl = zapcore.InfoLevel
	}

	if lvl == zapcore.DebugLevel {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(lvl)
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	return cfg
}

// Sync flushes l, ignoring the error stdout/stderr return on some platforms.
func Sync(l *zap.Logger) {
	if l != nil {
		_ = l.Sync()
	}
}
