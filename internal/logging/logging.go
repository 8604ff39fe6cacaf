// Package logging builds the zap loggers used by the service.
//
// Logs always go to stderr: stdout carries the tool protocol when the service
// runs as a stdio server.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelEnv names the environment variable that overrides the log level.
const LevelEnv = "SOCCER_VISION_LOG_LEVEL"

// NewConfig returns the console config: ISO8601 timestamps, colored capital
// levels, short callers and no stack traces.
func NewConfig(level zapcore.Level) zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// LevelFromEnv returns the level named by LevelEnv, or fallback when it is
// unset or not a level name.
func LevelFromEnv(fallback zapcore.Level) zapcore.Level {
	v := strings.TrimSpace(os.Getenv(LevelEnv))
	if v == "" {
		return fallback
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(v))
	if err != nil {
		return fallback
	}
	return lvl
}

// New returns a named sugared logger. debug forces the debug level; otherwise
// the environment decides, defaulting to info.
func New(name string, debug bool) (*zap.SugaredLogger, error) {
	level := LevelFromEnv(zapcore.InfoLevel)
	if debug {
		level = zapcore.DebugLevel
	}
	logger, err := NewConfig(level).Build()
	if err != nil {
		return nil, err
	}
	return logger.Named(name).Sugar(), nil
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.SugaredLogger) *zap.SugaredLogger {
	if logger == nil {
		return zap.NewNop().Sugar()
	}
	return logger
}
