package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "sol-pos"

var level = zap.NewAtomicLevel()

// Init builds the process logger for env and installs it as zap.L().
// Production environments log JSON, everything else logs to the console.
func Init(env string, logFile string) error {
	logger, err := New(env, logFile)
	if err != nil {
		return err
	}

	zap.ReplaceGlobals(logger)

	return nil
}

func New(env string, logFile string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = level
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	if logFile != "" {
		if err := ensureLogFile(logFile); err != nil {
			return nil, fmt.Errorf("prepare log file -> %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	if env == "production" {
		cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	}

	cfg.InitialFields = map[string]any{
		"service": serviceName,
		"env":     env,
	}

	return cfg.Build()
}

// SetLevel changes the level of every logger built by New. Unknown levels
// are rejected and leave the current level in place.
func SetLevel(l string) error {
	if l == "" {
		return nil
	}

	return level.UnmarshalText([]byte(l))
}

func Level() zapcore.Level {
	return level.Level()
}

func ensureLogFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	return f.Close()
}
