// Package logging builds the structured JSON logger shared by every component.
// Entries go to stderr and, optionally, to the simulated function log file, so they
// never mix with command output on stdout.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a JSON logger at the given level (debug, info, warn, error; unknown values mean info).
// When logFile is non-empty the same entries are appended to it. The returned func closes the file.
func New(level, logFile string) (*zap.Logger, func(), error) {
	lvl := parseLevel(level)
	enc := zapcore.NewJSONEncoder(encoderConfig())

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl),
	}
	closeFn := func() {}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(enc.Clone(), zapcore.AddSync(f), lvl))
		closeFn = func() { _ = f.Close() }
	}

	lg := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return lg, func() {
		_ = lg.Sync()
		closeFn()
	}, nil
}

// WithComponent returns a logger with component attribute
func WithComponent(lg *zap.Logger, component string) *zap.Logger {
	return lg.With(zap.String("component", component))
}

// WithRequestID returns a logger with request_id attribute
func WithRequestID(lg *zap.Logger, requestID string) *zap.Logger {
	return lg.With(zap.String("request_id", requestID))
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	return cfg
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
