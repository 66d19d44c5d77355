// pkg/logger/logger.go

package logger

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger

// Initialize builds the global logger: human-readable console output plus a
// JSON file sink when a writable log path exists. Safe to call more than
// once; the last call wins.
func Initialize() {
	path := ResolveLogPath()
	if path == "" {
		fmt.Fprintln(os.Stderr, "⚠️  No writable log path found. Logging to console only.")
		InitFallback()
		return
	}

	consoleCfg := defaultConsoleEncoderConfig()
	jsonCfg := zap.NewProductionEncoderConfig()
	jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	jsonCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintln(os.Stderr, "⚠️  Could not open log file, falling back to console:", err)
		InitFallback()
		return
	}

	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), zapcore.AddSync(file), level),
	)

	replaceGlobals(zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)))
	log.Debug("Logger initialized", zap.String("log_file", path))
}

// InitFallback installs a console-only logger. Used before Initialize has
// run and whenever no log file is writable.
func InitFallback() {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(defaultConsoleEncoderConfig()),
		zapcore.Lock(os.Stderr),
		parseLogLevel(os.Getenv("LOG_LEVEL")),
	)
	replaceGlobals(zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)))
}

func replaceGlobals(l *zap.Logger) {
	log = l
	zap.ReplaceGlobals(l)
	otelzap.ReplaceGlobals(otelzap.New(l))
}

// L returns the global logger, initializing a fallback if needed.
func L() *zap.Logger {
	if log == nil {
		InitFallback()
	}
	return log
}

// GenerateRunID returns a short 8-char run identifier.
func GenerateRunID() string {
	return uuid.New().String()[:8]
}

// Sync flushes buffered entries. Call before the process exits.
func Sync() {
	if log == nil {
		return
	}
	// Sync on a terminal sink reports EINVAL; nothing useful to do with it.
	_ = log.Sync()
}

func defaultConsoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

func parseLogLevel(level string) zapcore.Level {
	switch level {
	case "TRACE", "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "FATAL":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
