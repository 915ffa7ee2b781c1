package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.SugaredLogger

// LoggerOptions configures the application logger
type LoggerOptions struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Dir    string // empty means stdout only
}

// InitLogger initializes the application logger
func InitLogger(opts LoggerOptions) error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if opts.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	writers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if opts.Dir != "" {
		// Create logs directory if it doesn't exist
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %v", err)
		}
		timestamp := time.Now().Format("2006-01-02")
		file, err := os.OpenFile(
			filepath.Join(opts.Dir, fmt.Sprintf("%s-%s.log", strings.ToLower(AppName), timestamp)),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY,
			0644,
		)
		if err != nil {
			return fmt.Errorf("failed to open log file: %v", err)
		}
		writers = append(writers, zapcore.AddSync(file))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), level)
	logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	return nil
}

// SyncLogger flushes buffered log entries
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}

// LogInfo logs an informational message
func LogInfo(format string, v ...interface{}) {
	if logger != nil {
		logger.Infof(format, v...)
	}
}

// LogWarn logs a warning message
func LogWarn(format string, v ...interface{}) {
	if logger != nil {
		logger.Warnf(format, v...)
	}
}

// LogError logs an error message
func LogError(format string, v ...interface{}) {
	if logger != nil {
		logger.Errorf(format, v...)
	}
}

// LogDebug logs a debug message
func LogDebug(format string, v ...interface{}) {
	if logger != nil {
		logger.Debugf(format, v...)
	}
}

// LogSecurity logs a security relevant event, e.g. a forged payment signature.
// Entries carry security=true so they can be filtered out of the stream.
func LogSecurity(event string, keysAndValues ...interface{}) {
	if logger != nil {
		logger.With("security", true, "event", event).Warnw("security event", keysAndValues...)
	}
}

// LogRequest logs one served HTTP request. Server errors are logged at error level.
func LogRequest(requestID, method, path, ip string, status int, duration time.Duration) {
	if logger == nil {
		return
	}
	args := []interface{}{"request_id", requestID, "method", method, "path", path, "ip", ip, "status", status, "duration", duration}
	if status >= 500 {
		logger.Errorw("Request failed", args...)
		return
	}
	logger.Infow("Request", args...)
}

// LogErrorWithStack logs an error with stack trace
func LogErrorWithStack(err error, stack []byte) {
	if logger != nil {
		logger.Errorf("Error: %v\nStack Trace:\n%s", err, stack)
	}
}
