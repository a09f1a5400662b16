// SPDX-License-Identifier: MIT
package log

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

// Constants for log levels.
const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// zapLevel maps a LogLevel onto the zap level of the same severity.
func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// --- Global Logger State ---

// atomicLevel is shared by the zap core, so SetLevel takes effect immediately
// without rebuilding the logger.
var atomicLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// sugar is the logger used by the package-level functions. It writes
// console-encoded lines to stderr with a microsecond timestamp.
var sugar = newSugar(zapcore.Lock(os.Stderr))

func newSugar(out zapcore.WriteSyncer) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05.000000")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.CallerKey = ""

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), out, atomicLevel)
	return zap.New(core).Sugar()
}

// SetOutput redirects all log output to out. Intended for tests and for
// terminal displays that own stdout/stderr.
func SetOutput(out zapcore.WriteSyncer) {
	sugar = newSugar(out)
}

// SetLevel sets the global logging level atomically.
func SetLevel(level LogLevel) {
	atomicLevel.SetLevel(level.zapLevel())
}

// GetLevel gets the current global logging level atomically.
func GetLevel() LogLevel {
	switch atomicLevel.Level() {
	case zapcore.DebugLevel:
		return LevelDebug
	case zapcore.WarnLevel:
		return LevelWarn
	case zapcore.ErrorLevel:
		return LevelError
	case zapcore.FatalLevel, zapcore.PanicLevel, zapcore.DPanicLevel:
		return LevelFatal
	default:
		return LevelInfo
	}
}

// RaiseLevel lifts the global level to at least floor and returns the level
// that was in effect before.
func RaiseLevel(floor LogLevel) LogLevel {
	prev := GetLevel()
	if prev < floor {
		SetLevel(floor)
	}
	return prev
}

// Sync flushes any buffered log entries.
func Sync() error {
	return sugar.Sync()
}

// --- Public Logging Functions ---

// Debugf logs a formatted debug message if the level is appropriate.
func Debugf(format string, v ...interface{}) {
	sugar.Debugf(format, v...)
}

// Infof logs a formatted info message if the level is appropriate.
func Infof(format string, v ...interface{}) {
	sugar.Infof(format, v...)
}

// Warnf logs a formatted warning message if the level is appropriate.
func Warnf(format string, v ...interface{}) {
	sugar.Warnf(format, v...)
}

// Errorf logs a formatted error message if the level is appropriate.
func Errorf(format string, v ...interface{}) {
	sugar.Errorf(format, v...)
}

// Fatalf logs a formatted fatal message and exits the application.
func Fatalf(format string, v ...interface{}) {
	sugar.Fatalf(format, v...)
}

// Debug logs a debug message if the level is appropriate.
func Debug(v ...interface{}) {
	sugar.Debug(v...)
}

// Info logs an info message if the level is appropriate.
func Info(v ...interface{}) {
	sugar.Info(v...)
}

// Warn logs a warning message if the level is appropriate.
func Warn(v ...interface{}) {
	sugar.Warn(v...)
}

// Error logs an error message if the level is appropriate.
func Error(v ...interface{}) {
	sugar.Error(v...)
}

// Fatal logs a fatal message and exits the application.
func Fatal(v ...interface{}) {
	sugar.Fatal(v...)
}
