package applog

import (
	"fmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"os"
	"path/filepath"
	"shadowswap/build"
	"sync/atomic"
	"time"
)

type Logger = zap.Logger

const (
	asyncSinkBufferSize   = 4096
	asyncSinkShutdownWait = 500 * time.Millisecond
)

var (
	globalLogger  = newConsoleLogger()
	asyncSinks    []*asyncSink
	logFile       *os.File
	acceptingLogs int32 = 1
)

func Info(msg string, fields ...zapcore.Field) {
	if atomic.LoadInt32(&acceptingLogs) == 0 {
		return
	}
	globalLogger.WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

func Warn(msg string, fields ...zapcore.Field) {
	if atomic.LoadInt32(&acceptingLogs) == 0 {
		return
	}
	globalLogger.WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

func Debug(msg string, fields ...zapcore.Field) {
	if atomic.LoadInt32(&acceptingLogs) == 0 {
		return
	}
	globalLogger.WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

func Error(msg string, fields ...zapcore.Field) {
	if atomic.LoadInt32(&acceptingLogs) == 0 {
		return
	}
	globalLogger.WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

// Fatal always logs, flushes what it can and exits the process.
func Fatal(msg string, fields ...zapcore.Field) {
	globalLogger.WithOptions(zap.AddCallerSkip(1)).Fatal(msg, fields...)
}

func LogStartupInfo(launchArgs interface{}) {
	Info("Application started",
		zap.Any("build", build.GetBuildInfo()),
		zap.Any("launchArgs", launchArgs),
	)
}

func GetLogger() *Logger {
	return globalLogger
}

// Initialize switches the global logger to an asynchronous tee of stdout and a session log file.
// Without logPath the file is created as logs/session_<role>_<sessionId>.log in the working directory.
func Initialize(role string, sessionId string, rawLogLevel int, logPath string) error {
	if logPath == "" {
		workdir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current working directory: %w", err)
		}
		logPath = filepath.Join(workdir, "logs")
	}

	logFilename := filepath.Join(logPath, fmt.Sprintf("session_%s_%s.log", role, sessionId))
	if err := os.MkdirAll(filepath.Dir(logFilename), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logFilename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file '%s': %w", logFilename, err)
	}
	logFile = file

	level := safeGetLogLevelOrDefault(rawLogLevel)
	encoder := zapcore.NewJSONEncoder(getEncoderConfig())

	consoleSink := newAsyncSink(zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level), asyncSinkBufferSize)
	fileSink := newAsyncSink(zapcore.NewCore(encoder.Clone(), zapcore.AddSync(logFile), level), asyncSinkBufferSize)
	asyncSinks = []*asyncSink{consoleSink, fileSink}

	l := zap.New(zapcore.NewTee(consoleSink, fileSink), zap.AddCaller()).With(
		zap.String("role", role),
		zap.String("sessionId", sessionId),
	)

	setLogger(l)
	atomic.StoreInt32(&acceptingLogs, 1)
	return nil
}

// Shutdown stops accepting new entries, drains the async sinks and closes the log file.
func Shutdown() {
	atomic.StoreInt32(&acceptingLogs, 0)

	for _, sink := range asyncSinks {
		sink.Shutdown(asyncSinkShutdownWait)
		_ = sink.Sync()
	}
	asyncSinks = nil

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// safeGetLogLevelOrDefault maps the -log-level flag onto a zap level, falling back to Info.
func safeGetLogLevelOrDefault(rawLogLevel int) zapcore.Level {
	level := zapcore.Level(rawLogLevel)
	if rawLogLevel < int(zapcore.DebugLevel) || rawLogLevel > int(zapcore.FatalLevel) {
		return zapcore.InfoLevel
	}
	return level
}

func getEncoderConfig() zapcore.EncoderConfig {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339)) // Ensure UTC
	}
	return encoderConfig
}

func newConsoleLogger() *Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(getEncoderConfig()),
		zapcore.Lock(os.Stdout),
		zapcore.InfoLevel,
	)
	return zap.New(core, zap.AddCaller())
}

func setLogger(l *Logger) {
	globalLogger = l
	zap.ReplaceGlobals(globalLogger)
}
