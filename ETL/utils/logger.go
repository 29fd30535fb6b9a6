package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ETLLogger is the logger of the synchronization engine
type ETLLogger struct {
	sugar     *zap.SugaredLogger
	isVerbose bool

	// daily log file, owned by the root logger only
	file *os.File
}

// NewETLLogger creates a logger writing to stderr and, when dir is set,
// to a daily JSON log file etl_log_YYYY-MM-DD.log inside dir
func NewETLLogger(verbose, development bool, dir string) (*ETLLogger, error) {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	var encCfg zapcore.EncoderConfig
	if development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level),
	}

	var file *os.File
	if dir != "" {
		logFileName := fmt.Sprintf("etl_log_%s.log", time.Now().Format("2006-01-02"))
		var err error
		file, err = os.OpenFile(filepath.Join(dir, logFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(file), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return &ETLLogger{sugar: logger.Sugar(), isVerbose: verbose, file: file}, nil
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *ETLLogger {
	return &ETLLogger{sugar: zap.NewNop().Sugar()}
}

// Sync flushes buffered entries
func (l *ETLLogger) Sync() {
	_ = l.sugar.Sync()
}

// Close flushes buffered entries and closes the daily log file.
// Child loggers created by With must not be used afterwards.
func (l *ETLLogger) Close() error {
	l.Sync()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// With returns a child logger carrying the given key/value pairs
func (l *ETLLogger) With(keysAndValues ...interface{}) *ETLLogger {
	return &ETLLogger{sugar: l.sugar.With(keysAndValues...), isVerbose: l.isVerbose}
}

// Info logs an informational message
func (l *ETLLogger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warn logs a recoverable anomaly
func (l *ETLLogger) Warn(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Error logs an error message
func (l *ETLLogger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Debug logs a debug message (verbose mode only)
func (l *ETLLogger) Debug(format string, v ...interface{}) {
	if !l.isVerbose {
		return
	}
	l.sugar.Debugf(format, v...)
}

// LogPhaseStart logs the beginning of a synchronization phase
func (l *ETLLogger) LogPhaseStart(phase string) {
	l.sugar.Infow("phase started", "phase", phase)
}

// LogPhaseComplete logs the end of a synchronization phase
func (l *ETLLogger) LogPhaseComplete(phase string, duration time.Duration) {
	l.sugar.Infow("phase complete", "phase", phase, "duration", duration)
}

// LogTableSynced logs the counters of one table step
func (l *ETLLogger) LogTableSynced(table string, extracted, inserted, updated, dropped int) {
	l.sugar.Infow("table synced",
		"table", table,
		"extracted", extracted,
		"inserted", inserted,
		"updated", updated,
		"dropped", dropped,
	)
}
