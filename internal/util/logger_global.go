package util

import (
	"sync"
)

var (
	globalMu     sync.RWMutex
	globalLogger LoggerInterface
)

// InitLogger installs the global logger. Calling it again replaces and closes the previous one.
func InitLogger(logLevel, logFile string, console bool) error {
	logger, err := NewLogger(logLevel, logFile, console, FormatText)
	if err != nil {
		return err
	}
	SetLogger(logger)
	return nil
}

// SetLogger swaps the global logger, closing the old one
func SetLogger(logger LoggerInterface) {
	globalMu.Lock()
	old := globalLogger
	globalLogger = logger
	globalMu.Unlock()

	if old != nil {
		_ = old.Close()
	}
}

func current() LoggerInterface {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

func LogInfo(msg string, fields ...Field) {
	if l := current(); l != nil {
		l.Info(msg, fields...)
	}
}

func LogInfof(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Infof(format, args...)
	}
}

func LogDebug(msg string, fields ...Field) {
	if l := current(); l != nil {
		l.Debug(msg, fields...)
	}
}

func LogDebugf(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Debugf(format, args...)
	}
}

func LogWarn(msg string, fields ...Field) {
	if l := current(); l != nil {
		l.Warn(msg, fields...)
	}
}

func LogWarnf(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Warnf(format, args...)
	}
}

func LogError(msg string, fields ...Field) {
	if l := current(); l != nil {
		l.Error(msg, fields...)
	}
}

func LogErrorf(format string, args ...interface{}) {
	if l := current(); l != nil {
		l.Errorf(format, args...)
	}
}
