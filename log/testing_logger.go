package log

import (
	"io"
	"os"
	"sync"
	"testing"
)

var (
	// reuse the same logger across all tests
	_testingLoggerMutex = sync.Mutex{}
	_testingLogger      Logger
)

// TestingLogger returns a Logger which writes to STDOUT if testing being run
// with the verbose (-v) flag, NopLogger otherwise.
//
// Note that the call to TestingLogger() must be made
// inside a test (not in the init func) because
// verbose flag only set at the time of testing.
func TestingLogger() Logger {
	return TestingLoggerWithOutput(os.Stdout)
}

// TestingLoggerWithOutput returns a Logger which writes to (w io.Writer) if
// testing being run with the verbose (-v) flag, NopLogger otherwise.
func TestingLoggerWithOutput(w io.Writer) Logger {
	_testingLoggerMutex.Lock()
	defer _testingLoggerMutex.Unlock()
	if _testingLogger != nil {
		return _testingLogger
	}

	if testing.Verbose() {
		_testingLogger = MustNewDefaultLoggerWithOutput(NewSyncWriter(w), LogFormatText, LogLevelDebug)
	} else {
		_testingLogger = NewNopLogger()
	}

	return _testingLogger
}

// MustNewDefaultLoggerWithOutput is NewDefaultLoggerWithOutput that panics
// on error.
func MustNewDefaultLoggerWithOutput(w io.Writer, format, level string) Logger {
	logger, err := NewDefaultLoggerWithOutput(w, format, level)
	if err != nil {
		panic(err)
	}
	return logger
}
