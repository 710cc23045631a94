package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	currentLogLevel = LevelInfo
	useColors       = IsTerminal(os.Stderr.Fd())

	logMu    sync.Mutex
	console  io.Writer = os.Stderr
	fileSink io.WriteCloser
)

// SetLogLevel sets the minimum log level to display
func SetLogLevel(level LogLevel) {
	currentLogLevel = level
}

// SetVerbose enables verbose (debug) logging
func SetVerbose(verbose bool) {
	if verbose {
		currentLogLevel = LevelDebug
	}
}

// SetQuiet enables quiet mode (errors only)
func SetQuiet(quiet bool) {
	if quiet {
		currentLogLevel = LevelError
	}
}

// IsQuiet reports whether only errors are shown
func IsQuiet() bool {
	return currentLogLevel >= LevelError
}

// SetColors enables or disables colored output
func SetColors(enabled bool) {
	useColors = enabled
}

// SetOutput redirects console logging, mostly for tests
func SetOutput(w io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	console = w
}

// SetLogFile mirrors every log line into a size-rotated file.
// An empty path disables the file sink.
func SetLogFile(path string, maxSizeMB, maxBackups, maxAgeDays int) {
	logMu.Lock()
	defer logMu.Unlock()

	if fileSink != nil {
		fileSink.Close()
		fileSink = nil
	}
	if path == "" {
		return
	}

	fileSink = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
}

// CloseLogFile flushes and closes the file sink, if any
func CloseLogFile() error {
	logMu.Lock()
	defer logMu.Unlock()

	if fileSink == nil {
		return nil
	}
	err := fileSink.Close()
	fileSink = nil
	return err
}

func colorize(color string, text string) string {
	if !useColors {
		return text
	}
	reset := "\033[0m"
	return color + text + reset
}

func emit(color, tag, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	ts := timestamp()

	logMu.Lock()
	defer logMu.Unlock()

	fmt.Fprintf(console, "%s %s %s\n", colorize(color, ts), tag, msg)
	if fileSink != nil {
		fmt.Fprintf(fileSink, "%s %s %s\n", time.Now().Format(time.RFC3339), tag, msg)
	}
}

// DebugLog logs debug messages
func DebugLog(format string, args ...interface{}) {
	if currentLogLevel <= LevelDebug {
		emit("\033[90m", "[DEBUG]", format, args...)
	}
}

// InfoLog logs informational messages
func InfoLog(format string, args ...interface{}) {
	if currentLogLevel <= LevelInfo {
		emit("\033[36m", "[INFO] ", format, args...)
	}
}

// WarnLog logs warning messages
func WarnLog(format string, args ...interface{}) {
	if currentLogLevel <= LevelWarn {
		emit("\033[33m", "[WARN] ", format, args...)
	}
}

// ErrorLog logs error messages
func ErrorLog(format string, args ...interface{}) {
	if currentLogLevel <= LevelError {
		emit("\033[31m", "[ERROR]", format, args...)
	}
}

// SuccessLog logs success messages (always shown unless quiet)
func SuccessLog(format string, args ...interface{}) {
	if currentLogLevel <= LevelInfo {
		emit("\033[32m", "[OK]   ", format, args...)
	}
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}
