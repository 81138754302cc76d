package logs

import (
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Log levels, higher is more severe.
const (
	LevelTrace   = iota // 0, most verbose
	LevelDebug          // 1
	LevelVerbose        // 2
	LevelInfo           // 3
	LevelWarning        // 4
	LevelError          // 5
)

var logLevel atomic.Int32

// global logger instance
var logger *Logger

// Logger holds one stdlib logger per level.
type Logger struct {
	traceLogger   *log.Logger
	debugLogger   *log.Logger
	verboseLogger *log.Logger
	infoLogger    *log.Logger
	warnLogger    *log.Logger
	errorLogger   *log.Logger
}

func init() {
	logLevel.Store(LevelInfo)
	logger = newLogger(os.Stdout, os.Stderr)
}

func newLogger(out, errOut io.Writer) *Logger {
	flags := log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile
	return &Logger{
		traceLogger:   log.New(out, "[TRACE]   ", flags),
		debugLogger:   log.New(out, "[DEBUG]   ", flags),
		verboseLogger: log.New(out, "[VERBOSE] ", flags),
		infoLogger:    log.New(out, "[INFO]    ", flags),
		warnLogger:    log.New(out, "[WARN]    ", flags),
		errorLogger:   log.New(errOut, "[ERROR]   ", flags),
	}
}

// SetOutput redirects every level to w. Used by tests and the CLI.
func SetOutput(w io.Writer) {
	logger = newLogger(w, w)
}

// SetLevel sets the minimum level that is written.
func SetLevel(level int) {
	logLevel.Store(int32(level))
}

// ParseLevel maps a config string to a level, defaulting to info.
func ParseLevel(s string) int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "verbose":
		return LevelVerbose
	case "warn", "warning":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func enabled(level int) bool {
	return int(logLevel.Load()) <= level
}

func Trace(format string, v ...interface{}) {
	if enabled(LevelTrace) {
		logger.traceLogger.Printf(format, v...)
	}
}

func Debug(format string, v ...interface{}) {
	if enabled(LevelDebug) {
		logger.debugLogger.Printf(format, v...)
	}
}

func Verbose(format string, v ...interface{}) {
	if enabled(LevelVerbose) {
		logger.verboseLogger.Printf(format, v...)
	}
}

func Info(format string, v ...interface{}) {
	if enabled(LevelInfo) {
		logger.infoLogger.Printf(format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	if enabled(LevelWarning) {
		logger.warnLogger.Printf(format, v...)
	}
}

func Error(format string, v ...interface{}) {
	if enabled(LevelError) {
		logger.errorLogger.Printf(format, v...)
	}
}
