package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the level of logging
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

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
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config/flag string to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes leveled, single-line log records. Safe for concurrent use:
// API calls log from tea.Cmd goroutines while the TUI logs from Update.
type Logger struct {
	mu     sync.Mutex
	level  LogLevel
	output io.Writer
	prefix string
}

// defaultLogger is the package-level logger instance
var defaultLogger *Logger

func init() {
	defaultLogger = New(LevelInfo, os.Stderr, "tablero")
}

// New creates a new logger instance
func New(level LogLevel, output io.Writer, prefix string) *Logger {
	return &Logger{
		level:  level,
		output: output,
		prefix: prefix,
	}
}

// SetLevel sets the logging level for the default logger
func SetLevel(level LogLevel) {
	defaultLogger.mu.Lock()
	defaultLogger.level = level
	defaultLogger.mu.Unlock()
}

// SetOutput redirects the default logger. The TUI points it at the debug
// file so log lines don't tear the alt-screen.
func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defaultLogger.output = w
	defaultLogger.mu.Unlock()
}

// SetVerbose enables verbose logging (DEBUG level) to stderr
func SetVerbose(verbose bool) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	if verbose {
		defaultLogger.level = LevelDebug
		if logFile := DebugLogFile(); logFile != nil {
			defaultLogger.output = io.MultiWriter(os.Stderr, logFile)
		}
	} else {
		defaultLogger.level = LevelInfo
		defaultLogger.output = os.Stderr
	}
}

// DebugLogPath is where verbose runs and TUI sessions append their log.
func DebugLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tablero", "debug.log")
}

// DebugLogFile opens the debug log for appending, or returns nil.
func DebugLogFile() *os.File {
	logPath := DebugLogPath()
	if logPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}

	return file
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02T15:04:05")
	message := fmt.Sprintf(format, args...)

	// Structured log format: timestamp level [prefix] message
	logLine := fmt.Sprintf("%s %s [%s] %s\n", timestamp, level.String(), l.prefix, message)

	// Never log tokens, passwords, or auth headers
	if containsSensitive(message) {
		logLine = fmt.Sprintf("%s %s [%s] %s\n", timestamp, level.String(), l.prefix, "[REDACTED: contains sensitive data]")
	}

	l.output.Write([]byte(logLine))
}

// Debugf, Infof, Warnf and Errorf log through this instance.
func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, format, args...) }

func containsSensitive(message string) bool {
	lower := strings.ToLower(message)
	sensitiveWords := []string{
		"token", "password", "apikey", "api_key", "credential",
		"secret", "key=", "authorization:", "basic ", "bearer ",
	}

	for _, word := range sensitiveWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// Package-level logging functions

// Debug logs debug information (only shown with --verbose)
func Debug(format string, args ...interface{}) {
	defaultLogger.log(LevelDebug, format, args...)
}

// Info logs informational messages
func Info(format string, args ...interface{}) {
	defaultLogger.log(LevelInfo, format, args...)
}

// Warn logs warning messages
func Warn(format string, args ...interface{}) {
	defaultLogger.log(LevelWarn, format, args...)
}

// Error logs error messages
func Error(format string, args ...interface{}) {
	defaultLogger.log(LevelError, format, args...)
}

// HTTP logs HTTP request information (debug level)
func HTTP(method, url string) {
	Debug("HTTP %s %s", method, url)
}

// HTTPResponse logs HTTP response information (debug level)
func HTTPResponse(status int, duration time.Duration) {
	Debug("HTTP response: %d (%v)", status, duration)
}

// Config logs configuration-related information (debug level)
func Config(format string, args ...interface{}) {
	Debug("CONFIG: "+format, args...)
}

// TUI logs TUI-related information (debug level)
func TUI(format string, args ...interface{}) {
	Debug("TUI: "+format, args...)
}

// API logs board API activity (debug level)
func API(format string, args ...interface{}) {
	Debug("API: "+format, args...)
}

// Store logs local state mutations (debug level)
func Store(format string, args ...interface{}) {
	Debug("STORE: "+format, args...)
}
