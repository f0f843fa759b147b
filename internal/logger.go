package internal

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// SecureLogger provides leveled logging with sensitive data redaction.
// Session tokens, passwords, and digests must never reach a log file.
type SecureLogger struct {
	logger    *log.Logger
	level     LogLevel
	quiet     bool
	redactors []Redactor
}

// Redactor defines an interface for redacting sensitive information
type Redactor interface {
	Redact(input string) string
}

// FormFieldRedactor redacts sensitive form and query parameters.
type FormFieldRedactor struct{}

func (r *FormFieldRedactor) Redact(input string) string {
	// Fields that carry credentials on the wire: the session token,
	// the hashed password, and the login digest.
	patterns := []string{
		"wst=",
		"password=",
		"digest=",
		"token=",
	}

	result := input
	for _, pattern := range patterns {
		lower := strings.ToLower(result)
		index := strings.Index(lower, pattern)
		if index == -1 {
			continue
		}
		start := index + len(pattern)
		end := start
		for end < len(result) && result[end] != '&' && result[end] != ' ' && result[end] != ';' && result[end] != '\n' {
			end++
		}
		if end > start {
			result = result[:start] + "[REDACTED]" + result[end:]
		}
	}
	return result
}

// HeaderRedactor redacts credential-bearing HTTP headers.
type HeaderRedactor struct{}

func (r *HeaderRedactor) Redact(input string) string {
	patterns := []string{
		"Cookie:",
		"Set-Cookie:",
		"Authorization:",
	}

	result := input
	for _, pattern := range patterns {
		lower := strings.ToLower(result)
		index := strings.Index(lower, strings.ToLower(pattern))
		if index == -1 {
			continue
		}
		start := index + len(pattern)
		end := start
		for end < len(result) && result[end] != '\n' && result[end] != '\r' {
			end++
		}
		if end > start {
			result = result[:start] + " [REDACTED]" + result[end:]
		}
	}
	return result
}

// NewSecureLogger creates a new secure logger
func NewSecureLogger(output io.Writer, level LogLevel, quiet bool) *SecureLogger {
	return &SecureLogger{
		logger: log.New(output, "", 0), // We handle our own formatting
		level:  level,
		quiet:  quiet,
		redactors: []Redactor{
			&FormFieldRedactor{},
			&HeaderRedactor{},
		},
	}
}

// NewDefaultLogger creates a logger with default settings
func NewDefaultLogger(debug, quiet bool) *SecureLogger {
	level := LogLevelInfo
	if debug {
		level = LogLevelDebug
	}
	if quiet {
		level = LogLevelError
	}

	return NewSecureLogger(os.Stderr, level, quiet)
}

// redactSensitiveData applies all redactors to the input string
func (sl *SecureLogger) redactSensitiveData(input string) string {
	result := input
	for _, redactor := range sl.redactors {
		result = redactor.Redact(result)
	}
	return result
}

// formatMessage formats a log message with timestamp and level
func (sl *SecureLogger) formatMessage(level LogLevel, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	return fmt.Sprintf("[%s] %s %s", timestamp, level.String(), message)
}

// shouldLog determines if a message should be logged based on level
func (sl *SecureLogger) shouldLog(level LogLevel) bool {
	if sl.quiet && level > LogLevelError {
		return false
	}
	return level <= sl.level
}

func (sl *SecureLogger) logf(level LogLevel, format string, args ...interface{}) {
	if !sl.shouldLog(level) {
		return
	}

	message := fmt.Sprintf(format, args...)
	message = sl.redactSensitiveData(message)
	sl.logger.Print(sl.formatMessage(level, message))
}

// Error logs an error message
func (sl *SecureLogger) Error(format string, args ...interface{}) {
	sl.logf(LogLevelError, format, args...)
}

// Warn logs a warning message
func (sl *SecureLogger) Warn(format string, args ...interface{}) {
	sl.logf(LogLevelWarn, format, args...)
}

// Info logs an info message
func (sl *SecureLogger) Info(format string, args ...interface{}) {
	sl.logf(LogLevelInfo, format, args...)
}

// Debug logs a debug message
func (sl *SecureLogger) Debug(format string, args ...interface{}) {
	sl.logf(LogLevelDebug, format, args...)
}

// SetLevel sets the logging level
func (sl *SecureLogger) SetLevel(level LogLevel) {
	sl.level = level
}

// SetQuiet enables or disables quiet mode
func (sl *SecureLogger) SetQuiet(quiet bool) {
	sl.quiet = quiet
	if quiet {
		sl.level = LogLevelError
	}
}

// AddRedactor adds a custom redactor
func (sl *SecureLogger) AddRedactor(redactor Redactor) {
	sl.redactors = append(sl.redactors, redactor)
}
