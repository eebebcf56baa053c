package logger

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Logger writes levelled key/value lines and redacts customer data
// unless it runs in development at DEBUG level.
type Logger struct {
	mu    sync.RWMutex
	level LogLevel
	out   *log.Logger
	isDev bool
}

var (
	defaultLogger *Logger
	defaultMu     sync.Mutex
)

// New builds a logger writing to w.
func New(w io.Writer, level LogLevel, isDev bool) *Logger {
	return &Logger{
		level: level,
		out:   log.New(w, "", log.LstdFlags),
		isDev: isDev,
	}
}

// Initialize replaces the default logger instance
func Initialize(level LogLevel, isDev bool) {
	defaultMu.Lock()
	defaultLogger = New(os.Stdout, level, isDev)
	defaultMu.Unlock()
}

// GetLogger returns the default logger instance
func GetLogger() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New(os.Stdout, INFO, false)
	}
	return defaultLogger
}

// SetOutput redirects the default logger, mainly for tests.
func SetOutput(w io.Writer) {
	l := GetLogger()
	l.mu.Lock()
	l.out.SetOutput(w)
	l.mu.Unlock()
}

// SetLevel updates the log level
func SetLevel(level LogLevel) {
	l := GetLogger()
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

type redactRule struct {
	match  func(key, value string) bool
	redact func(value string) string
}

// Order matters: the first matching rule wins.
var redactRules = []redactRule{
	{
		match:  func(key, _ string) bool { return strings.Contains(key, "password") },
		redact: func(string) string { return "[REDACTED]" },
	},
	{
		match: func(key, value string) bool {
			return strings.Contains(key, "email") || strings.Contains(value, "@")
		},
		redact: redactEmail,
	},
	{
		match: func(key, _ string) bool {
			return strings.Contains(key, "userid") || strings.Contains(key, "user_id") ||
				strings.Contains(key, "owner_id") || strings.Contains(key, "caller_id")
		},
		redact: hashUserID,
	},
	{
		match: func(key, _ string) bool {
			return strings.Contains(key, "session") || strings.Contains(key, "token")
		},
		redact: truncateID,
	},
	{
		match: func(key, _ string) bool {
			return strings.Contains(key, "address") || strings.Contains(key, "shipping_name")
		},
		redact: func(string) string { return "[REDACTED]" },
	},
}

func redactEmail(email string) string {
	if email == "" {
		return ""
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "****"
	}

	local, domain := parts[0], parts[1]
	if len(local) <= 2 {
		return "****@" + domain
	}
	return local[0:1] + "****" + local[len(local)-1:] + "@" + domain
}

func hashUserID(userID string) string {
	hash := sha256.Sum256([]byte(userID))
	return fmt.Sprintf("user_%x", hash[:4])
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:4] + "****"
}

func redactValue(key string, value interface{}) interface{} {
	keyLower := strings.ToLower(key)
	valueStr := fmt.Sprintf("%v", value)

	for _, rule := range redactRules {
		if rule.match(keyLower, valueStr) {
			return rule.redact(valueStr)
		}
	}
	return value
}

func (l *Logger) formatMessage(level LogLevel, msg string, keysAndValues ...interface{}) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("[%s] %s", level, msg))

	if len(keysAndValues) == 0 {
		return builder.String()
	}

	redact := !l.isDev || l.level > DEBUG

	builder.WriteString(" {")
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		var value interface{} = ""
		if i+1 < len(keysAndValues) {
			value = keysAndValues[i+1]
		}
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		if redact {
			value = redactValue(key, value)
		}
		builder.WriteString(fmt.Sprintf(" %s=%v", key, value))
	}
	builder.WriteString(" }")

	return builder.String()
}

func (l *Logger) log(level LogLevel, msg string, keysAndValues ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if level < l.level {
		return
	}
	l.out.Println(l.formatMessage(level, msg, keysAndValues...))
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(DEBUG, msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.log(INFO, msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(WARN, msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.log(ERROR, msg, keysAndValues...)
}

// Package-level convenience functions

func Debug(msg string, keysAndValues ...interface{}) {
	GetLogger().Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...interface{}) {
	GetLogger().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...interface{}) {
	GetLogger().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...interface{}) {
	GetLogger().Error(msg, keysAndValues...)
}

// ParseLevel converts a string to a LogLevel
func ParseLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}
