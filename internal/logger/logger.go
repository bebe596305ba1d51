package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
	PROGRESS
)

var (
	currentLevel = INFO
	verbose      = false

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	colorError   = color.New(color.FgRed, color.Bold)
	colorSuccess = color.New(color.FgGreen, color.Bold)
	colorWarning = color.New(color.FgYellow, color.Bold)
	colorInfo    = color.New(color.FgCyan, color.Bold)
	colorDebug   = color.New(color.FgHiBlack)
	colorHeader  = color.New(color.FgMagenta, color.Bold, color.Underline)
	colorValue   = color.New(color.FgHiGreen)
	colorKey     = color.New(color.FgBlue)
)

// SetLevel sets the global log level
func SetLevel(level LogLevel) {
	currentLevel = level
}

// SetVerbose enables verbose logging (DEBUG level)
func SetVerbose(enabled bool) {
	verbose = enabled
	if enabled {
		currentLevel = DEBUG
	} else if currentLevel == DEBUG {
		currentLevel = INFO
	}
}

// IsVerbose returns whether verbose logging is enabled
func IsVerbose() bool {
	return verbose
}

// SetOutput redirects normal and error output. Nil keeps the current writer.
func SetOutput(out, errOut io.Writer) {
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
}

// DisableColor turns off ANSI colors for every logger color.
func DisableColor() {
	color.NoColor = true
}

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case PROGRESS:
		return "PROGRESS"
	default:
		return "UNKNOWN"
	}
}

// GetColorFunc returns the color used for the level tag
func (l LogLevel) GetColorFunc() *color.Color {
	switch l {
	case DEBUG:
		return colorDebug
	case INFO:
		return colorInfo
	case WARNING:
		return colorWarning
	case ERROR:
		return colorError
	case PROGRESS:
		return colorInfo
	default:
		return color.New(color.Reset)
	}
}

// formatMessage creates a formatted log message with timestamp and level
func formatMessage(level LogLevel, message string, args ...interface{}) string {
	now := time.Now()
	timestamp := colorKey.Sprintf("%s", now.Format("15:04"))

	levelStr := level.GetColorFunc().Sprintf("%s", level.String())

	formattedMsg := message
	if len(args) > 0 {
		formattedMsg = fmt.Sprintf(message, args...)
	}

	return fmt.Sprintf("%s - %s : %s", timestamp, levelStr, formattedMsg)
}

func shouldLog(level LogLevel) bool {
	if level == PROGRESS {
		return true
	}
	return level >= currentLevel
}

// Debug logs a debug message (only visible with --verbose)
func Debug(message string, args ...interface{}) {
	if shouldLog(DEBUG) {
		fmt.Fprintln(stdout, formatMessage(DEBUG, message, args...))
	}
}

// Info logs an info message
func Info(message string, args ...interface{}) {
	if shouldLog(INFO) {
		fmt.Fprintln(stdout, formatMessage(INFO, message, args...))
	}
}

// Warning logs a warning message
func Warning(message string, args ...interface{}) {
	if shouldLog(WARNING) {
		fmt.Fprintln(stdout, formatMessage(WARNING, message, args...))
	}
}

// Error logs an error message to stderr
func Error(message string, args ...interface{}) {
	if shouldLog(ERROR) {
		fmt.Fprintln(stderr, formatMessage(ERROR, message, args...))
	}
}

// Progress logs a step marker. Always shown.
func Progress(message string, args ...interface{}) {
	fmt.Fprintln(stdout, formatMessage(PROGRESS, message, args...))
}

// Fatal logs an error and exits the program
func Fatal(message string, args ...interface{}) {
	Error(message, args...)
	os.Exit(1)
}

// Success logs an info line with the message in green
func Success(message string, args ...interface{}) {
	if shouldLog(INFO) {
		fmt.Fprintln(stdout, formatMessage(INFO, colorSuccess.Sprintf(message, args...)))
	}
}

// Header logs a section title
func Header(message string, args ...interface{}) {
	if shouldLog(INFO) {
		fmt.Fprintln(stdout, formatMessage(INFO, colorHeader.Sprintf(message, args...)))
	}
}

// Value logs a "key: value" line with highlighted key and value
func Value(key, format string, args ...interface{}) {
	if shouldLog(INFO) {
		line := colorKey.Sprint(key) + ": " + colorValue.Sprintf(format, args...)
		fmt.Fprintln(stdout, formatMessage(INFO, "%s", line))
	}
}

// Values logs a map as sorted key/value lines
func Values(values map[string]string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		Value(k, "%s", values[k])
	}
}

// DebugSystem logs system information (only in verbose mode)
func DebugSystem() {
	if !shouldLog(DEBUG) {
		return
	}

	Debug("System information:")
	Debug("  OS: %s", runtime.GOOS)
	Debug("  Architecture: %s", runtime.GOARCH)
	Debug("  Go version: %s", runtime.Version())
	Debug("  CPU count: %d", runtime.NumCPU())
}

// DebugConfig logs configuration details (only in verbose mode)
func DebugConfig(config interface{}) {
	if !shouldLog(DEBUG) {
		return
	}

	Debug("Configuration loaded:")
	Debug("  %+v", config)
}
