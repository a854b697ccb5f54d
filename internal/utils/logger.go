package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Terminal color codes using ANSI escape sequences
const (
	ResetColor   = "\033[0m"
	RedColor     = "\033[31m" // errors
	GreenColor   = "\033[32m" // success
	YellowColor  = "\033[33m" // warnings
	BlueColor    = "\033[34m" // step start / info
	MagentaColor = "\033[35m" // emphasis
	CyanColor    = "\033[36m" // debug
)

// LogLevel represents the level of logging verbosity
type LogLevel int

const (
	// LevelQuiet suppresses all output except errors
	LevelQuiet LogLevel = iota
	// LevelNormal shows standard pipeline progress
	LevelNormal
	// LevelVerbose shows each ffmpeg step and chapter
	LevelVerbose
	// LevelDebug shows full command lines
	LevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LevelQuiet:
		return "quiet"
	case LevelVerbose:
		return "verbose"
	case LevelDebug:
		return "debug"
	default:
		return "normal"
	}
}

var (
	// CurrentLogLevel is the global log level setting
	CurrentLogLevel LogLevel = LevelNormal

	// chapter workers log concurrently; keep lines whole
	logMu     sync.Mutex
	stdoutLog io.Writer = os.Stdout
	stderrLog io.Writer = os.Stderr
	useColor            = true
)

// SetLogLevel sets the global logging level
func SetLogLevel(level LogLevel) {
	logMu.Lock()
	defer logMu.Unlock()
	CurrentLogLevel = level
}

// SetLogOutput redirects log output and returns a function restoring the
// previous writers. Color is disabled while redirected.
func SetLogOutput(stdout, stderr io.Writer) func() {
	logMu.Lock()
	defer logMu.Unlock()
	prevOut, prevErr, prevColor := stdoutLog, stderrLog, useColor
	stdoutLog, stderrLog, useColor = stdout, stderr, false
	return func() {
		logMu.Lock()
		defer logMu.Unlock()
		stdoutLog, stderrLog, useColor = prevOut, prevErr, prevColor
	}
}

// LogLevelFromString converts a string level name to LogLevel
func LogLevelFromString(level string) LogLevel {
	switch strings.ToLower(level) {
	case "quiet", "q":
		return LevelQuiet
	case "normal", "n":
		return LevelNormal
	case "verbose", "v":
		return LevelVerbose
	case "debug", "d":
		return LevelDebug
	default:
		return LevelNormal
	}
}

// ColoredText wraps text with color codes and reset at the end
func ColoredText(text string, color string) string {
	return color + text + ResetColor
}

func logf(w io.Writer, min LogLevel, prefix, color, format string, args ...interface{}) {
	logMu.Lock()
	defer logMu.Unlock()
	if CurrentLogLevel < min {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if useColor {
		msg = ColoredText(msg, color)
	}
	fmt.Fprintf(w, "%s%s\n", prefix, msg)
}

// LogError logs an error message (always shown)
func LogError(format string, args ...interface{}) {
	logf(stderrLog, LevelQuiet, "", RedColor, format, args...)
}

// LogInfo logs an informational message at Normal+ level
func LogInfo(format string, args ...interface{}) {
	logf(stdoutLog, LevelNormal, "", BlueColor, format, args...)
}

// LogSuccess logs a success message at Normal+ level
func LogSuccess(format string, args ...interface{}) {
	logf(stdoutLog, LevelNormal, "", GreenColor, format, args...)
}

// LogWarning logs a warning message at Normal+ level
func LogWarning(format string, args ...interface{}) {
	logf(stdoutLog, LevelNormal, "", YellowColor, format, args...)
}

// LogVerbose logs a message at Verbose+ level
func LogVerbose(format string, args ...interface{}) {
	logf(stdoutLog, LevelVerbose, "\t", BlueColor, format, args...)
}

// LogDebug logs a debug message at Debug level
func LogDebug(format string, args ...interface{}) {
	logf(stdoutLog, LevelDebug, "\t", CyanColor, format, args...)
}
