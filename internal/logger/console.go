// Package logger provides logging implementations for verification sessions.
//
// The logger package records orchestrator events (session start, attempts,
// skips, advances, completion) at configurable levels. Implementations are
// thread-safe and support various output destinations (console, file, etc.).
// Captured image bytes are never written; frames are identified by id and
// size only.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/harrison/verifier/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs verification progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// It supports log level filtering to control message verbosity.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer       io.Writer
	logLevel     string
	mutex        sync.Mutex
	colorOutput  bool
	sessionStart time.Time
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		// NO_COLOR and non-TTY output both set color.NoColor
		return !color.NoColor
	}
	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if IsValidLevel(normalized) {
		return normalized
	}
	return "info"
}

// IsValidLevel reports whether level is one of trace, debug, info, warn, error.
func IsValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "error":
		return true
	}
	return false
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message.
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	cl.writeLocked(level, message)
}

func (cl *ConsoleLogger) writeLocked(level, message string) {
	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}
	cl.writer.Write([]byte(formatted))
}

// formatWithColor formats a log message with ANSI color codes.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string

	switch strings.ToUpper(level) {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}

	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// LogSessionStart logs the sampled sequence at INFO level.
// Format: "[HH:MM:SS] [INFO] Session 1a2b3c4d started: 3 tasks (blink, smile, nod)"
func (cl *ConsoleLogger) LogSessionStart(sessionID string, seq models.TaskSequence) {
	cl.mutex.Lock()
	cl.sessionStart = time.Now()
	cl.mutex.Unlock()

	cl.LogInfo(formatSessionStart(sessionID, seq))
}

// LogLoadError logs a failed sampling at ERROR level.
func (cl *ConsoleLogger) LogLoadError(err error) {
	cl.LogError(fmt.Sprintf("Error loading tasks: %v", err))
}

// LogAttempt logs one verification outcome at INFO level.
// Format: "[HH:MM:SS] [INFO] Blink attempt 2: PASSED (frame 1a2b3c4d, 12.3 KB)"
func (cl *ConsoleLogger) LogAttempt(task models.Task, result models.AttemptResult, attempts int) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	status := "FAILED"
	if result.Completed {
		status = "PASSED"
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	if cl.colorOutput {
		if result.Completed {
			status = color.New(color.FgGreen, color.Bold).Sprint(status)
		} else {
			status = color.New(color.FgRed).Sprint(status)
		}
	}
	cl.writeLocked("INFO", fmt.Sprintf("%s attempt %d: %s%s", task.Name, attempts, status, formatFrame(result.Frame)))
}

// LogSkip logs a skipped task at WARN level.
func (cl *ConsoleLogger) LogSkip(task models.Task, attempts int) {
	cl.LogWarn(fmt.Sprintf("Skipped %s after %d attempts", task.Name, attempts))
}

// LogAdvance logs the move to the next task at DEBUG level.
func (cl *ConsoleLogger) LogAdvance(from, to models.Task) {
	cl.LogDebug(fmt.Sprintf("Advancing from %s to %s", from.Name, to.Name))
}

// LogComplete logs the session verdict at INFO level.
// Format: "[HH:MM:SS] [INFO] Verification complete: 2/3 passed, 1 skipped, accepted (45s)"
func (cl *ConsoleLogger) LogComplete(verdict models.Verdict) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	outcome := "rejected"
	if verdict.Accepted {
		outcome = "accepted"
	}
	if cl.colorOutput {
		if verdict.Accepted {
			outcome = color.New(color.FgGreen, color.Bold).Sprint(outcome)
		} else {
			outcome = color.New(color.FgRed, color.Bold).Sprint(outcome)
		}
	}

	var elapsed string
	if !cl.sessionStart.IsZero() {
		elapsed = fmt.Sprintf(" (%s)", formatDuration(time.Since(cl.sessionStart)))
	}
	cl.writeLocked("INFO", fmt.Sprintf("Verification complete: %d/%d passed, %d skipped, %s%s",
		verdict.PassedCount, verdict.Total, verdict.SkippedCount, outcome, elapsed))
}

// LogIgnored logs a dropped intent at DEBUG level.
func (cl *ConsoleLogger) LogIgnored(err error) {
	cl.LogDebug(fmt.Sprintf("Ignored: %v", err))
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatSessionStart(sessionID string, seq models.TaskSequence) string {
	return fmt.Sprintf("Session %s started: %d tasks (%s)", shortID(sessionID), seq.Len(), strings.Join(seq.IDs(), ", "))
}

// formatFrame describes a frame without its bytes.
func formatFrame(f *models.Frame) string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf(" (frame %s, %s)", shortID(f.ID), formatBytes(f.Size()))
}

// formatBytes converts a byte count to a human-readable string.
// Examples: "512 B", "12.3 KB", "1.5 MB"
func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}
