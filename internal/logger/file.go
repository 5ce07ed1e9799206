package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/verifier/internal/models"
)

// DefaultLogDir is where run logs are written unless configured otherwise.
var DefaultLogDir = filepath.Join(".verifier", "logs")

// FileLogger logs orchestrator events to files in the log directory.
// It creates a timestamped per-run log file and maintains a latest.log
// symlink pointing to the most recent run.
// It is thread-safe and implements the executor.Logger interface.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger in DefaultLogDir at level "info".
func NewFileLogger() (*FileLogger, error) {
	return NewFileLoggerWithDirAndLevel(DefaultLogDir, "info")
}

// NewFileLoggerWithDirAndLevel creates a FileLogger with a custom log directory and log level.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Generate timestamped filename: run-YYYYMMDD-HHMMSS.log
	ts := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", ts))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== Verifier Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// RunFile returns the path of the current run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message.
func (fl *FileLogger) LogTrace(message string) { fl.logWithLevel("TRACE", message) }

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) { fl.logWithLevel("DEBUG", message) }

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) { fl.logWithLevel("INFO", message) }

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) { fl.logWithLevel("WARN", message) }

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) { fl.logWithLevel("ERROR", message) }

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), level, message))
}

// LogSessionStart records the session id and the full sampled sequence.
func (fl *FileLogger) LogSessionStart(sessionID string, seq models.TaskSequence) {
	if !fl.shouldLog("info") {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] === Session %s ===\n", time.Now().Format("2006-01-02 15:04:05"), sessionID))
	for i, t := range seq {
		sb.WriteString(fmt.Sprintf("  %d. %s (%s): %s\n", i+1, t.Name, t.ID, t.Instruction))
	}
	fl.writeRunLog(sb.String())
}

// LogLoadError logs a failed sampling.
func (fl *FileLogger) LogLoadError(err error) {
	fl.LogError(fmt.Sprintf("Error loading tasks: %v", err))
}

// LogAttempt logs one verification outcome with its frame metadata.
func (fl *FileLogger) LogAttempt(task models.Task, result models.AttemptResult, attempts int) {
	status := "FAILED"
	if result.Completed {
		status = "PASSED"
	}
	fl.LogInfo(fmt.Sprintf("%s (%s) attempt %d: %s at %s%s",
		task.Name, task.ID, attempts, status, result.Timestamp.Format(time.RFC3339), formatFrame(result.Frame)))
}

// LogSkip logs a skipped task.
func (fl *FileLogger) LogSkip(task models.Task, attempts int) {
	fl.LogWarn(fmt.Sprintf("Skipped %s (%s) after %d attempts", task.Name, task.ID, attempts))
}

// LogAdvance logs the move to the next task.
func (fl *FileLogger) LogAdvance(from, to models.Task) {
	fl.LogDebug(fmt.Sprintf("Advancing from %s to %s", from.ID, to.ID))
}

// LogComplete writes the verdict summary block.
func (fl *FileLogger) LogComplete(verdict models.Verdict) {
	if !fl.shouldLog("info") {
		return
	}

	var sb strings.Builder
	sb.WriteString("\n=== Verification Summary ===\n")
	sb.WriteString(fmt.Sprintf("Completed at: %s\n", time.Now().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Total tasks: %d\n", verdict.Total))
	sb.WriteString(fmt.Sprintf("Passed: %d\n", verdict.PassedCount))
	sb.WriteString(fmt.Sprintf("Skipped: %d\n", verdict.SkippedCount))
	sb.WriteString(fmt.Sprintf("All resolved: %t\n", verdict.AllResolved))
	sb.WriteString(fmt.Sprintf("Accepted: %t\n\n", verdict.Accepted))
	fl.writeRunLog(sb.String())
}

// LogIgnored logs a dropped intent.
func (fl *FileLogger) LogIgnored(err error) {
	fl.LogDebug(fmt.Sprintf("Ignored: %v", err))
}

// Close flushes and closes the run log file. It is safe to call more than once.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		// Flush after each write for real-time logging
		fl.runLog.Sync()
	}
}
