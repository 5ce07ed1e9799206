package logger

import "github.com/harrison/verifier/internal/models"

// Logger is implemented by every logger in this package: the orchestrator
// event methods plus free-form levelled messages.
type Logger interface {
	LogSessionStart(sessionID string, seq models.TaskSequence)
	LogLoadError(err error)
	LogAttempt(task models.Task, result models.AttemptResult, attempts int)
	LogSkip(task models.Task, attempts int)
	LogAdvance(from, to models.Task)
	LogComplete(verdict models.Verdict)
	LogIgnored(err error)

	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

// MultiLogger fans every call out to each of its loggers in order.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger combines loggers; nil entries are dropped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) LogSessionStart(sessionID string, seq models.TaskSequence) {
	for _, l := range m.loggers {
		l.LogSessionStart(sessionID, seq)
	}
}

func (m *MultiLogger) LogLoadError(err error) {
	for _, l := range m.loggers {
		l.LogLoadError(err)
	}
}

func (m *MultiLogger) LogAttempt(task models.Task, result models.AttemptResult, attempts int) {
	for _, l := range m.loggers {
		l.LogAttempt(task, result, attempts)
	}
}

func (m *MultiLogger) LogSkip(task models.Task, attempts int) {
	for _, l := range m.loggers {
		l.LogSkip(task, attempts)
	}
}

func (m *MultiLogger) LogAdvance(from, to models.Task) {
	for _, l := range m.loggers {
		l.LogAdvance(from, to)
	}
}

func (m *MultiLogger) LogComplete(verdict models.Verdict) {
	for _, l := range m.loggers {
		l.LogComplete(verdict)
	}
}

func (m *MultiLogger) LogIgnored(err error) {
	for _, l := range m.loggers {
		l.LogIgnored(err)
	}
}

func (m *MultiLogger) LogDebug(message string) {
	for _, l := range m.loggers {
		l.LogDebug(message)
	}
}

func (m *MultiLogger) LogInfo(message string) {
	for _, l := range m.loggers {
		l.LogInfo(message)
	}
}

func (m *MultiLogger) LogWarn(message string) {
	for _, l := range m.loggers {
		l.LogWarn(message)
	}
}

func (m *MultiLogger) LogError(message string) {
	for _, l := range m.loggers {
		l.LogError(message)
	}
}

// NoOpLogger is a Logger implementation that discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogSessionStart(sessionID string, seq models.TaskSequence)               {}
func (n *NoOpLogger) LogLoadError(err error)                                                  {}
func (n *NoOpLogger) LogAttempt(task models.Task, result models.AttemptResult, attempts int) {}
func (n *NoOpLogger) LogSkip(task models.Task, attempts int)                                  {}
func (n *NoOpLogger) LogAdvance(from, to models.Task)                                         {}
func (n *NoOpLogger) LogComplete(verdict models.Verdict)                                      {}
func (n *NoOpLogger) LogIgnored(err error)                                                    {}
func (n *NoOpLogger) LogDebug(message string)                                                 {}
func (n *NoOpLogger) LogInfo(message string)                                                  {}
func (n *NoOpLogger) LogWarn(message string)                                                  {}
func (n *NoOpLogger) LogError(message string)                                                 {}
