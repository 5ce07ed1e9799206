package executor

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrSamplingEmpty means sampling produced no tasks; the session is in
	// the load-error phase until reset.
	ErrSamplingEmpty = errors.New("could not generate verification tasks")

	// ErrStaleAttempt marks an intent that arrived for a task, ticket or
	// session that is no longer current.
	ErrStaleAttempt = errors.New("stale attempt")

	// ErrBusy marks an intent that arrived while a validation was outstanding
	// or a post-success advance was pending.
	ErrBusy = errors.New("verification in progress")

	// ErrSkipNotAllowed marks a skip requested before the attempt threshold.
	ErrSkipNotAllowed = errors.New("skip not allowed")

	// ErrWrongPhase marks an intent that is only valid while in progress.
	ErrWrongPhase = errors.New("session not in progress")

	// ErrNotComplete is returned by Outcome before the session completes.
	ErrNotComplete = errors.New("verification not complete")
)

// IgnoredIntent describes a presentation intent the orchestrator dropped.
// It is never returned to callers; it is handed to the Logger so races
// between timers and user input remain visible at debug level.
type IgnoredIntent struct {
	Intent    string    // "attempt", "skip", "begin", "complete", "advance"
	TaskID    string    // Task the intent referred to
	Err       error     // One of the sentinel errors above
	Timestamp time.Time // When the intent was dropped
}

func newIgnored(intent, taskID string, err error) *IgnoredIntent {
	return &IgnoredIntent{
		Intent:    intent,
		TaskID:    taskID,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for IgnoredIntent.
func (e *IgnoredIntent) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s ignored", e.Intent))
	if e.TaskID != "" {
		sb.WriteString(fmt.Sprintf(" for task %s", e.TaskID))
	}
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying sentinel for errors.Is support.
func (e *IgnoredIntent) Unwrap() error {
	return e.Err
}
