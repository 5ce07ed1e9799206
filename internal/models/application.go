package models

import "time"

// Application is the applicant data produced by the form step. The
// verification core carries it opaquely from start to submission and never
// reads its fields.
type Application struct {
	Name             string `yaml:"name"`
	DateOfBirth      string `yaml:"dob"` // YYYY-MM-DD
	Gender           string `yaml:"gender"`
	Mobile           string `yaml:"mobile"`
	Email            string `yaml:"email"`
	Address          string `yaml:"address"`
	City             string `yaml:"city"`
	State            string `yaml:"state"`
	PostalCode       string `yaml:"pincode"`
	IsNewApplication bool   `yaml:"new_application"`
	ExistingID       string `yaml:"existing_id,omitempty"` // Required for updates
}

// Kind returns the human-readable application type.
func (a *Application) Kind() string {
	if a == nil || a.IsNewApplication {
		return "New Registration"
	}
	return "Update"
}

// Submission is what a completed session hands to the submission step.
type Submission struct {
	SessionID   string
	Application *Application
	Sequence    TaskSequence
	Results     []AttemptResult
	Verdict     Verdict
	CompletedAt time.Time
}

// Snapshot is a read-only copy of the orchestration state handed to
// presentation. Mutating it has no effect on the orchestrator.
type Snapshot struct {
	SessionID     string
	Phase         Phase
	Sequence      TaskSequence
	CurrentIndex  int
	Results       []AttemptResult
	AttemptCounts map[string]int
	Skipped       map[string]bool
	Busy          bool // A validation is outstanding for the current task
	Advancing     bool // A success was recorded and the advance is pending
	Progress      float64
}

// CurrentTask mirrors the orchestrator: the current task while in progress,
// the placeholder while loading and the zero Task otherwise.
func (s Snapshot) CurrentTask() Task {
	switch {
	case s.Phase == PhaseLoading:
		return LoadingTask
	case s.Phase == PhaseInProgress && s.CurrentIndex >= 0 && s.CurrentIndex < len(s.Sequence):
		return s.Sequence[s.CurrentIndex]
	default:
		return Task{}
	}
}

// Passed reports whether the task has at least one passing attempt.
func (s Snapshot) Passed(taskID string) bool {
	for _, r := range s.Results {
		if r.TaskID == taskID && r.Completed {
			return true
		}
	}
	return false
}

// Statuses returns the progress marker for every task in the sequence.
func (s Snapshot) Statuses() []TaskStatus {
	out := make([]TaskStatus, len(s.Sequence))
	for i, t := range s.Sequence {
		switch {
		case s.Passed(t.ID):
			out[i] = TaskPassed
		case s.Phase == PhaseInProgress && i == s.CurrentIndex:
			out[i] = TaskActive
		case s.Skipped[t.ID]:
			out[i] = TaskSkipped
		case s.AttemptCounts[t.ID] > 0:
			out[i] = TaskFailed
		default:
			out[i] = TaskPending
		}
	}
	return out
}
