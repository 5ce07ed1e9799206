package models

// Phase is the lifecycle stage of a verification session.
type Phase int

const (
	// PhaseLoading is the initial phase before a sequence has been sampled.
	PhaseLoading Phase = iota
	// PhaseInProgress means the applicant is working through the sequence.
	PhaseInProgress
	// PhaseAllComplete is terminal for a sequence; only a reset leaves it.
	PhaseAllComplete
	// PhaseLoadError means sampling produced no tasks.
	PhaseLoadError
)

// String returns the string representation of Phase.
func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseInProgress:
		return "in_progress"
	case PhaseAllComplete:
		return "all_complete"
	case PhaseLoadError:
		return "load_error"
	default:
		return "unknown"
	}
}

// TaskStatus is the per-task marker shown in the progress panel.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskActive  TaskStatus = "active"
	TaskPassed  TaskStatus = "passed"
	TaskFailed  TaskStatus = "failed"
	TaskSkipped TaskStatus = "skipped"
)
