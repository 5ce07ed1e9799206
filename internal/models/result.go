package models

import "time"

// AttemptResult is one entry of the append-only attempt log. Exactly one is
// produced per verification attempt, pass or fail; a task retried three times
// has three entries.
type AttemptResult struct {
	TaskID    string    // Task the attempt was made for
	Completed bool      // True if the validator accepted the attempt
	Timestamp time.Time // When the outcome was recorded
	Frame     *Frame    // Still captured for the attempt (optional)
}

// Verdict is the folded outcome of a verification session.
type Verdict struct {
	Total        int  // Tasks in the sequence
	PassedCount  int  // Tasks with at least one passing attempt
	SkippedCount int  // Tasks skipped without ever passing
	AllResolved  bool // Every task passed or skipped
	Accepted     bool // AllResolved and the pass policy is met
}

// Frame is a single still image snapshotted from the live camera feed.
// Frames are owned by the AttemptResult that holds them and never mutated.
type Frame struct {
	ID         string
	CapturedAt time.Time
	Width      int
	Height     int
	MIMEType   string
	Data       []byte
}

// Size returns the encoded size of the frame in bytes.
func (f *Frame) Size() int {
	if f == nil {
		return 0
	}
	return len(f.Data)
}
