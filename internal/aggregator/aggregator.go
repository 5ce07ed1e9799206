// Package aggregator folds a session's attempt log into a final verdict.
package aggregator

import "github.com/harrison/verifier/internal/models"

// DefaultMinPassed is the pass threshold used when none is configured.
const DefaultMinPassed = 1

// Aggregator computes verdicts. It holds only policy, no session state.
type Aggregator struct {
	// MinPassed is the number of passed tasks required for acceptance,
	// capped at the sequence length. Zero accepts any resolved session.
	MinPassed int
}

// New returns an Aggregator with the given pass threshold.
func New(minPassed int) Aggregator {
	if minPassed < 0 {
		minPassed = 0
	}
	return Aggregator{MinPassed: minPassed}
}

// Finalize folds the attempt log over the sequence. A task counts as passed
// if any attempt for it completed, and as skipped if it appears in skipped
// without ever passing. Attempts for tasks outside the sequence are ignored.
func (a Aggregator) Finalize(results []models.AttemptResult, seq models.TaskSequence, skipped map[string]bool) models.Verdict {
	passed := make(map[string]bool, len(seq))
	for _, r := range results {
		if r.Completed && seq.Contains(r.TaskID) {
			passed[r.TaskID] = true
		}
	}

	verdict := models.Verdict{Total: seq.Len()}
	resolved := 0
	for _, task := range seq {
		switch {
		case passed[task.ID]:
			verdict.PassedCount++
			resolved++
		case skipped[task.ID]:
			verdict.SkippedCount++
			resolved++
		}
	}

	verdict.AllResolved = seq.Len() > 0 && resolved == seq.Len()
	verdict.Accepted = a.Accepts(verdict)
	return verdict
}

// Accepts applies the pass policy to a verdict: it must be resolved and
// carry at least MinPassed passed tasks, capped at the sequence length.
func (a Aggregator) Accepts(v models.Verdict) bool {
	return v.AllResolved && v.PassedCount >= min(a.MinPassed, v.Total)
}

// Finalize folds the log using DefaultMinPassed.
func Finalize(results []models.AttemptResult, seq models.TaskSequence, skipped map[string]bool) models.Verdict {
	return New(DefaultMinPassed).Finalize(results, seq, skipped)
}

// Progress returns the fraction of tasks in seq with at least one passing
// attempt. It is zero for an empty sequence.
func Progress(results []models.AttemptResult, seq models.TaskSequence) float64 {
	if seq.Len() == 0 {
		return 0
	}
	v := Finalize(results, seq, nil)
	return float64(v.PassedCount) / float64(seq.Len())
}
