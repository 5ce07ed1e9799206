package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harrison/verifier/internal/models"
)

var seq = models.TaskSequence{{ID: "nod"}, {ID: "wink"}, {ID: "smile"}}

func TestFinalize(t *testing.T) {
	tests := []struct {
		name    string
		results []models.AttemptResult
		skipped map[string]bool
		want    models.Verdict
	}{
		{
			name:    "no attempts",
			results: nil,
			want:    models.Verdict{Total: 3},
		},
		{
			name: "all passed",
			results: []models.AttemptResult{
				{TaskID: "nod", Completed: true},
				{TaskID: "wink", Completed: true},
				{TaskID: "smile", Completed: true},
			},
			want: models.Verdict{Total: 3, PassedCount: 3, AllResolved: true, Accepted: true},
		},
		{
			name: "retries count once",
			results: []models.AttemptResult{
				{TaskID: "nod", Completed: false},
				{TaskID: "nod", Completed: true},
				{TaskID: "nod", Completed: true},
			},
			want: models.Verdict{Total: 3, PassedCount: 1},
		},
		{
			name: "skip resolves a task",
			results: []models.AttemptResult{
				{TaskID: "nod", Completed: false},
				{TaskID: "nod", Completed: false},
				{TaskID: "nod", Completed: false},
				{TaskID: "wink", Completed: true},
				{TaskID: "smile", Completed: true},
			},
			skipped: map[string]bool{"nod": true},
			want:    models.Verdict{Total: 3, PassedCount: 2, SkippedCount: 1, AllResolved: true, Accepted: true},
		},
		{
			name:    "everything skipped is resolved but not accepted",
			skipped: map[string]bool{"nod": true, "wink": true, "smile": true},
			want:    models.Verdict{Total: 3, SkippedCount: 3, AllResolved: true, Accepted: false},
		},
		{
			name: "foreign task ids are ignored",
			results: []models.AttemptResult{
				{TaskID: "blink", Completed: true},
			},
			skipped: map[string]bool{"head-up": true},
			want:    models.Verdict{Total: 3},
		},
		{
			name: "passed then skipped counts as passed",
			results: []models.AttemptResult{
				{TaskID: "nod", Completed: true},
			},
			skipped: map[string]bool{"nod": true},
			want:    models.Verdict{Total: 3, PassedCount: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Finalize(tt.results, seq, tt.skipped)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFinalizeEmptySequence(t *testing.T) {
	v := Finalize(nil, models.TaskSequence{}, nil)
	assert.False(t, v.AllResolved)
	assert.False(t, v.Accepted)
}

func TestMinPassedPolicy(t *testing.T) {
	results := []models.AttemptResult{{TaskID: "nod", Completed: true}}
	skipped := map[string]bool{"wink": true, "smile": true}

	assert.True(t, New(1).Finalize(results, seq, skipped).Accepted)
	assert.False(t, New(2).Finalize(results, seq, skipped).Accepted)
	assert.True(t, New(0).Finalize(nil, seq, map[string]bool{"nod": true, "wink": true, "smile": true}).Accepted)

	// Threshold is capped at the sequence length.
	single := models.TaskSequence{{ID: "nod"}}
	assert.True(t, New(3).Finalize(results, single, nil).Accepted)

	assert.Equal(t, 0, New(-4).MinPassed)
}

func TestAccepts(t *testing.T) {
	a := New(2)

	assert.True(t, a.Accepts(models.Verdict{Total: 3, PassedCount: 2, AllResolved: true}))
	assert.False(t, a.Accepts(models.Verdict{Total: 3, PassedCount: 2, AllResolved: false}))
	assert.False(t, a.Accepts(models.Verdict{Total: 3, PassedCount: 1, AllResolved: true}))
	assert.True(t, a.Accepts(models.Verdict{Total: 1, PassedCount: 1, AllResolved: true}))
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0.0, Progress(nil, models.TaskSequence{}))
	assert.Equal(t, 0.0, Progress(nil, seq))

	results := []models.AttemptResult{
		{TaskID: "nod", Completed: true},
		{TaskID: "nod", Completed: true},
		{TaskID: "wink", Completed: false},
	}
	assert.InDelta(t, 1.0/3.0, Progress(results, seq), 1e-9)
}
