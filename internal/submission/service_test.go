package submission

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/verifier/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(rand.New(rand.NewPCG(7, 11)))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func completedSubmission(sessionID string) models.Submission {
	ts := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	return models.Submission{
		SessionID: sessionID,
		Application: &models.Application{
			Name:             "Asha Verma",
			Mobile:           "9876543210",
			IsNewApplication: true,
		},
		Sequence: models.TaskSequence{{ID: "blink"}, {ID: "smile"}},
		Results: []models.AttemptResult{
			{TaskID: "blink", Completed: false, Timestamp: ts},
			{TaskID: "blink", Completed: true, Timestamp: ts.Add(time.Second),
				Frame: &models.Frame{ID: "frame-1", Data: []byte{1, 2, 3}}},
			{TaskID: "smile", Completed: true, Timestamp: ts.Add(2 * time.Second)},
		},
		Verdict: models.Verdict{Total: 2, PassedCount: 2, AllResolved: true, Accepted: true},
	}
}

func TestSubmitIssuesReceipt(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	receipt, err := svc.Submit(ctx, completedSubmission("s1"))
	require.NoError(t, err)

	assert.Len(t, receipt.ReferenceID, 11)
	id, err := strconv.ParseInt(receipt.ReferenceID, 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, id, MinReferenceID)
	assert.LessOrEqual(t, id, MaxReferenceID)

	assert.Equal(t, "New Registration", receipt.Kind)
	assert.Equal(t, "Asha Verma", receipt.Name)
	assert.Equal(t, "9876543210", receipt.Mobile)
	assert.True(t, receipt.Verdict.Accepted)
	assert.False(t, receipt.SubmittedAt.IsZero())

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSubmitStoresAttemptsWithoutImageBytes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	receipt, err := svc.Submit(ctx, completedSubmission("s1"))
	require.NoError(t, err)

	attempts, err := svc.Attempts(ctx, receipt.ReferenceID)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	assert.Equal(t, "blink", attempts[0].TaskID)
	assert.False(t, attempts[0].Completed)
	assert.Empty(t, attempts[0].FrameID)
	assert.Equal(t, "frame-1", attempts[1].FrameID)
	assert.Equal(t, 3, attempts[1].FrameBytes)
	assert.Equal(t, "smile", attempts[2].TaskID)
}

func TestSubmitUpdateKind(t *testing.T) {
	svc := newTestService(t)
	sub := completedSubmission("s1")
	sub.Application.IsNewApplication = false
	sub.Application.ExistingID = "123456789012"

	receipt, err := svc.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "Update", receipt.Kind)
}

func TestSubmitRejectsUnresolved(t *testing.T) {
	svc := newTestService(t)
	sub := completedSubmission("s1")
	sub.Verdict.AllResolved = false

	_, err := svc.Submit(context.Background(), sub)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolved))

	n, err := svc.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSubmitRejectsMissingApplication(t *testing.T) {
	svc := newTestService(t)
	sub := completedSubmission("s1")
	sub.Application = nil

	_, err := svc.Submit(context.Background(), sub)
	assert.ErrorIs(t, err, ErrNoApplication)
}

func TestSubmitRejectsDuplicateSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, completedSubmission("s1"))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, completedSubmission("s1"))
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestReferenceIDsAreUnique(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		receipt, err := svc.Submit(ctx, completedSubmission("s"+strconv.Itoa(i)))
		require.NoError(t, err)
		assert.False(t, seen[receipt.ReferenceID], "duplicate id %s", receipt.ReferenceID)
		seen[receipt.ReferenceID] = true
	}
}

func TestReferenceIDCollisionRetries(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.rng = rand.New(rand.NewPCG(1, 2))
	first, err := svc.Submit(ctx, completedSubmission("s1"))
	require.NoError(t, err)

	// Replay the same sequence so the first draw collides.
	svc.rng = rand.New(rand.NewPCG(1, 2))
	second, err := svc.Submit(ctx, completedSubmission("s2"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ReferenceID, second.ReferenceID)
}

func TestLookup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	receipt, err := svc.Submit(ctx, completedSubmission("s1"))
	require.NoError(t, err)

	got, err := svc.Lookup(ctx, receipt.ReferenceID)
	require.NoError(t, err)
	assert.Equal(t, receipt.Name, got.Name)
	assert.Equal(t, receipt.Kind, got.Kind)
	assert.Equal(t, 2, got.Verdict.PassedCount)
	assert.True(t, got.SubmittedAt.Equal(receipt.SubmittedAt))

	_, err = svc.Lookup(ctx, "00000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryIsPerService(t *testing.T) {
	a := newTestService(t)
	b := newTestService(t)
	ctx := context.Background()

	_, err := a.Submit(ctx, completedSubmission("s1"))
	require.NoError(t, err)

	n, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
