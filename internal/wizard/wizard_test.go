package wizard

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/verifier/internal/capture"
	"github.com/harrison/verifier/internal/display"
	"github.com/harrison/verifier/internal/executor"
	"github.com/harrison/verifier/internal/models"
	"github.com/harrison/verifier/internal/sampler"
	"github.com/harrison/verifier/internal/submission"
	"github.com/harrison/verifier/internal/validator"
)

var oneTask = []models.Task{{ID: "blink", Name: "Blink", Instruction: "Please blink both eyes slowly two times"}}

type harness struct {
	wizard *Wizard
	orch   *executor.Orchestrator
	camera *capture.SimulatedCamera
	out    *bytes.Buffer
}

type harnessConfig struct {
	catalog     []models.Task
	taskCount   int
	validate    validator.Func
	input       string
	interactive bool
	timeout     time.Duration
	lockDir     string
}

func newHarness(t *testing.T, hc harnessConfig) *harness {
	t.Helper()

	orch := executor.NewOrchestrator(executor.Options{
		Catalog:     hc.catalog,
		Sampler:     sampler.NewSeeded(42),
		GracePeriod: 5 * time.Millisecond,
	})
	t.Cleanup(orch.Close)

	lockDir := hc.lockDir
	if lockDir == "" {
		lockDir = t.TempDir()
	}
	cam := capture.NewSimulatedCamera(capture.SimulatedConfig{LockDir: lockDir, Width: 16, Height: 16})

	svc, err := submission.NewService(rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	out := &bytes.Buffer{}
	w := New(Options{
		Orchestrator:      orch,
		Camera:            cam,
		Validator:         hc.validate,
		Submitter:         svc,
		Screen:            display.NewScreen(out, false),
		Input:             strings.NewReader(hc.input),
		Interactive:       hc.interactive,
		TaskCount:         hc.taskCount,
		ValidationTimeout: hc.timeout,
	})
	return &harness{wizard: w, orch: orch, camera: cam, out: out}
}

func always(result bool) validator.Func {
	return func(ctx context.Context, taskID string) (bool, error) {
		return result, nil
	}
}

func testApplication() *models.Application {
	return &models.Application{Name: "Asha Verma", Mobile: "9876543210", IsNewApplication: true}
}

func TestHeadlessAllPass(t *testing.T) {
	h := newHarness(t, harnessConfig{validate: always(true)})

	result, err := h.wizard.Run(context.Background(), testApplication())
	require.NoError(t, err)
	require.NotNil(t, result.Receipt)

	v := result.Submission.Verdict
	assert.Equal(t, 3, v.Total)
	assert.Equal(t, 3, v.PassedCount)
	assert.True(t, v.Accepted)
	assert.Len(t, result.Submission.Results, 3)
	assert.Len(t, result.Receipt.ReferenceID, 11)
	assert.Equal(t, "New Registration", result.Receipt.Kind)

	for _, r := range result.Submission.Results {
		require.NotNil(t, r.Frame, "every attempt carries its frame")
		assert.Equal(t, "image/jpeg", r.Frame.MIMEType)
	}

	assert.Equal(t, 0, h.camera.Active(), "camera released")
	assert.Contains(t, h.out.String(), "Verification Complete!")
	assert.Contains(t, h.out.String(), "Application Submitted")
}

func TestHeadlessAlwaysFailSkipsEveryTask(t *testing.T) {
	h := newHarness(t, harnessConfig{validate: always(false)})

	result, err := h.wizard.Run(context.Background(), testApplication())
	require.NoError(t, err)

	v := result.Submission.Verdict
	assert.Equal(t, 0, v.PassedCount)
	assert.Equal(t, 3, v.SkippedCount)
	assert.True(t, v.AllResolved)
	assert.False(t, v.Accepted)
	assert.Len(t, result.Submission.Results, 9, "three failed attempts per task")
	require.NotNil(t, result.Receipt)
	assert.Contains(t, h.out.String(), "Task Skipped")
}

func TestHeadlessValidatorErrorCountsAsFailure(t *testing.T) {
	calls := 0
	validate := validator.Func(func(ctx context.Context, taskID string) (bool, error) {
		calls++
		if calls == 1 {
			return true, errors.New("model unavailable")
		}
		return true, nil
	})
	h := newHarness(t, harnessConfig{catalog: oneTask, validate: validate})

	result, err := h.wizard.Run(context.Background(), testApplication())
	require.NoError(t, err)

	require.Len(t, result.Submission.Results, 2)
	assert.False(t, result.Submission.Results[0].Completed)
	assert.True(t, result.Submission.Results[1].Completed)
}

func TestHeadlessValidationTimeout(t *testing.T) {
	blocking := validator.Func(func(ctx context.Context, taskID string) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})
	h := newHarness(t, harnessConfig{catalog: oneTask, validate: blocking, timeout: 5 * time.Millisecond})

	result, err := h.wizard.Run(context.Background(), testApplication())
	require.NoError(t, err)

	assert.Len(t, result.Submission.Results, executor.DefaultSkipThreshold)
	assert.Equal(t, 1, result.Submission.Verdict.SkippedCount)
}

func TestHeadlessLoadErrorRetriesOnce(t *testing.T) {
	h := newHarness(t, harnessConfig{catalog: []models.Task{}, validate: always(true)})

	_, err := h.wizard.Run(context.Background(), testApplication())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.ErrorIs(t, err, executor.ErrSamplingEmpty)
	assert.Equal(t, 2, strings.Count(h.out.String(), "Error Loading Tasks"))
	assert.Contains(t, h.out.String(), "Tasks Reset")
}

func TestHeadlessDeviceBusy(t *testing.T) {
	lockDir := t.TempDir()
	holder := capture.NewSimulatedCamera(capture.SimulatedConfig{LockDir: lockDir})
	held, err := holder.Acquire(context.Background())
	require.NoError(t, err)
	defer holder.Release(held)

	h := newHarness(t, harnessConfig{validate: always(true), lockDir: lockDir})

	_, err = h.wizard.Run(context.Background(), testApplication())
	require.Error(t, err)
	assert.True(t, capture.IsDeviceError(err))
	assert.ErrorIs(t, err, capture.ErrDeviceBusy)
	assert.Contains(t, h.out.String(), "Camera Unavailable")

	snap := h.orch.Snapshot()
	assert.Equal(t, models.PhaseInProgress, snap.Phase, "device errors leave task state untouched")
	assert.Empty(t, snap.Results)
}

// blindCamera acquires the device but never produces a frame.
type blindCamera struct {
	*capture.SimulatedCamera
}

func (blindCamera) Snapshot(capture.Handle) *models.Frame { return nil }

func TestHeadlessNoFrameStops(t *testing.T) {
	var validated atomic.Int32
	validate := validator.Func(func(ctx context.Context, taskID string) (bool, error) {
		validated.Add(1)
		return true, nil
	})
	h := newHarness(t, harnessConfig{catalog: oneTask, validate: validate})
	h.wizard.opts.Camera = blindCamera{h.camera}

	done := make(chan error, 1)
	go func() {
		_, err := h.wizard.Run(context.Background(), testApplication())
		done <- err
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("headless run did not stop without frames")
	}

	require.Error(t, err)
	assert.True(t, capture.IsDeviceError(err))
	assert.Contains(t, err.Error(), "no frame available")
	assert.Zero(t, validated.Load())
	assert.Empty(t, h.orch.Snapshot().Results)
	assert.Equal(t, 0, h.camera.Active(), "camera released")
}

func TestCancelDuringValidationReleasesCamera(t *testing.T) {
	started := make(chan struct{})
	var once atomic.Bool
	blocking := validator.Func(func(ctx context.Context, taskID string) (bool, error) {
		if once.CompareAndSwap(false, true) {
			close(started)
		}
		<-ctx.Done()
		return false, ctx.Err()
	})
	h := newHarness(t, harnessConfig{validate: blocking})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := h.wizard.Run(ctx, testApplication())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAborted)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 0, h.camera.Active(), "camera released on interruption")
	snap := h.orch.Snapshot()
	assert.False(t, snap.Busy, "in-flight ticket abandoned")
	assert.Empty(t, snap.Results, "abandoned attempt not recorded")
}

func TestInteractivePassAndSubmit(t *testing.T) {
	h := newHarness(t, harnessConfig{
		catalog:     oneTask,
		validate:    always(true),
		interactive: true,
		input:       "c\ne\nc\ny\n",
	})

	result, err := h.wizard.Run(context.Background(), testApplication())
	require.NoError(t, err)
	require.NotNil(t, result.Receipt)

	out := h.out.String()
	assert.Contains(t, out, "Enable the camera first")
	assert.Contains(t, out, "Camera enabled.")
	assert.Contains(t, out, "Verification successful!")
	assert.Contains(t, out, "Press y to submit")
	assert.Equal(t, 0, h.camera.Active())
}

func TestInteractiveSkipAfterThreshold(t *testing.T) {
	h := newHarness(t, harnessConfig{
		catalog:     oneTask,
		validate:    always(false),
		interactive: true,
		input:       "e\ns\nc\nc\nc\ns\ny\n",
	})

	result, err := h.wizard.Run(context.Background(), testApplication())
	require.NoError(t, err)

	out := h.out.String()
	assert.Contains(t, out, "Skip becomes available after repeated failed attempts.")
	assert.Contains(t, out, "[s] skip task")
	assert.Contains(t, out, "Task Skipped: Blink")
	assert.Equal(t, 1, result.Submission.Verdict.SkippedCount)
	assert.Len(t, result.Submission.Results, 3)
	require.NotNil(t, result.Receipt)
}

func TestInteractiveQuit(t *testing.T) {
	h := newHarness(t, harnessConfig{validate: always(true), interactive: true, input: "e\nq\n"})

	_, err := h.wizard.Run(context.Background(), testApplication())
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, 0, h.camera.Active())
}

func TestInteractiveEOFAborts(t *testing.T) {
	h := newHarness(t, harnessConfig{validate: always(true), interactive: true, input: ""})

	_, err := h.wizard.Run(context.Background(), testApplication())
	assert.ErrorIs(t, err, ErrAborted)
}

func TestInteractiveQuitAfterCompleteKeepsOutcome(t *testing.T) {
	h := newHarness(t, harnessConfig{catalog: oneTask, validate: always(true), interactive: true, input: "e\nc\nq\n"})

	result, err := h.wizard.Run(context.Background(), testApplication())
	assert.ErrorIs(t, err, ErrAborted)
	require.NotNil(t, result)
	assert.Nil(t, result.Receipt)
	assert.Equal(t, 1, result.Submission.Verdict.PassedCount)
}

func TestInteractiveResetGeneratesNewSession(t *testing.T) {
	h := newHarness(t, harnessConfig{validate: always(true), interactive: true, input: "r\nq\n"})

	_, err := h.wizard.Run(context.Background(), testApplication())
	assert.ErrorIs(t, err, ErrAborted)

	out := h.out.String()
	assert.Contains(t, out, "Tasks Reset")
	assert.Equal(t, 2, strings.Count(out, "Progress ["), "prompt rendered for both sessions")
}

func TestInteractiveCameraOff(t *testing.T) {
	h := newHarness(t, harnessConfig{catalog: oneTask, validate: always(true), interactive: true, input: "e\no\nc\nq\n"})

	_, err := h.wizard.Run(context.Background(), testApplication())
	assert.ErrorIs(t, err, ErrAborted)

	out := h.out.String()
	assert.Contains(t, out, "Camera turned off.")
	assert.Contains(t, out, "Enable the camera first")
	assert.Empty(t, h.orch.Snapshot().Results)
}

func TestInteractiveLoadErrorRetry(t *testing.T) {
	h := newHarness(t, harnessConfig{catalog: []models.Task{}, validate: always(true), interactive: true, input: "r\nq\n"})

	_, err := h.wizard.Run(context.Background(), testApplication())
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, 2, strings.Count(h.out.String(), "Error Loading Tasks"))
}

func TestInteractiveUnknownCommand(t *testing.T) {
	h := newHarness(t, harnessConfig{validate: always(true), interactive: true, input: "x\nq\n"})

	_, err := h.wizard.Run(context.Background(), testApplication())
	assert.ErrorIs(t, err, ErrAborted)
	assert.Contains(t, h.out.String(), `Unknown command "x".`)
}

func TestRunWithoutSubmitter(t *testing.T) {
	h := newHarness(t, harnessConfig{catalog: oneTask, validate: always(true)})
	h.wizard.opts.Submitter = nil

	result, err := h.wizard.Run(context.Background(), testApplication())
	require.NoError(t, err)
	assert.Nil(t, result.Receipt)
	assert.True(t, result.Submission.Verdict.Accepted)
}
