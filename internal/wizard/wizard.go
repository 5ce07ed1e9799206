// Package wizard is the presentation layer of a verification session. It
// renders orchestrator snapshots, turns applicant commands into orchestrator
// intents, owns the camera handle and runs the validator.
package wizard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/harrison/verifier/internal/capture"
	"github.com/harrison/verifier/internal/display"
	"github.com/harrison/verifier/internal/executor"
	"github.com/harrison/verifier/internal/logger"
	"github.com/harrison/verifier/internal/models"
	"github.com/harrison/verifier/internal/submission"
	"github.com/harrison/verifier/internal/validator"
)

var (
	// ErrAborted means the applicant quit or the session was interrupted.
	ErrAborted = errors.New("verification aborted")
	// ErrLoadFailed means tasks could not be generated even after a retry.
	ErrLoadFailed = errors.New("verification tasks unavailable")
)

// Submitter hands a completed session to the registry.
type Submitter interface {
	Submit(ctx context.Context, sub models.Submission) (*submission.Receipt, error)
}

// Options configures a Wizard.
type Options struct {
	Orchestrator *executor.Orchestrator
	Camera       capture.Capturer
	Validator    validator.Validator
	Submitter    Submitter
	Screen       *display.Screen
	Logger       logger.Logger // Optional

	// Input carries interactive commands, one per line
	Input       io.Reader
	Interactive bool

	TaskCount         int
	ValidationTimeout time.Duration // Zero means no timeout
}

// Result is the outcome of a finished session.
type Result struct {
	Submission models.Submission
	Receipt    *submission.Receipt // Nil if the applicant did not submit
}

// Wizard drives one applicant through verification.
type Wizard struct {
	opts   Options
	orch   *executor.Orchestrator
	screen *display.Screen
	log    logger.Logger
	handle capture.Handle
}

// New creates a Wizard.
func New(opts Options) *Wizard {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if opts.TaskCount == 0 {
		opts.TaskCount = executor.DefaultTaskCount
	}
	return &Wizard{
		opts:   opts,
		orch:   opts.Orchestrator,
		screen: opts.Screen,
		log:    log,
	}
}

// Run starts a session for app and drives it to submission. The camera is
// released before Run returns on every path.
func (w *Wizard) Run(ctx context.Context, app *models.Application) (*Result, error) {
	defer w.releaseCamera()

	w.screen.Loading()
	w.orch.Start(app, w.opts.TaskCount)

	if w.opts.Interactive {
		return w.runInteractive(ctx)
	}
	return w.runHeadless(ctx)
}

func (w *Wizard) runInteractive(ctx context.Context) (*Result, error) {
	lines := readLines(ctx, w.opts.Input)

	next := func() (string, error) {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
		case line, ok := <-lines:
			if !ok {
				return "", ErrAborted
			}
			return line, nil
		}
	}

	for {
		snap := w.orch.Snapshot()

		switch snap.Phase {
		case models.PhaseLoadError:
			w.screen.LoadError()
			cmd, err := next()
			if err != nil {
				return nil, err
			}
			switch cmd {
			case "r":
				w.reset()
			case "q":
				return nil, ErrAborted
			}

		case models.PhaseAllComplete:
			sub, err := w.orch.Outcome()
			if err != nil {
				return nil, err
			}
			w.screen.Progress(snap)
			w.screen.Complete(sub.Verdict, true)
			cmd, err := next()
			if err != nil {
				return &Result{Submission: sub}, err
			}
			switch cmd {
			case "y":
				return w.submit(ctx, sub)
			case "q":
				return &Result{Submission: sub}, ErrAborted
			}

		case models.PhaseInProgress:
			task := snap.CurrentTask()
			w.screen.Progress(snap)
			w.screen.TaskPrompt(task, snap.AttemptCounts[task.ID], w.handle != nil, w.orch.CanSkip())

			cmd, err := next()
			if err != nil {
				return nil, err
			}
			if err := w.dispatch(ctx, cmd, task); err != nil {
				return nil, err
			}

		default:
			w.screen.Loading()
			if err := w.waitChange(ctx, notLoading); err != nil {
				return nil, err
			}
		}
	}
}

func (w *Wizard) dispatch(ctx context.Context, cmd string, task models.Task) error {
	switch cmd {
	case "e":
		w.enableCamera(ctx)
	case "o":
		w.releaseCamera()
		w.screen.CameraState(false)
	case "c":
		if w.handle == nil {
			w.screen.Message("Enable the camera first (press e).")
			return nil
		}
		return w.attempt(ctx, task)
	case "s":
		if w.orch.Skip() {
			w.screen.Skipped(task)
		} else {
			w.screen.Message("Skip becomes available after repeated failed attempts.")
		}
	case "r":
		w.reset()
	case "q":
		return ErrAborted
	case "":
	default:
		w.screen.Message(fmt.Sprintf("Unknown command %q.", cmd))
	}
	return nil
}

func (w *Wizard) runHeadless(ctx context.Context) (*Result, error) {
	resets := 0
	shown := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAborted, err)
		}

		snap := w.orch.Snapshot()

		switch snap.Phase {
		case models.PhaseLoadError:
			w.screen.LoadError()
			if resets >= 1 {
				return nil, fmt.Errorf("%w: %w", ErrLoadFailed, executor.ErrSamplingEmpty)
			}
			resets++
			w.reset()

		case models.PhaseAllComplete:
			sub, err := w.orch.Outcome()
			if err != nil {
				return nil, err
			}
			w.screen.Progress(snap)
			w.screen.Complete(sub.Verdict, false)
			return w.submit(ctx, sub)

		case models.PhaseInProgress:
			if w.handle == nil {
				if err := w.enableCamera(ctx); err != nil {
					return nil, err
				}
			}

			task := snap.CurrentTask()
			if key := fmt.Sprintf("%s/%d", snap.SessionID, snap.CurrentIndex); key != shown {
				shown = key
				w.screen.Progress(snap)
				w.screen.Task(task, snap.AttemptCounts[task.ID])
			}

			if w.orch.CanSkip() {
				if w.orch.Skip() {
					w.screen.Skipped(task)
				}
				continue
			}
			if err := w.attempt(ctx, task); err != nil {
				return nil, err
			}

		default:
			if err := w.waitChange(ctx, notLoading); err != nil {
				return nil, err
			}
		}
	}
}

// attempt captures a frame, validates it and records the outcome. A
// success waits out the grace period so the next prompt shows the next task.
func (w *Wizard) attempt(ctx context.Context, task models.Task) error {
	frame := w.opts.Camera.Snapshot(w.handle)
	if frame == nil {
		err := &capture.DeviceError{Device: w.handle.Device(), Reason: "no frame available"}
		w.log.LogWarn(err.Error())
		w.screen.DeviceError(err)
		if !w.opts.Interactive {
			return err
		}
		return nil
	}

	ticket, ok := w.orch.BeginAttempt(task.ID)
	if !ok {
		return nil
	}

	w.screen.Verifying(task)
	passed, err := w.validate(ctx, task.ID)
	if ctx.Err() != nil {
		w.orch.Abandon(ticket)
		return fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
	}
	if err != nil {
		w.log.LogWarn(fmt.Sprintf("Validation of %s failed: %v", task.ID, err))
		passed = false
	}

	if !w.orch.Complete(ticket, passed, frame) {
		return nil
	}
	w.screen.AttemptOverlay(passed)

	if passed {
		session := w.orch.SessionID()
		return w.waitChange(ctx, func(s models.Snapshot) bool {
			return !s.Advancing || s.SessionID != session
		})
	}
	return nil
}

func (w *Wizard) validate(ctx context.Context, taskID string) (bool, error) {
	vctx := ctx
	if w.opts.ValidationTimeout > 0 {
		var cancel context.CancelFunc
		vctx, cancel = context.WithTimeout(ctx, w.opts.ValidationTimeout)
		defer cancel()
	}
	return w.opts.Validator.Validate(vctx, taskID)
}

// waitChange blocks until done reports true for the orchestrator state.
func (w *Wizard) waitChange(ctx context.Context, done func(models.Snapshot) bool) error {
	for {
		ch := w.orch.Changed()
		if done(w.orch.Snapshot()) {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
		}
	}
}

func notLoading(s models.Snapshot) bool {
	return s.Phase != models.PhaseLoading
}

func (w *Wizard) enableCamera(ctx context.Context) error {
	if w.handle != nil {
		return nil
	}
	h, err := w.opts.Camera.Acquire(ctx)
	if err != nil {
		w.log.LogWarn(fmt.Sprintf("Camera unavailable: %v", err))
		w.screen.DeviceError(err)
		return err
	}
	w.handle = h
	w.screen.CameraState(true)
	return nil
}

func (w *Wizard) releaseCamera() {
	if w.handle == nil {
		return
	}
	if err := w.opts.Camera.Release(w.handle); err != nil {
		w.log.LogWarn(fmt.Sprintf("Failed to release camera: %v", err))
	}
	w.handle = nil
}

func (w *Wizard) reset() {
	w.orch.Reset(w.opts.TaskCount)
	w.screen.TasksReset()
}

func (w *Wizard) submit(ctx context.Context, sub models.Submission) (*Result, error) {
	result := &Result{Submission: sub}
	if w.opts.Submitter == nil {
		return result, nil
	}

	receipt, err := w.opts.Submitter.Submit(ctx, sub)
	if err != nil {
		return result, fmt.Errorf("failed to submit application: %w", err)
	}
	result.Receipt = receipt
	w.log.LogInfo(fmt.Sprintf("Application %s submitted (%s)", receipt.ReferenceID, receipt.Kind))
	w.screen.Receipt(receipt)
	return result, nil
}

// readLines delivers trimmed, lower-cased input lines until EOF or ctx ends.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	if r == nil {
		close(out)
		return out
	}

	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.ToLower(strings.TrimSpace(scanner.Text()))
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
