package executor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/verifier/internal/aggregator"
	"github.com/harrison/verifier/internal/catalog"
	"github.com/harrison/verifier/internal/models"
	"github.com/harrison/verifier/internal/sampler"
)

const (
	// DefaultTaskCount is the number of tasks sampled per session.
	DefaultTaskCount = 3
	// DefaultSkipThreshold is the attempt count at which skipping unlocks.
	DefaultSkipThreshold = 3
	// DefaultGracePeriod is how long a success is shown before advancing.
	DefaultGracePeriod = 2 * time.Second
)

// Logger defines the interface for logging orchestrator progress and results.
// Calls are made while the orchestrator holds its lock, so implementations
// must not call back into the orchestrator.
type Logger interface {
	LogSessionStart(sessionID string, seq models.TaskSequence)
	LogLoadError(err error)
	LogAttempt(task models.Task, result models.AttemptResult, attempts int)
	LogSkip(task models.Task, attempts int)
	LogAdvance(from, to models.Task)
	LogComplete(verdict models.Verdict)
	LogIgnored(err error)
}

// Options configures an Orchestrator. Zero values select defaults.
type Options struct {
	Catalog       []models.Task    // Defaults to catalog.Default()
	Sampler       *sampler.Sampler // Defaults to a randomly seeded sampler
	Scheduler     Scheduler        // Defaults to RealScheduler
	Logger        Logger           // Optional
	SkipThreshold int              // Defaults to DefaultSkipThreshold
	GracePeriod   time.Duration    // Defaults to DefaultGracePeriod
	MinPassed     *int             // Pass threshold; nil selects aggregator.DefaultMinPassed
	Clock         func() time.Time // Defaults to time.Now
}

// Ticket identifies one in-flight verification attempt. It is issued by
// BeginAttempt and redeemed by Complete or Abandon.
type Ticket struct {
	ID        string
	SessionID string
	TaskID    string
}

// Orchestrator drives an applicant through a sampled sequence of liveness
// tasks. It owns the orchestration state exclusively: presentation reads
// Snapshots and sends intents (attempt outcomes, skip, reset) back in.
// Intents that violate a precondition are dropped and reported to the
// Logger, never returned as errors.
type Orchestrator struct {
	mu sync.Mutex

	catalog       []models.Task
	sampler       *sampler.Sampler
	scheduler     Scheduler
	logger        Logger
	aggregator    aggregator.Aggregator
	skipThreshold int
	gracePeriod   time.Duration
	clock         func() time.Time

	app           *models.Application
	sessionID     string
	phase         models.Phase
	sequence      models.TaskSequence
	currentIndex  int
	results       []models.AttemptResult
	attemptCounts map[string]int
	skipped       map[string]bool
	ticket        string // Outstanding ticket id; non-empty means busy
	pending       Timer  // Scheduled advance after a success
	completedAt   time.Time
	changed       chan struct{}
}

// NewOrchestrator creates an Orchestrator in the loading phase.
func NewOrchestrator(opts Options) *Orchestrator {
	minPassed := aggregator.DefaultMinPassed
	if opts.MinPassed != nil {
		minPassed = *opts.MinPassed
	}

	o := &Orchestrator{
		catalog:       opts.Catalog,
		sampler:       opts.Sampler,
		scheduler:     opts.Scheduler,
		logger:        opts.Logger,
		aggregator:    aggregator.New(minPassed),
		skipThreshold: opts.SkipThreshold,
		gracePeriod:   opts.GracePeriod,
		clock:         opts.Clock,
		phase:         models.PhaseLoading,
		attemptCounts: make(map[string]int),
		skipped:       make(map[string]bool),
		changed:       make(chan struct{}),
	}

	if o.catalog == nil {
		o.catalog = catalog.Default()
	}
	if o.sampler == nil {
		o.sampler = sampler.New(nil)
	}
	if o.scheduler == nil {
		o.scheduler = RealScheduler{}
	}
	if o.skipThreshold <= 0 {
		o.skipThreshold = DefaultSkipThreshold
	}
	if o.gracePeriod <= 0 {
		o.gracePeriod = DefaultGracePeriod
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	return o
}

// Start samples n tasks and begins a new session for app. An empty sample
// moves the session to the load-error phase. Any previous session state,
// including a pending advance, is discarded.
func (o *Orchestrator) Start(app *models.Application, n int) models.Phase {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.app = app
	return o.startLocked(n)
}

// Reset discards the current session and starts a new one for the same
// application. It is legal from any phase.
func (o *Orchestrator) Reset(n int) models.Phase {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.startLocked(n)
}

func (o *Orchestrator) startLocked(n int) models.Phase {
	if o.pending != nil {
		o.pending.Stop()
		o.pending = nil
	}

	o.sessionID = uuid.New().String()
	o.sequence = o.sampler.Sample(o.catalog, n)
	o.currentIndex = 0
	o.results = nil
	o.attemptCounts = make(map[string]int)
	o.skipped = make(map[string]bool)
	o.ticket = ""
	o.completedAt = time.Time{}

	if o.sequence.Len() == 0 {
		o.phase = models.PhaseLoadError
		o.log(func(l Logger) { l.LogLoadError(ErrSamplingEmpty) })
	} else {
		o.phase = models.PhaseInProgress
		seq := o.sequence.Clone()
		sid := o.sessionID
		o.log(func(l Logger) { l.LogSessionStart(sid, seq) })
	}

	o.notifyLocked()
	return o.phase
}

// Phase returns the current lifecycle phase.
func (o *Orchestrator) Phase() models.Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// SessionID returns the identity of the current session.
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// CurrentTask returns the task the applicant is working on while in
// progress and the loading placeholder while loading. In any other phase it
// returns the zero Task; callers must check Phase first.
func (o *Orchestrator) CurrentTask() models.Task {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentTaskLocked()
}

func (o *Orchestrator) currentTaskLocked() models.Task {
	switch o.phase {
	case models.PhaseLoading:
		return models.LoadingTask
	case models.PhaseInProgress:
		return o.sequence[o.currentIndex]
	default:
		return models.Task{}
	}
}

// RecordAttempt appends the outcome of one verification attempt for the
// current task. A success schedules the advance to the next task after the
// grace period. A failure leaves the task current so it can be retried or,
// once the skip threshold is reached, skipped. It returns false if the
// attempt was ignored as stale.
func (o *Orchestrator) RecordAttempt(taskID string, success bool, frame *models.Frame) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ticket != "" {
		o.ignoreLocked("attempt", taskID, ErrBusy)
		return false
	}
	return o.recordLocked(taskID, success, frame)
}

func (o *Orchestrator) recordLocked(taskID string, success bool, frame *models.Frame) bool {
	if o.phase != models.PhaseInProgress {
		o.ignoreLocked("attempt", taskID, ErrWrongPhase)
		return false
	}
	if o.pending != nil {
		o.ignoreLocked("attempt", taskID, ErrBusy)
		return false
	}
	task := o.sequence[o.currentIndex]
	if taskID != task.ID {
		o.ignoreLocked("attempt", taskID, ErrStaleAttempt)
		return false
	}

	result := models.AttemptResult{
		TaskID:    taskID,
		Completed: success,
		Timestamp: o.clock(),
		Frame:     frame,
	}
	o.results = append(o.results, result)
	o.attemptCounts[taskID]++
	attempts := o.attemptCounts[taskID]
	o.log(func(l Logger) { l.LogAttempt(task, result, attempts) })

	if success {
		sid, idx := o.sessionID, o.currentIndex
		o.pending = o.scheduler.AfterFunc(o.gracePeriod, func() {
			o.fireAdvance(sid, idx)
		})
	}

	o.notifyLocked()
	return true
}

// fireAdvance runs when the grace period after a success elapses. It is
// discarded if the session or position it was scheduled for is gone.
func (o *Orchestrator) fireAdvance(sessionID string, index int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if sessionID != o.sessionID || o.phase != models.PhaseInProgress || index != o.currentIndex {
		o.ignoreLocked("advance", "", ErrStaleAttempt)
		return
	}
	o.pending = nil
	o.advanceLocked()
	o.notifyLocked()
}

// advanceLocked moves to the next task or completes the sequence.
func (o *Orchestrator) advanceLocked() {
	from := o.sequence[o.currentIndex]
	o.currentIndex++

	if o.currentIndex >= o.sequence.Len() {
		o.phase = models.PhaseAllComplete
		o.completedAt = o.clock()
		verdict := o.verdictLocked()
		o.log(func(l Logger) { l.LogComplete(verdict) })
		return
	}

	to := o.sequence[o.currentIndex]
	o.log(func(l Logger) { l.LogAdvance(from, to) })
}

// Skip abandons the current task once it has been attempted at least the
// skip threshold times. The task stays unpassed for scoring and its attempt
// count is kept. It returns false if the skip was ignored.
func (o *Orchestrator) Skip() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase != models.PhaseInProgress {
		o.ignoreLocked("skip", "", ErrWrongPhase)
		return false
	}
	task := o.sequence[o.currentIndex]
	if o.ticket != "" || o.pending != nil {
		o.ignoreLocked("skip", task.ID, ErrBusy)
		return false
	}
	attempts := o.attemptCounts[task.ID]
	if attempts < o.skipThreshold {
		o.ignoreLocked("skip", task.ID, ErrSkipNotAllowed)
		return false
	}

	o.skipped[task.ID] = true
	o.log(func(l Logger) { l.LogSkip(task, attempts) })
	o.advanceLocked()
	o.notifyLocked()
	return true
}

// CanSkip reports whether Skip would currently be accepted.
func (o *Orchestrator) CanSkip() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase != models.PhaseInProgress || o.ticket != "" || o.pending != nil {
		return false
	}
	return o.attemptCounts[o.sequence[o.currentIndex].ID] >= o.skipThreshold
}

// BeginAttempt marks a validation as outstanding for the current task and
// returns the ticket that must be redeemed with Complete or Abandon. It is
// refused while another validation is outstanding, while an advance is
// pending, or for a task that is not current.
func (o *Orchestrator) BeginAttempt(taskID string) (Ticket, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase != models.PhaseInProgress {
		o.ignoreLocked("begin", taskID, ErrWrongPhase)
		return Ticket{}, false
	}
	if o.ticket != "" || o.pending != nil {
		o.ignoreLocked("begin", taskID, ErrBusy)
		return Ticket{}, false
	}
	if taskID != o.sequence[o.currentIndex].ID {
		o.ignoreLocked("begin", taskID, ErrStaleAttempt)
		return Ticket{}, false
	}

	t := Ticket{ID: uuid.New().String(), SessionID: o.sessionID, TaskID: taskID}
	o.ticket = t.ID
	o.notifyLocked()
	return t, true
}

// Complete redeems a ticket with the validator's outcome. A ticket from a
// previous session or one already redeemed is ignored, even if the current
// task happens to have the same id.
func (o *Orchestrator) Complete(t Ticket, success bool, frame *models.Frame) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if t.ID == "" || t.ID != o.ticket || t.SessionID != o.sessionID {
		o.ignoreLocked("complete", t.TaskID, ErrStaleAttempt)
		return false
	}
	o.ticket = ""
	return o.recordLocked(t.TaskID, success, frame)
}

// Abandon releases a ticket without recording an attempt, e.g. when the
// applicant quits while a validation is in flight.
func (o *Orchestrator) Abandon(t Ticket) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if t.ID == "" || t.ID != o.ticket {
		return false
	}
	o.ticket = ""
	o.notifyLocked()
	return true
}

// ProgressFraction returns passed tasks over sequence length; zero while
// loading or for an empty sequence.
func (o *Orchestrator) ProgressFraction() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase == models.PhaseLoading {
		return 0
	}
	return aggregator.Progress(o.results, o.sequence)
}

// AttemptCount returns the number of attempts recorded for taskID.
func (o *Orchestrator) AttemptCount(taskID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attemptCounts[taskID]
}

// LastStatus returns the outcome of the most recent attempt for taskID.
// ok is false if the task has not been attempted in this session.
func (o *Orchestrator) LastStatus(taskID string) (completed bool, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := len(o.results) - 1; i >= 0; i-- {
		if o.results[i].TaskID == taskID {
			return o.results[i].Completed, true
		}
	}
	return false, false
}

// Verdict folds the current attempt log into a verdict.
func (o *Orchestrator) Verdict() models.Verdict {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.verdictLocked()
}

// verdictLocked folds the log and ties AllResolved to the phase, so a
// success still inside its grace period does not resolve the session.
func (o *Orchestrator) verdictLocked() models.Verdict {
	v := o.aggregator.Finalize(o.results, o.sequence, o.skipped)
	v.AllResolved = v.AllResolved && o.phase == models.PhaseAllComplete
	v.Accepted = o.aggregator.Accepts(v)
	return v
}

// Outcome returns the submission for a completed session.
func (o *Orchestrator) Outcome() (models.Submission, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase != models.PhaseAllComplete {
		return models.Submission{}, ErrNotComplete
	}
	return models.Submission{
		SessionID:   o.sessionID,
		Application: o.app,
		Sequence:    o.sequence.Clone(),
		Results:     append([]models.AttemptResult(nil), o.results...),
		Verdict:     o.verdictLocked(),
		CompletedAt: o.completedAt,
	}, nil
}

// Snapshot returns a copy of the orchestration state.
func (o *Orchestrator) Snapshot() models.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	counts := make(map[string]int, len(o.attemptCounts))
	for k, v := range o.attemptCounts {
		counts[k] = v
	}
	skipped := make(map[string]bool, len(o.skipped))
	for k, v := range o.skipped {
		skipped[k] = v
	}

	var progress float64
	if o.phase != models.PhaseLoading {
		progress = aggregator.Progress(o.results, o.sequence)
	}

	return models.Snapshot{
		SessionID:     o.sessionID,
		Phase:         o.phase,
		Sequence:      o.sequence.Clone(),
		CurrentIndex:  o.currentIndex,
		Results:       append([]models.AttemptResult(nil), o.results...),
		AttemptCounts: counts,
		Skipped:       skipped,
		Busy:          o.ticket != "",
		Advancing:     o.pending != nil,
		Progress:      progress,
	}
}

// Changed returns a channel that is closed at the next state transition.
// Call it again after it fires to wait for the following one.
func (o *Orchestrator) Changed() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.changed
}

// Close stops any pending advance. The orchestrator must not be used after.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending != nil {
		o.pending.Stop()
		o.pending = nil
	}
}

func (o *Orchestrator) notifyLocked() {
	close(o.changed)
	o.changed = make(chan struct{})
}

func (o *Orchestrator) ignoreLocked(intent, taskID string, err error) {
	ignored := newIgnored(intent, taskID, err)
	o.log(func(l Logger) { l.LogIgnored(ignored) })
}

func (o *Orchestrator) log(fn func(Logger)) {
	if o.logger != nil {
		fn(o.logger)
	}
}
