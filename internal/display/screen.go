package display

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/verifier/internal/capture"
	"github.com/harrison/verifier/internal/logger"
	"github.com/harrison/verifier/internal/models"
	"github.com/harrison/verifier/internal/submission"
)

// Tips are shown alongside every task prompt.
var Tips = []string{
	"Ensure proper lighting - avoid dark environments",
	"Face the camera directly during verification",
	"Remove glasses or face coverings if possible",
	"Follow task instructions carefully and naturally",
	"Stay within frame throughout the verification process",
}

// ShouldColor reports whether w is a color-capable terminal.
func ShouldColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type palette struct {
	enabled bool
}

func newPalette(enabled bool) palette {
	return palette{enabled: enabled}
}

func (p palette) paint(s string, attrs ...color.Attribute) string {
	if !p.enabled {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

func (p palette) ok(s string) string    { return p.paint(s, color.FgGreen, color.Bold) }
func (p palette) bad(s string) string   { return p.paint(s, color.FgRed, color.Bold) }
func (p palette) warn(s string) string  { return p.paint(s, color.FgYellow) }
func (p palette) info(s string) string  { return p.paint(s, color.FgBlue) }
func (p palette) muted(s string) string { return p.paint(s, color.FgHiBlack) }
func (p palette) title(s string) string { return p.paint(s, color.Bold) }

// Screen renders wizard screens to a writer.
type Screen struct {
	out     io.Writer
	colored bool
	p       palette
}

// NewScreen creates a Screen; colored enables ANSI colors.
func NewScreen(out io.Writer, colored bool) *Screen {
	return &Screen{out: out, colored: colored, p: newPalette(colored)}
}

func (s *Screen) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}

// Loading shows the placeholder while tasks are sampled.
func (s *Screen) Loading() {
	s.printf("%s\n", s.p.muted(models.LoadingTask.Instruction))
}

// LoadError shows the error state with its retry hint.
func (s *Screen) LoadError() {
	s.printf("\n%s\n", s.p.bad("Error Loading Tasks"))
	s.printf("We couldn't generate verification tasks. Please try again.\n")
	s.printf("Press %s to retry or %s to quit.\n", s.p.title("r"), s.p.title("q"))
}

// Progress shows the progress bar and a marker per task.
func (s *Screen) Progress(snap models.Snapshot) {
	total := snap.Sequence.Len()
	passed := 0
	for _, t := range snap.Sequence {
		if snap.Passed(t.ID) {
			passed++
		}
	}

	bar := logger.NewProgressBar(total, 20, s.colored)
	bar.SetPrefix("Progress ")
	bar.Update(passed)
	s.printf("\n%s\n", bar.Render())

	statuses := snap.Statuses()
	for i, t := range snap.Sequence {
		s.printf("  %s Task %d: %s\n", s.marker(statuses[i]), i+1, t.Name)
	}
}

func (s *Screen) marker(status models.TaskStatus) string {
	switch status {
	case models.TaskPassed:
		return s.p.ok("✓")
	case models.TaskFailed:
		return s.p.bad("✗")
	case models.TaskActive:
		return s.p.info("▶")
	case models.TaskSkipped:
		return s.p.warn("↷")
	default:
		return s.p.muted("○")
	}
}

// Task shows the current task's name, instruction and attempt count.
func (s *Screen) Task(task models.Task, attempts int) {
	s.printf("\n%s\n", s.p.title(task.Name))
	s.printf("  %s\n", task.Instruction)
	if attempts > 0 {
		s.printf("  %s\n", s.p.muted(fmt.Sprintf("Attempts: %d", attempts)))
	}
}

// TaskPrompt shows the current task and the available commands.
func (s *Screen) TaskPrompt(task models.Task, attempts int, cameraOn, canSkip bool) {
	s.Task(task, attempts)

	var cmds []string
	if cameraOn {
		cmds = append(cmds, "[c] capture & verify", "[o] camera off")
	} else {
		cmds = append(cmds, "[e] enable camera")
	}
	if canSkip {
		cmds = append(cmds, "[s] skip task")
	}
	cmds = append(cmds, "[r] new tasks", "[q] quit")
	s.printf("  %s\n", strings.Join(cmds, "  "))
}

// Tips shows the verification tips panel.
func (s *Screen) Tips() {
	s.printf("\n%s\n", s.p.info("Verification Tips"))
	for _, tip := range Tips {
		s.printf("  • %s\n", tip)
	}
}

// Verifying shows that a validation is in flight.
func (s *Screen) Verifying(task models.Task) {
	s.printf("%s\n", s.p.muted(fmt.Sprintf("Verifying %s...", task.Name)))
}

// AttemptOverlay shows the outcome of the latest attempt.
func (s *Screen) AttemptOverlay(passed bool) {
	if passed {
		s.printf("%s Task Completed: Verification successful!\n", s.p.ok("✓"))
		return
	}
	s.printf("%s Task Failed: Please try again carefully following the instructions.\n", s.p.bad("✗"))
}

// Skipped confirms a skip.
func (s *Screen) Skipped(task models.Task) {
	s.printf("%s Task Skipped: %s. Moving to the next verification task.\n", s.p.warn("↷"), task.Name)
}

// TasksReset confirms a reset.
func (s *Screen) TasksReset() {
	s.printf("%s\n", s.p.info("Tasks Reset: New verification tasks have been generated."))
}

// CameraState reports the camera toggling on or off.
func (s *Screen) CameraState(on bool) {
	if on {
		s.printf("%s\n", s.p.info("Camera enabled."))
		return
	}
	s.printf("%s\n", s.p.muted("Camera turned off."))
}

// Complete shows the completion screen for a verdict.
func (s *Screen) Complete(v models.Verdict, interactive bool) {
	s.printf("\n%s\n", s.p.ok("Verification Complete!"))
	if v.SkippedCount == 0 {
		s.printf("All verification tasks have been successfully completed. You can now submit your application.\n")
	} else {
		s.printf("%d of %d tasks passed, %d skipped.\n", v.PassedCount, v.Total, v.SkippedCount)
	}
	if !v.Accepted {
		s.printf("%s\n", s.p.warn("Not enough tasks passed for acceptance; the application will be reviewed manually."))
	}
	if interactive {
		s.printf("Press %s to submit your application or %s to quit.\n", s.p.title("y"), s.p.title("q"))
	}
}

// DeviceError shows a blocking camera failure.
func (s *Screen) DeviceError(err error) {
	w := Warning{
		Title:      "Camera Unavailable",
		Message:    err.Error(),
		Suggestion: "Allow camera access and close other applications using it, then press e",
	}
	if errors.Is(err, capture.ErrPermissionDenied) {
		w.Suggestion = "Grant camera permission, then press e"
	}
	w.Display(s.out, s.colored)
}

// Receipt shows the submission confirmation.
func (s *Screen) Receipt(r *submission.Receipt) {
	s.printf("\n%s\n", s.p.ok("Application Submitted"))
	s.printf("  Application ID:   %s\n", s.p.title(r.ReferenceID))
	s.printf("  Application type: %s\n", r.Kind)
	s.printf("  Name:             %s\n", r.Name)
	s.printf("  Mobile:           %s\n", r.Mobile)
	s.printf("  Submitted at:     %s\n", r.SubmittedAt.Local().Format("02 Jan 2006 15:04"))
	s.printf("  Tasks passed:     %d/%d\n", r.Verdict.PassedCount, r.Verdict.Total)
	s.printf("Keep your application ID for future reference.\n")
}

// Message prints a plain line.
func (s *Screen) Message(msg string) {
	s.printf("%s\n", msg)
}
