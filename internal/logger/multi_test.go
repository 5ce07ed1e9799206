package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/harrison/verifier/internal/models"
)

func TestMultiLoggerFansOut(t *testing.T) {
	a := &bytes.Buffer{}
	b := &bytes.Buffer{}
	multi := NewMultiLogger(NewConsoleLogger(a, "debug"), nil, NewConsoleLogger(b, "warn"))

	if len(multi.loggers) != 2 {
		t.Fatalf("expected nil logger dropped, got %d loggers", len(multi.loggers))
	}

	task := models.Task{ID: "nod", Name: "Nod"}
	multi.LogSessionStart("sid", models.TaskSequence{task})
	multi.LogAttempt(task, models.AttemptResult{TaskID: "nod"}, 1)
	multi.LogAdvance(task, task)
	multi.LogSkip(task, 3)
	multi.LogComplete(models.Verdict{Total: 1, SkippedCount: 1, AllResolved: true})
	multi.LogIgnored(errors.New("ignored"))
	multi.LogLoadError(errors.New("boom"))
	multi.LogDebug("debug line")
	multi.LogInfo("info line")
	multi.LogWarn("warn line")
	multi.LogError("error line")

	for _, want := range []string{"Session sid started", "Nod attempt 1: FAILED", "Advancing from Nod to Nod",
		"Skipped Nod", "Verification complete", "Ignored: ignored", "boom", "debug line", "info line", "warn line", "error line"} {
		if !strings.Contains(a.String(), want) {
			t.Errorf("debug logger missing %q", want)
		}
	}

	for _, want := range []string{"Skipped Nod", "boom", "warn line", "error line"} {
		if !strings.Contains(b.String(), want) {
			t.Errorf("warn logger missing %q", want)
		}
	}
	for _, unwanted := range []string{"Session sid", "attempt 1", "info line"} {
		if strings.Contains(b.String(), unwanted) {
			t.Errorf("warn logger should filter %q", unwanted)
		}
	}
}

func TestNoOpLogger(t *testing.T) {
	n := NewNoOpLogger()
	task := models.Task{ID: "a"}

	n.LogSessionStart("s", nil)
	n.LogAttempt(task, models.AttemptResult{}, 1)
	n.LogSkip(task, 1)
	n.LogAdvance(task, task)
	n.LogComplete(models.Verdict{})
	n.LogIgnored(nil)
	n.LogLoadError(nil)
	n.LogInfo("x")
}
