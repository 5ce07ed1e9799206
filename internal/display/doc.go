// Package display renders the verification wizard's screens to a terminal.
//
// Every screen is a method on Screen, which writes to an io.Writer so tests
// can capture output in a buffer:
//
//	screen := display.NewScreen(os.Stdout, display.ShouldColor(os.Stdout))
//	screen.Progress(orch.Snapshot())
//	screen.TaskPrompt(task, attempts, canSkip)
//
// Screens never read orchestration state themselves; they render the
// models.Snapshot or value handed to them.
//
// # Warnings
//
// Blocking messages such as camera failures use Warning:
//
//	display.Warning{
//	    Title:      "Camera Unavailable",
//	    Message:    err.Error(),
//	    Suggestion: "Close other applications using the camera and press e",
//	}.Display(os.Stderr, true)
//
// # Colors
//
// Colors come from github.com/fatih/color and are only used when the writer
// is a terminal; see ShouldColor.
package display
