package display

import (
	"fmt"
	"io"
	"strings"
)

// Warning represents a user-facing blocking message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Details    []string // Itemized problems (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning, in yellow when colored is set
func (w Warning) Display(out io.Writer, colored bool) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Details) > 0 {
		for i, d := range w.Details {
			b.WriteString(fmt.Sprintf("      %d. %s\n", i+1, d))
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	fmt.Fprint(out, newPalette(colored).warn(b.String()))
}
