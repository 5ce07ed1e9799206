// Package catalog holds the fixed set of liveness gestures an applicant can
// be asked to perform.
//
// The catalog is compiled into the binary as Markdown and parsed with
// goldmark on first use. Each task is a level-two heading "<id>: <name>"
// followed by a paragraph carrying the instruction.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/harrison/verifier/internal/models"
)

//go:embed catalog.md
var builtin []byte

var headingRegex = regexp.MustCompile(`^([a-z0-9][a-z0-9-]*):\s+(.+)$`)

var (
	loadOnce sync.Once
	defaults []models.Task
	loadErr  error
)

// Default returns a copy of the built-in catalog in catalog order.
// It panics if the embedded catalog is malformed, which is a build defect.
func Default() []models.Task {
	loadOnce.Do(func() {
		defaults, loadErr = Parse(bytes.NewReader(builtin))
	})
	if loadErr != nil {
		panic(fmt.Sprintf("embedded task catalog: %v", loadErr))
	}
	out := make([]models.Task, len(defaults))
	copy(out, defaults)
	return out
}

// Lookup returns the built-in task with the given id.
func Lookup(id string) (models.Task, bool) {
	for _, t := range Default() {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

// Parse reads a Markdown catalog and returns its tasks in document order.
func Parse(r io.Reader) ([]models.Task, error) {
	source, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var tasks []models.Task
	var current *models.Task

	flush := func() error {
		if current == nil {
			return nil
		}
		if err := current.Validate(); err != nil {
			return err
		}
		tasks = append(tasks, *current)
		current = nil
		return nil
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level != 2 {
				continue
			}
			if err := flush(); err != nil {
				return nil, err
			}
			heading := extractText(node, source)
			matches := headingRegex.FindStringSubmatch(heading)
			if matches == nil {
				return nil, fmt.Errorf("malformed task heading %q: want \"<id>: <name>\"", heading)
			}
			current = &models.Task{ID: matches[1], Name: strings.TrimSpace(matches[2])}
		case *ast.Paragraph:
			// Only the first paragraph under a heading is the instruction.
			if current != nil && current.Instruction == "" {
				current.Instruction = extractText(node, source)
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if models.HasDuplicateIDs(tasks) {
		return nil, fmt.Errorf("catalog contains duplicate task ids")
	}
	return tasks, nil
}

// extractText concatenates the inline text of a block node, turning soft
// line breaks into spaces.
func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch inline := c.(type) {
		case *ast.Text:
			buf.Write(inline.Segment.Value(source))
			if inline.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.CodeSpan, *ast.Emphasis:
			buf.WriteString(extractText(inline, source))
		}
	}
	return strings.TrimSpace(buf.String())
}
