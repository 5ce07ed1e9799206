package models

import (
	"errors"
	"fmt"
)

// Task is a single liveness gesture the applicant is asked to perform in
// front of the camera. Tasks come from the compiled-in catalog and are never
// mutated after load.
type Task struct {
	ID          string `yaml:"id" json:"id"`                   // Stable identifier, e.g. "head-left"
	Name        string `yaml:"name" json:"name"`               // Short human-readable label
	Instruction string `yaml:"instruction" json:"instruction"` // Sentence shown to the applicant
}

// LoadingTask is the placeholder returned while no sequence has been sampled yet.
var LoadingTask = Task{
	ID:          "loading",
	Name:        "Loading...",
	Instruction: "Preparing verification tasks...",
}

// Validate checks if the task has all required fields
func (t Task) Validate() error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("task %s: name is required", t.ID)
	}
	if t.Instruction == "" {
		return fmt.Errorf("task %s: instruction is required", t.ID)
	}
	return nil
}

// IsPlaceholder reports whether t is the loading placeholder.
func (t Task) IsPlaceholder() bool {
	return t.ID == LoadingTask.ID
}

// TaskSequence is the ordered set of distinct tasks sampled for one
// verification session. A sequence is treated as immutable once created;
// callers that need to modify it must Clone first.
type TaskSequence []Task

// Len returns the number of tasks in the sequence.
func (s TaskSequence) Len() int {
	return len(s)
}

// IDs returns the task ids in presentation order.
func (s TaskSequence) IDs() []string {
	ids := make([]string, len(s))
	for i, t := range s {
		ids[i] = t.ID
	}
	return ids
}

// IndexOf returns the position of the task with the given id, or -1.
func (s TaskSequence) IndexOf(id string) int {
	for i, t := range s {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether a task with the given id is part of the sequence.
func (s TaskSequence) Contains(id string) bool {
	return s.IndexOf(id) >= 0
}

// Clone returns an independent copy of the sequence.
func (s TaskSequence) Clone() TaskSequence {
	if s == nil {
		return nil
	}
	out := make(TaskSequence, len(s))
	copy(out, s)
	return out
}

// HasDuplicateIDs detects repeated task ids in a sequence.
func HasDuplicateIDs(tasks []Task) bool {
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			return true
		}
		seen[t.ID] = true
	}
	return false
}
