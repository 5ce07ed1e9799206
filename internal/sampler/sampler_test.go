package sampler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/verifier/internal/catalog"
	"github.com/harrison/verifier/internal/models"
)

func makeCatalog(size int) []models.Task {
	tasks := make([]models.Task, size)
	for i := range tasks {
		id := fmt.Sprintf("task-%d", i)
		tasks[i] = models.Task{ID: id, Name: id, Instruction: "do " + id}
	}
	return tasks
}

func TestSampleLengthAndDistinct(t *testing.T) {
	s := NewSeeded(42)

	for size := 0; size <= 8; size++ {
		for n := 0; n <= 10; n++ {
			t.Run(fmt.Sprintf("catalog=%d/n=%d", size, n), func(t *testing.T) {
				seq := s.Sample(makeCatalog(size), n)

				assert.Equal(t, min(n, size), seq.Len())
				assert.False(t, models.HasDuplicateIDs(seq))
			})
		}
	}
}

func TestSampleNegativeCount(t *testing.T) {
	seq := NewSeeded(1).Sample(catalog.Default(), -3)
	assert.Empty(t, seq)
	assert.NotNil(t, seq)
}

func TestSampleEmptyCatalog(t *testing.T) {
	seq := NewSeeded(1).Sample(nil, 3)
	assert.Equal(t, 0, seq.Len())
}

func TestSampleDrawsFromCatalog(t *testing.T) {
	all := catalog.Default()
	seq := NewSeeded(7).Sample(all, 3)
	require.Equal(t, 3, seq.Len())

	ids := models.TaskSequence(all)
	for _, task := range seq {
		assert.True(t, ids.Contains(task.ID), "unexpected task %s", task.ID)
	}
}

func TestSampleDoesNotMutateCatalog(t *testing.T) {
	all := makeCatalog(8)
	before := models.TaskSequence(all).IDs()

	NewSeeded(3).Sample(all, 8)

	assert.Equal(t, before, models.TaskSequence(all).IDs())
}

func TestSampleDeterministicWithSeed(t *testing.T) {
	a := NewSeeded(99).Sample(catalog.Default(), 3)
	b := NewSeeded(99).Sample(catalog.Default(), 3)
	assert.Equal(t, a.IDs(), b.IDs())
}

func TestSampleCoversEveryTask(t *testing.T) {
	s := NewSeeded(2024)
	all := makeCatalog(8)
	seen := make(map[string]int)

	for i := 0; i < 2000; i++ {
		for _, task := range s.Sample(all, 3) {
			seen[task.ID]++
		}
	}

	require.Len(t, seen, 8)
	// Each task should appear roughly 3/8 of the time (750 of 2000).
	for id, count := range seen {
		assert.InDelta(t, 750, count, 150, "task %s drawn %d times", id, count)
	}
}

func TestSampleResultIsNotAliasedToCatalog(t *testing.T) {
	all := makeCatalog(4)
	seq := NewSeeded(5).Sample(all, 2)
	seq[0].Name = "changed"

	for _, task := range all {
		assert.NotEqual(t, "changed", task.Name)
	}
}
