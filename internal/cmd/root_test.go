package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/verifier/internal/catalog"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "verifier", root.Use)
	assert.True(t, root.SilenceUsage)

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "tasks", "validate"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCommand_Version(t *testing.T) {
	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

func TestTasksCommand_ListsCatalog(t *testing.T) {
	out, err := executeCommand(t, "tasks")
	require.NoError(t, err)

	tasks := catalog.Default()
	assert.Contains(t, out, "Task catalog")
	for _, task := range tasks {
		assert.Contains(t, out, task.ID)
		assert.Contains(t, out, task.Instruction)
	}
}
