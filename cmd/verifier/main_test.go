package main

import (
	"bytes"
	"testing"

	"github.com/harrison/verifier/internal/cmd"
)

func TestRootCommandHelp(t *testing.T) {
	rootCmd := cmd.NewRootCommand()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"--help"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, want := range []string{"verifier", "run", "validate", "tasks"} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("help output missing %q", want)
		}
	}
}
