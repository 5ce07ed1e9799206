package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the verifier home directory.
const HomeEnv = "VERIFIER_HOME"

// GetVerifierHome returns the verifier home directory
// Priority order:
//  1. VERIFIER_HOME environment variable (if set)
//  2. The nearest existing .verifier directory at or above the working directory
//  3. .verifier in the current working directory (fallback, not created)
func GetVerifierHome() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	if found := findHomeAbove(cwd); found != "" {
		return found, nil
	}
	return filepath.Join(cwd, ".verifier"), nil
}

func findHomeAbove(start string) string {
	current := start
	for {
		candidate := filepath.Join(current, ".verifier")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}

		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

// DefaultConfigPath returns $VERIFIER_HOME/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := GetVerifierHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.yaml"), nil
}
