package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidatorConfig configures the stand-in liveness validator.
type ValidatorConfig struct {
	// SuccessRate is the probability an attempt passes, in [0, 1]
	SuccessRate float64 `yaml:"success_rate"`

	// MinDelay and MaxDelay bound the simulated validation latency
	MinDelay time.Duration `yaml:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay"`

	// Timeout bounds a single validation; a timed-out attempt fails
	Timeout time.Duration `yaml:"timeout"`
}

// CameraConfig configures the capture device.
type CameraConfig struct {
	// Device is the logical device name
	Device string `yaml:"device"`

	// LockDir holds the per-device lock file
	LockDir string `yaml:"lock_dir"`

	// Width and Height are the snapshot dimensions in pixels
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// VerdictConfig configures acceptance.
type VerdictConfig struct {
	// MinPassed is the number of passed tasks required for acceptance
	MinPassed int `yaml:"min_passed"`
}

// Config represents verifier configuration options
type Config struct {
	// TaskCount is the number of tasks sampled per session
	TaskCount int `yaml:"task_count"`

	// SkipAfterAttempts is the attempt count at which skipping unlocks
	SkipAfterAttempts int `yaml:"skip_after_attempts"`

	// GracePeriod is how long a success is shown before advancing
	GracePeriod time.Duration `yaml:"grace_period"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where logs will be written
	LogDir string `yaml:"log_dir"`

	Validator ValidatorConfig `yaml:"validator"`
	Camera    CameraConfig    `yaml:"camera"`
	Verdict   VerdictConfig   `yaml:"verdict"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		TaskCount:         3,
		SkipAfterAttempts: 3,
		GracePeriod:       2 * time.Second,
		LogLevel:          "info",
		LogDir:            filepath.Join(".verifier", "logs"),
		Validator: ValidatorConfig{
			SuccessRate: 0.9,
			MinDelay:    time.Second,
			MaxDelay:    2 * time.Second,
			Timeout:     10 * time.Second,
		},
		Camera: CameraConfig{
			Device:  "sim0",
			LockDir: os.TempDir(),
			Width:   640,
			Height:  480,
		},
		Verdict: VerdictConfig{
			MinPassed: 1,
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Use a temporary struct to handle duration parsing
	type yamlValidator struct {
		SuccessRate float64 `yaml:"success_rate"`
		MinDelay    string  `yaml:"min_delay"`
		MaxDelay    string  `yaml:"max_delay"`
		Timeout     string  `yaml:"timeout"`
	}
	type yamlConfig struct {
		TaskCount         int           `yaml:"task_count"`
		SkipAfterAttempts int           `yaml:"skip_after_attempts"`
		GracePeriod       string        `yaml:"grace_period"`
		LogLevel          string        `yaml:"log_level"`
		LogDir            string        `yaml:"log_dir"`
		Validator         yamlValidator `yaml:"validator"`
		Camera            CameraConfig  `yaml:"camera"`
		Verdict           VerdictConfig `yaml:"verdict"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Detect which keys were present so explicit zeros are honored
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	has := func(section map[string]interface{}, key string) bool {
		_, ok := section[key]
		return ok
	}
	sectionOf := func(name string) map[string]interface{} {
		section, _ := rawMap[name].(map[string]interface{})
		return section
	}

	if has(rawMap, "task_count") {
		cfg.TaskCount = yamlCfg.TaskCount
	}
	if has(rawMap, "skip_after_attempts") {
		cfg.SkipAfterAttempts = yamlCfg.SkipAfterAttempts
	}
	if yamlCfg.GracePeriod != "" {
		if cfg.GracePeriod, err = parseDuration("grace_period", yamlCfg.GracePeriod); err != nil {
			return nil, err
		}
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}

	if validator := sectionOf("validator"); validator != nil {
		v := yamlCfg.Validator
		if has(validator, "success_rate") {
			cfg.Validator.SuccessRate = v.SuccessRate
		}
		if v.MinDelay != "" {
			if cfg.Validator.MinDelay, err = parseDuration("validator.min_delay", v.MinDelay); err != nil {
				return nil, err
			}
		}
		if v.MaxDelay != "" {
			if cfg.Validator.MaxDelay, err = parseDuration("validator.max_delay", v.MaxDelay); err != nil {
				return nil, err
			}
		}
		if v.Timeout != "" {
			if cfg.Validator.Timeout, err = parseDuration("validator.timeout", v.Timeout); err != nil {
				return nil, err
			}
		}
	}

	if camera := sectionOf("camera"); camera != nil {
		c := yamlCfg.Camera
		if has(camera, "device") {
			cfg.Camera.Device = c.Device
		}
		if has(camera, "lock_dir") {
			cfg.Camera.LockDir = c.LockDir
		}
		if has(camera, "width") {
			cfg.Camera.Width = c.Width
		}
		if has(camera, "height") {
			cfg.Camera.Height = c.Height
		}
	}

	if verdict := sectionOf("verdict"); verdict != nil {
		if has(verdict, "min_passed") {
			cfg.Verdict.MinPassed = yamlCfg.Verdict.MinPassed
		}
	}

	return cfg, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format %q: %w", key, value, err)
	}
	return d, nil
}

// LoadConfigFromDir loads configuration from .verifier/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".verifier", "config.yaml"))
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(taskCount *int, logDir *string, logLevel *string, device *string) {
	if taskCount != nil {
		c.TaskCount = *taskCount
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if device != nil {
		c.Camera.Device = *device
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.TaskCount < 0 {
		return fmt.Errorf("task_count must be >= 0, got %d", c.TaskCount)
	}
	if c.SkipAfterAttempts < 1 {
		return fmt.Errorf("skip_after_attempts must be >= 1, got %d", c.SkipAfterAttempts)
	}
	if c.GracePeriod < 0 {
		return fmt.Errorf("grace_period must be >= 0, got %v", c.GracePeriod)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Validator.SuccessRate < 0 || c.Validator.SuccessRate > 1 {
		return fmt.Errorf("validator.success_rate must be within [0, 1], got %v", c.Validator.SuccessRate)
	}
	if c.Validator.MinDelay < 0 {
		return fmt.Errorf("validator.min_delay must be >= 0, got %v", c.Validator.MinDelay)
	}
	if c.Validator.MinDelay > c.Validator.MaxDelay {
		return fmt.Errorf("validator.min_delay (%v) must not exceed validator.max_delay (%v)", c.Validator.MinDelay, c.Validator.MaxDelay)
	}
	if c.Validator.Timeout < 0 {
		return fmt.Errorf("validator.timeout must be >= 0, got %v", c.Validator.Timeout)
	}

	if c.Camera.Device == "" {
		return fmt.Errorf("camera.device cannot be empty")
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera dimensions must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}

	if c.Verdict.MinPassed < 0 {
		return fmt.Errorf("verdict.min_passed must be >= 0, got %d", c.Verdict.MinPassed)
	}

	return nil
}
