package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harrison/verifier/internal/capture"
	"github.com/harrison/verifier/internal/config"
	"github.com/harrison/verifier/internal/display"
	"github.com/harrison/verifier/internal/executor"
	"github.com/harrison/verifier/internal/logger"
	"github.com/harrison/verifier/internal/sampler"
	"github.com/harrison/verifier/internal/submission"
	"github.com/harrison/verifier/internal/validator"
	"github.com/harrison/verifier/internal/wizard"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <applicant-file>",
		Short: "Run liveness verification for an applicant",
		Long: `Run the verification wizard for the applicant described in a YAML file.

The applicant data is checked first. A sequence of liveness tasks is then
sampled from the catalog and each task is captured and verified in turn.
A task can be skipped once it has failed enough times. When every task is
resolved the application is submitted and a reference id is printed.

On a terminal the wizard reads single-letter commands from stdin:
  e  enable camera      c  capture & verify     s  skip task
  o  camera off         r  new tasks            q  quit
  y  submit (after completion)

With --auto, or when stdin is not a terminal, the wizard runs unattended:
it attempts every task until it passes or can be skipped.

Configuration is loaded from .verifier/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  verifier run applicant.yaml
  verifier run --auto --seed 42 applicant.yaml
  verifier run --tasks 5 --log-level debug applicant.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .verifier/config.yaml)")
	cmd.Flags().Int("tasks", 0, "Number of tasks per session (default from config)")
	cmd.Flags().Bool("auto", false, "Run unattended without reading commands")
	cmd.Flags().Uint64("seed", 0, "Seed task sampling, validation and reference ids for reproducible runs")
	cmd.Flags().String("log-dir", "", "Directory for log files")
	cmd.Flags().String("log-level", "", "Log file level (trace, debug, info, warn, error)")
	cmd.Flags().String("device", "", "Camera device name")
	cmd.Flags().Bool("verbose", false, "Show detailed session events on stderr")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	app, err := loadApplicant(args[0], out, time.Now())
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	consoleLevel := "warn"
	if verbose {
		consoleLevel = "debug"
	}
	console := logger.NewConsoleLogger(cmd.ErrOrStderr(), consoleLevel)

	fileLog, err := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer fileLog.Close()
	log := logger.NewMultiLogger(console, fileLog)

	var samp *sampler.Sampler
	var validatorRNG, submissionRNG *rand.Rand
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint64("seed")
		samp = sampler.NewSeeded(seed)
		validatorRNG = rand.New(rand.NewPCG(seed, seed^0x5eed))
		submissionRNG = rand.New(rand.NewPCG(seed, seed^0x1d))
	}

	val, err := validator.NewRandom(validator.Config{
		SuccessRate: cfg.Validator.SuccessRate,
		MinDelay:    cfg.Validator.MinDelay,
		MaxDelay:    cfg.Validator.MaxDelay,
	}, validatorRNG)
	if err != nil {
		return fmt.Errorf("invalid validator config: %w", err)
	}

	registry, err := submission.NewService(submissionRNG)
	if err != nil {
		return fmt.Errorf("failed to open submission registry: %w", err)
	}
	defer registry.Close()

	orch := executor.NewOrchestrator(executor.Options{
		Sampler:       samp,
		Logger:        log,
		SkipThreshold: cfg.SkipAfterAttempts,
		GracePeriod:   cfg.GracePeriod,
		MinPassed:     &cfg.Verdict.MinPassed,
	})
	defer orch.Close()

	camera := capture.NewSimulatedCamera(capture.SimulatedConfig{
		Device:  cfg.Camera.Device,
		LockDir: cfg.Camera.LockDir,
		Width:   cfg.Camera.Width,
		Height:  cfg.Camera.Height,
	})

	auto, _ := cmd.Flags().GetBool("auto")
	interactive := !auto && isatty.IsTerminal(os.Stdin.Fd())

	w := wizard.New(wizard.Options{
		Orchestrator:      orch,
		Camera:            camera,
		Validator:         val,
		Submitter:         registry,
		Screen:            display.NewScreen(out, display.ShouldColor(out)),
		Logger:            log,
		Input:             cmd.InOrStdin(),
		Interactive:       interactive,
		TaskCount:         cfg.TaskCount,
		ValidationTimeout: cfg.Validator.Timeout,
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := w.Run(ctx, app); err != nil {
		if errors.Is(err, wizard.ErrAborted) {
			fmt.Fprintln(out, "Verification cancelled. Nothing was submitted.")
		}
		return err
	}
	return nil
}

// loadRunConfig loads the config file and applies flag overrides.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error

	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to locate config: %w", err)
		}
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var taskCountPtr *int
	var logDirPtr, logLevelPtr, devicePtr *string

	if cmd.Flags().Changed("tasks") {
		taskCount, _ := cmd.Flags().GetInt("tasks")
		if taskCount < 1 {
			return nil, fmt.Errorf("--tasks must be at least 1, got %d", taskCount)
		}
		taskCountPtr = &taskCount
	}
	if cmd.Flags().Changed("log-dir") {
		logDir, _ := cmd.Flags().GetString("log-dir")
		logDirPtr = &logDir
	}
	if cmd.Flags().Changed("log-level") {
		logLevel, _ := cmd.Flags().GetString("log-level")
		logLevelPtr = &logLevel
	}
	if cmd.Flags().Changed("device") {
		device, _ := cmd.Flags().GetString("device")
		devicePtr = &device
	}

	cfg.MergeWithFlags(taskCountPtr, logDirPtr, logLevelPtr, devicePtr)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
