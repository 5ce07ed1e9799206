package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/verifier/internal/applicant"
	"github.com/harrison/verifier/internal/display"
	"github.com/harrison/verifier/internal/models"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <applicant-file>",
		Short: "Check an applicant data file",
		Long: `Load an applicant YAML file and check every field against the form rules:
name, date of birth, gender, mobile, email, address, city, state, pincode,
and the existing identifier for update applications.

Exit code: 0 if valid, 1 if any rule is violated`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := loadApplicant(args[0], cmd.OutOrStdout(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid.\n", args[0])
			return nil
		},
	}

	return cmd
}

// loadApplicant reads and checks an applicant file, printing every
// violation as a warning.
func loadApplicant(path string, out io.Writer, now time.Time) (*models.Application, error) {
	app, err := applicant.Load(path)
	if err != nil {
		return nil, err
	}

	if err := applicant.Check(app, now); err != nil {
		var verr *applicant.ValidationError
		if errors.As(err, &verr) {
			details := make([]string, len(verr.Fields))
			for i, f := range verr.Fields {
				details[i] = f.String()
			}
			display.Warning{
				Title:      "Invalid Application",
				Message:    fmt.Sprintf("%d problem(s) found in %s", len(verr.Fields), path),
				Details:    details,
				Suggestion: "Correct the applicant file and run again",
			}.Display(out, display.ShouldColor(out))
		}
		return nil, err
	}
	return app, nil
}
