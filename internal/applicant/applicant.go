// Package applicant loads and checks the applicant data collected before
// verification starts.
package applicant

import (
	"fmt"
	"net/mail"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/verifier/internal/models"
)

// DateLayout is the accepted date-of-birth format.
const DateLayout = "2006-01-02"

var (
	mobilePattern     = regexp.MustCompile(`^[0-9]{10}$`)
	pincodePattern    = regexp.MustCompile(`^[0-9]{6}$`)
	existingIDPattern = regexp.MustCompile(`^[0-9]{12}$`)
)

var validGenders = map[string]bool{
	"male":   true,
	"female": true,
	"other":  true,
}

// FieldError is a single rule violation.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError carries every violation found in an application.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("invalid application (%d problems): %s", len(e.Fields), strings.Join(parts, "; "))
}

// Load reads an application from a YAML file.
func Load(path string) (*models.Application, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read applicant file: %w", err)
	}

	var app models.Application
	if err := yaml.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("failed to parse applicant file: %w", err)
	}
	normalize(&app)
	return &app, nil
}

func normalize(app *models.Application) {
	app.Name = strings.TrimSpace(app.Name)
	app.DateOfBirth = strings.TrimSpace(app.DateOfBirth)
	app.Gender = strings.ToLower(strings.TrimSpace(app.Gender))
	app.Mobile = strings.TrimSpace(app.Mobile)
	app.Email = strings.TrimSpace(app.Email)
	app.Address = strings.TrimSpace(app.Address)
	app.City = strings.TrimSpace(app.City)
	app.State = strings.TrimSpace(app.State)
	app.PostalCode = strings.TrimSpace(app.PostalCode)
	app.ExistingID = strings.TrimSpace(app.ExistingID)
}

// Check applies the form rules and returns a *ValidationError listing every
// violation, or nil. now anchors the date-of-birth check.
func Check(app *models.Application, now time.Time) error {
	if app == nil {
		return &ValidationError{Fields: []FieldError{{Field: "application", Message: "missing"}}}
	}

	var errs []FieldError
	add := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}

	if len([]rune(app.Name)) < 3 {
		add("name", "must be at least 3 characters")
	}

	if app.DateOfBirth == "" {
		add("dob", "is required")
	} else if dob, err := time.Parse(DateLayout, app.DateOfBirth); err != nil {
		add("dob", "must be a date in YYYY-MM-DD format")
	} else if !dob.Before(now) {
		add("dob", "must be in the past")
	}

	if !validGenders[strings.ToLower(app.Gender)] {
		add("gender", "must be one of male, female, other")
	}

	if !mobilePattern.MatchString(app.Mobile) {
		add("mobile", "must be exactly 10 digits")
	}

	if !validEmail(app.Email) {
		add("email", "must be a valid email address")
	}

	if len([]rune(app.Address)) < 5 {
		add("address", "must be at least 5 characters")
	}
	if len([]rune(app.City)) < 2 {
		add("city", "must be at least 2 characters")
	}
	if len([]rune(app.State)) < 2 {
		add("state", "must be at least 2 characters")
	}

	if !pincodePattern.MatchString(app.PostalCode) {
		add("pincode", "must be exactly 6 digits")
	}

	if !app.IsNewApplication && !existingIDPattern.MatchString(app.ExistingID) {
		add("existing_id", "must be exactly 12 digits for an update")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func validEmail(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}
