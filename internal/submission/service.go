// Package submission hands a completed verification to the registry and
// issues the applicant's reference number.
package submission

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/harrison/verifier/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Reference ids are 11-digit decimal numbers.
const (
	MinReferenceID int64 = 10000000000
	MaxReferenceID int64 = 99999999999

	maxIDAttempts = 16
)

var (
	// ErrUnresolved means the verdict does not cover every task.
	ErrUnresolved = errors.New("verification not resolved")
	// ErrNoApplication means the submission carries no applicant data.
	ErrNoApplication = errors.New("no application data")
	// ErrAlreadySubmitted means the session was submitted before.
	ErrAlreadySubmitted = errors.New("session already submitted")
	// ErrNotFound means no application has the reference id.
	ErrNotFound = errors.New("application not found")
)

// Receipt is the confirmation shown to the applicant.
type Receipt struct {
	ReferenceID string
	Kind        string // "New Registration" or "Update"
	Name        string
	Mobile      string
	SubmittedAt time.Time
	Verdict     models.Verdict
}

// AttemptRecord is one stored attempt. Image bytes are never stored, only
// the frame id and size.
type AttemptRecord struct {
	TaskID      string
	Completed   bool
	AttemptedAt time.Time
	FrameID     string
	FrameBytes  int
}

// Service registers submissions in an in-memory SQLite database that lives
// as long as the Service.
type Service struct {
	db    *sql.DB
	clock func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService opens the registry. A nil rng selects a randomly seeded source.
func NewService(rng *rand.Rand) (*Service, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set foreign_keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Service{db: db, clock: time.Now, rng: rng}, nil
}

// Close closes the registry. Everything it held is discarded.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Service) nextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strconv.FormatInt(MinReferenceID+s.rng.Int64N(MaxReferenceID-MinReferenceID+1), 10)
}

// Submit records a completed verification and returns its receipt.
func (s *Service) Submit(ctx context.Context, sub models.Submission) (*Receipt, error) {
	if sub.Application == nil {
		return nil, ErrNoApplication
	}
	if !sub.Verdict.AllResolved {
		return nil, fmt.Errorf("submit session %s: %w", sub.SessionID, ErrUnresolved)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin submission: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM applications WHERE session_id = ?)", sub.SessionID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("submit session %s: %w", sub.SessionID, ErrAlreadySubmitted)
	}

	app := sub.Application
	submittedAt := s.clock().UTC()

	var refID string
	for attempt := 0; ; attempt++ {
		if attempt == maxIDAttempts {
			return nil, fmt.Errorf("no free reference id after %d attempts", maxIDAttempts)
		}
		refID = s.nextID()
		_, err = tx.ExecContext(ctx, `INSERT INTO applications
			(reference_id, session_id, kind, name, mobile, existing_id,
			 total_tasks, passed_tasks, skipped_tasks, accepted, submitted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			refID, sub.SessionID, app.Kind(), app.Name, app.Mobile, app.ExistingID,
			sub.Verdict.Total, sub.Verdict.PassedCount, sub.Verdict.SkippedCount,
			sub.Verdict.Accepted, submittedAt)
		if err == nil {
			break
		}
		if !isConstraintViolation(err) {
			return nil, fmt.Errorf("insert application: %w", err)
		}
	}

	for _, r := range sub.Results {
		var frameID string
		var frameBytes int
		if r.Frame != nil {
			frameID = r.Frame.ID
			frameBytes = r.Frame.Size()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO attempts
			(reference_id, task_id, completed, attempted_at, frame_id, frame_bytes)
			VALUES (?, ?, ?, ?, ?, ?)`,
			refID, r.TaskID, r.Completed, r.Timestamp.UTC(), frameID, frameBytes); err != nil {
			return nil, fmt.Errorf("insert attempt for %s: %w", r.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submission: %w", err)
	}

	return &Receipt{
		ReferenceID: refID,
		Kind:        app.Kind(),
		Name:        app.Name,
		Mobile:      app.Mobile,
		SubmittedAt: submittedAt,
		Verdict:     sub.Verdict,
	}, nil
}

// Lookup returns the receipt for a reference id.
func (s *Service) Lookup(ctx context.Context, referenceID string) (*Receipt, error) {
	r := &Receipt{ReferenceID: referenceID}
	err := s.db.QueryRowContext(ctx, `SELECT kind, name, mobile, submitted_at,
		total_tasks, passed_tasks, skipped_tasks, accepted
		FROM applications WHERE reference_id = ?`, referenceID,
	).Scan(&r.Kind, &r.Name, &r.Mobile, &r.SubmittedAt,
		&r.Verdict.Total, &r.Verdict.PassedCount, &r.Verdict.SkippedCount, &r.Verdict.Accepted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup %s: %w", referenceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", referenceID, err)
	}
	r.Verdict.AllResolved = true
	return r, nil
}

// Attempts returns the stored attempts for a reference id in order.
func (s *Service) Attempts(ctx context.Context, referenceID string) ([]AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT task_id, completed, attempted_at, frame_id, frame_bytes
		FROM attempts WHERE reference_id = ? ORDER BY id`, referenceID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var rec AttemptRecord
		var frameID sql.NullString
		if err := rows.Scan(&rec.TaskID, &rec.Completed, &rec.AttemptedAt, &frameID, &rec.FrameBytes); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		rec.FrameID = frameID.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of registered applications.
func (s *Service) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM applications").Scan(&n); err != nil {
		return 0, fmt.Errorf("count applications: %w", err)
	}
	return n, nil
}

func isConstraintViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}
