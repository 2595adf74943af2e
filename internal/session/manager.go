package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"faceattend/internal/apperr"
	"faceattend/internal/identity"
)

// Roster lists the class population for absentee fill on finalize.
type Roster interface {
	List(ctx context.Context, f identity.Filter) ([]identity.Identity, error)
}

// Manager owns session lifecycle and the mark-once guarantee.
type Manager struct {
	store  Store
	marked MarkedSet
	roster Roster
	maxAge time.Duration
}

// NewManager creates a manager. marked may be nil, in which case every
// mark goes straight to the database constraint.
func NewManager(store Store, marked MarkedSet, roster Roster, maxAge time.Duration) *Manager {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Manager{store: store, marked: marked, roster: roster, maxAge: maxAge}
}

// Create allocates a new session. All filter fields are required; the
// filters are fixed for the session's lifetime.
func (m *Manager) Create(ctx context.Context, f Filters) (*Session, error) {
	if err := validateFilters(f); err != nil {
		return nil, err
	}
	sess := Session{
		ID:        uuid.NewString(),
		Filters:   f,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Get returns a session by id.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	return m.store.Get(ctx, id)
}

// MarkPresent credits a student in a session. Idempotent: re-marking
// returns the prior record and reports marked=false. A cancelled
// context discards the mark instead of committing partial work.
func (m *Manager) MarkPresent(ctx context.Context, sessionID, studentID, name string, confidence float64) (*Record, bool, error) {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	if sess.Finalized {
		return nil, false, fmt.Errorf("%w: session %s already finalized", apperr.ErrValidation, sessionID)
	}

	// Fast path: the marked-set already knows this student. Redis
	// being down just means we fall through to the insert.
	if m.marked != nil {
		fresh, err := m.marked.Add(ctx, sessionID, studentID)
		if err == nil && !fresh {
			if prior, err := m.store.GetMark(ctx, sessionID, studentID); err == nil && prior != nil {
				return prior, false, nil
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	rec := Record{
		SessionID:  sessionID,
		StudentID:  studentID,
		Name:       name,
		Filters:    sess.Filters,
		Status:     StatusPresent,
		Confidence: &confidence,
		MarkedAt:   &now,
	}
	return m.store.InsertPresent(ctx, rec)
}

// Finalize fills in absent records for every roster member without a
// mark and stamps the session. Further marks are rejected.
func (m *Manager) Finalize(ctx context.Context, sessionID string) (*Summary, error) {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	records, err := m.store.Records(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec.Status == StatusPresent {
			present[rec.StudentID] = true
		}
	}

	roster, err := m.roster.List(ctx, identity.Filter{
		Department: sess.Department,
		Year:       sess.Year,
		Division:   sess.Division,
	})
	if err != nil {
		return nil, err
	}

	absent := 0
	students := 0
	for _, member := range roster {
		if member.Role != identity.RoleStudent {
			continue
		}
		students++
		if present[member.UserID] {
			continue
		}
		if err := m.store.InsertAbsent(ctx, Record{
			SessionID: sessionID,
			StudentID: member.UserID,
			Name:      member.Name,
			Filters:   sess.Filters,
			Status:    StatusAbsent,
		}); err != nil {
			return nil, err
		}
		absent++
	}

	if err := m.store.Finalize(ctx, sessionID, time.Now().UTC()); err != nil {
		return nil, err
	}
	if m.marked != nil {
		_ = m.marked.Clear(ctx, sessionID)
	}

	return &Summary{
		PresentCount:  len(present),
		AbsentCount:   absent,
		TotalStudents: students,
	}, nil
}

// Sweep deletes sessions older than the configured max age.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-m.maxAge)
	n, err := m.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("session sweep removed %d sessions older than %s", n, m.maxAge)
	}
	return n, nil
}

func validateFilters(f Filters) error {
	missing := ""
	switch {
	case f.Date == "":
		missing = "date"
	case f.Subject == "":
		missing = "subject"
	case f.Department == "":
		missing = "department"
	case f.Year == "":
		missing = "year"
	case f.Division == "":
		missing = "division"
	}
	if missing != "" {
		return fmt.Errorf("%w: %s is required", apperr.ErrValidation, missing)
	}
	if _, err := time.Parse("2006-01-02", f.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", apperr.ErrValidation)
	}
	return nil
}
