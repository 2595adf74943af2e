package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"faceattend/internal/apperr"
)

// Store is the persistence contract for sessions and attendance
// records. *PGStore is the Postgres implementation.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (*Session, error)
	InsertPresent(ctx context.Context, rec Record) (*Record, bool, error)
	GetMark(ctx context.Context, sessionID, studentID string) (*Record, error)
	InsertAbsent(ctx context.Context, rec Record) error
	Records(ctx context.Context, sessionID string) ([]Record, error)
	Finalize(ctx context.Context, id string, endedAt time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PGStore persists sessions in Postgres. The mark-once invariant is
// enforced by a unique (session_id, student_id) pair plus a partial
// unique index on present records per (student, date, subject, class),
// so it holds even across sessions sharing a scope.
type PGStore struct {
	db *sql.DB
}

// NewPGStore creates a store.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// Create inserts a new session row.
func (s *PGStore) Create(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_sessions (id, date, subject, department, year, division, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, sess.ID, sess.Date, sess.Subject, sess.Department, sess.Year, sess.Division, sess.CreatedAt)
	return storeErr(err)
}

// Get returns a session by id.
func (s *PGStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, date, subject, department, year, division, finalized, ended_at, created_at
		FROM attendance_sessions WHERE id = $1
	`, id)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.Date, &sess.Subject, &sess.Department,
		&sess.Year, &sess.Division, &sess.Finalized, &sess.EndedAt, &sess.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: session %s", apperr.ErrNotFound, id)
		}
		return nil, storeErr(err)
	}
	return &sess, nil
}

// InsertPresent records a present mark. When the student is already
// credited — in this session or another session with the same scope —
// no new row is written and the prior record is returned.
func (s *PGStore) InsertPresent(ctx context.Context, rec Record) (*Record, bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_records
			(id, session_id, student_id, name, date, subject, department, year, division, status, confidence, marked_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'present',$10,$11)
		ON CONFLICT DO NOTHING
	`, rec.ID, rec.SessionID, rec.StudentID, rec.Name, rec.Date, rec.Subject,
		rec.Department, rec.Year, rec.Division, rec.Confidence, rec.MarkedAt)
	if err != nil {
		return nil, false, storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, storeErr(err)
	}
	if n > 0 {
		return &rec, true, nil
	}

	prior, err := s.findPresent(ctx, rec)
	if err != nil {
		return nil, false, err
	}
	return prior, false, nil
}

// GetMark returns the record for one student in one session, or nil
// when none exists.
func (s *PGStore) GetMark(ctx context.Context, sessionID, studentID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, student_id, name, date, subject, department, year, division,
		       status, confidence, marked_at
		FROM attendance_records WHERE session_id = $1 AND student_id = $2
	`, sessionID, studentID)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.Name,
		&rec.Date, &rec.Subject, &rec.Department, &rec.Year, &rec.Division,
		&rec.Status, &rec.Confidence, &rec.MarkedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr(err)
	}
	return &rec, nil
}

// InsertAbsent records an absent entry during finalize. A student with
// any existing record in the session keeps it.
func (s *PGStore) InsertAbsent(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_records
			(id, session_id, student_id, name, date, subject, department, year, division, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'absent')
		ON CONFLICT (session_id, student_id) DO NOTHING
	`, rec.ID, rec.SessionID, rec.StudentID, rec.Name, rec.Date, rec.Subject,
		rec.Department, rec.Year, rec.Division)
	return storeErr(err)
}

// Records lists all records for a session.
func (s *PGStore) Records(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, student_id, name, date, subject, department, year, division,
		       status, confidence, marked_at
		FROM attendance_records WHERE session_id = $1 ORDER BY student_id
	`, sessionID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.Name,
			&rec.Date, &rec.Subject, &rec.Department, &rec.Year, &rec.Division,
			&rec.Status, &rec.Confidence, &rec.MarkedAt); err != nil {
			return nil, storeErr(err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Finalize stamps a session as ended.
func (s *PGStore) Finalize(ctx context.Context, id string, endedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE attendance_sessions SET finalized = TRUE, ended_at = $2 WHERE id = $1
	`, id, endedAt)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: session %s", apperr.ErrNotFound, id)
	}
	return nil
}

// DeleteOlderThan removes aged sessions; records cascade.
func (s *PGStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM attendance_sessions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}

// findPresent locates the record that blocked an insert: first the
// same-session mark, then a present mark from another session with the
// same scope.
func (s *PGStore) findPresent(ctx context.Context, rec Record) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, student_id, name, date, subject, department, year, division,
		       status, confidence, marked_at
		FROM attendance_records
		WHERE (session_id = $1 AND student_id = $2)
		   OR (student_id = $2 AND date = $3 AND subject = $4
		       AND department = $5 AND year = $6 AND division = $7 AND status = 'present')
		ORDER BY (session_id = $1) DESC
		LIMIT 1
	`, rec.SessionID, rec.StudentID, rec.Date, rec.Subject, rec.Department, rec.Year, rec.Division)
	var out Record
	if err := row.Scan(&out.ID, &out.SessionID, &out.StudentID, &out.Name,
		&out.Date, &out.Subject, &out.Department, &out.Year, &out.Division,
		&out.Status, &out.Confidence, &out.MarkedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: conflicting record vanished", apperr.ErrUnavailable)
		}
		return nil, storeErr(err)
	}
	return &out, nil
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
}
