// Package attendance answers record queries for dashboards: who was
// present, who was absent, and the class-level stats.
package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"faceattend/internal/apperr"
)

// Query filters an attendance lookup. Empty fields do not filter.
type Query struct {
	Date       string
	Subject    string
	Department string
	Year       string
	Division   string
	StudentID  string
}

// Entry is one row of the attendance view. Absent rows may be
// synthesized from the roster when no record exists.
type Entry struct {
	StudentID   string     `json:"studentId"`
	StudentName string     `json:"studentName"`
	Date        string     `json:"date"`
	Subject     string     `json:"subject"`
	Department  string     `json:"department"`
	Year        string     `json:"year"`
	Division    string     `json:"division"`
	Status      string     `json:"status"`
	Confidence  *float64   `json:"confidence,omitempty"`
	MarkedAt    *time.Time `json:"markedAt"`
}

// Repository reads attendance records and the identity roster.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Fetch returns the merged attendance view and its stats. Roster
// members without a record appear as absent, so the caller always sees
// the full class when class filters are given.
func (r *Repository) Fetch(ctx context.Context, q Query) ([]Entry, Stats, error) {
	entries, err := r.records(ctx, q)
	if err != nil {
		return nil, Stats{}, err
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.StudentID] = true
	}

	rosterSize := 0
	if q.Department != "" || q.Year != "" || q.Division != "" {
		roster, err := r.roster(ctx, q)
		if err != nil {
			return nil, Stats{}, err
		}
		rosterSize = len(roster)
		for _, member := range roster {
			if seen[member.id] {
				continue
			}
			if q.StudentID != "" && member.id != q.StudentID {
				continue
			}
			entries = append(entries, Entry{
				StudentID:   member.id,
				StudentName: member.name,
				Date:        q.Date,
				Subject:     q.Subject,
				Department:  q.Department,
				Year:        q.Year,
				Division:    q.Division,
				Status:      "absent",
			})
		}
	}

	return entries, ComputeStats(rosterSize, entries), nil
}

func (r *Repository) records(ctx context.Context, q Query) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id, name, date, subject, department, year, division,
		       status, confidence, marked_at
		FROM attendance_records
		WHERE ($1 = '' OR date = $1)
		  AND ($2 = '' OR subject = $2)
		  AND ($3 = '' OR department = $3)
		  AND ($4 = '' OR year = $4)
		  AND ($5 = '' OR division = $5)
		  AND ($6 = '' OR student_id = $6)
		ORDER BY marked_at DESC NULLS LAST, student_id
	`, q.Date, q.Subject, q.Department, q.Year, q.Division, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.StudentID, &e.StudentName, &e.Date, &e.Subject,
			&e.Department, &e.Year, &e.Division, &e.Status, &e.Confidence, &e.MarkedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rosterMember struct {
	id   string
	name string
}

func (r *Repository) roster(ctx context.Context, q Query) ([]rosterMember, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, name FROM identities
		WHERE role = 'student'
		  AND ($1 = '' OR department = $1)
		  AND ($2 = '' OR year = $2)
		  AND ($3 = '' OR division = $3)
		ORDER BY user_id
	`, q.Department, q.Year, q.Division)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []rosterMember
	for rows.Next() {
		var m rosterMember
		if err := rows.Scan(&m.id, &m.name); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
