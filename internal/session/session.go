// Package session manages live attendance sessions and the mark-once
// guarantee. Sessions have no terminal state machine: they are scoped
// by their filters and swept by age, with an optional finalize step
// that fills in absentees.
package session

import "time"

// Filters scope a session and define its candidate population. They
// are fixed at creation.
type Filters struct {
	Date       string `json:"date"`
	Subject    string `json:"subject"`
	Department string `json:"department"`
	Year       string `json:"year"`
	Division   string `json:"division"`
}

// Session is one live attendance-taking window.
type Session struct {
	ID string `json:"session_id"`
	Filters
	Finalized bool       `json:"finalized"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Record statuses.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
)

// Record is one attendance outcome for one student in one session.
type Record struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	StudentID string `json:"student_id"`
	Name      string `json:"name,omitempty"`
	Filters
	Status     string     `json:"status"`
	Confidence *float64   `json:"confidence,omitempty"`
	MarkedAt   *time.Time `json:"marked_at,omitempty"`
}

// Summary reports finalize statistics.
type Summary struct {
	PresentCount  int `json:"present_count"`
	AbsentCount   int `json:"absent_count"`
	TotalStudents int `json:"total_students"`
}
