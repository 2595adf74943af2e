// Package identity is the durable store of enrolled users and their
// face embeddings.
package identity

import "time"

// Roles an identity can hold. The role affects which operations the
// caller may perform, never matching.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// Identity is an enrolled user with one embedding per capture
// direction (front/left/right/up/down).
type Identity struct {
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Role       string    `json:"role"`
	Department string    `json:"department,omitempty"`
	Year       string    `json:"year,omitempty"`
	Division   string    `json:"division,omitempty"`
	PhotoURLs  []string  `json:"photo_urls,omitempty"`
	CreatedAt  time.Time `json:"created_at"`

	// Embeddings are position-ordered and share one dimensionality.
	// Omitted from JSON; biometrics never leave the engine.
	Embeddings [][]float32 `json:"-"`
}

// Filter narrows a candidate lookup. Empty fields do not narrow, so an
// all-empty filter returns the full population.
type Filter struct {
	Department string
	Year       string
	Division   string
}

// Empty reports whether the filter narrows anything.
func (f Filter) Empty() bool {
	return f.Department == "" && f.Year == "" && f.Division == ""
}

// ProfileUpdate carries the mutable non-biometric fields. Nil fields
// are left untouched. The user_id identity anchor cannot be changed.
type ProfileUpdate struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Department *string `json:"department"`
	Year       *string `json:"year"`
	Division   *string `json:"division"`
}
