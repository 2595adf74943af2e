package identity

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"faceattend/internal/apperr"
)

// Store is the persistence contract the service drives. *Repository is
// the Postgres implementation.
type Store interface {
	Insert(ctx context.Context, id Identity, replace bool) error
	Get(ctx context.Context, userID string) (*Identity, error)
	Candidates(ctx context.Context, f Filter) ([]Identity, error)
	List(ctx context.Context, f Filter) ([]Identity, error)
	Delete(ctx context.Context, userID string) (bool, error)
	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) error
}

var (
	userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)
	namePattern   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z .'-]{1,49}$`)
)

// Service validates enrollment input and serializes writes per user.
type Service struct {
	store Store

	// requiredEmbeddings is the capture count an enrollment must
	// supply, one per direction.
	requiredEmbeddings int
	dim                int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a service over a store. dim is the codec's
// embedding dimensionality; required is the capture count (typically 5).
func NewService(store Store, required, dim int) *Service {
	if required <= 0 {
		required = 5
	}
	return &Service{
		store:              store,
		requiredEmbeddings: required,
		dim:                dim,
		locks:              make(map[string]*sync.Mutex),
	}
}

// RequiredEmbeddings returns the capture count enrollments must supply.
func (s *Service) RequiredEmbeddings() int { return s.requiredEmbeddings }

// Enroll stores an identity with its full embedding set, atomically.
// Partial enrollments are rejected before touching the store.
func (s *Service) Enroll(ctx context.Context, id Identity, replace bool) error {
	if err := s.validate(id); err != nil {
		return err
	}
	unlock := s.lockUser(id.UserID)
	defer unlock()
	return s.store.Insert(ctx, id, replace)
}

// Get returns an identity with embeddings.
func (s *Service) Get(ctx context.Context, userID string) (*Identity, error) {
	return s.store.Get(ctx, userID)
}

// Candidates returns the matchable population for a filter.
func (s *Service) Candidates(ctx context.Context, f Filter) ([]Identity, error) {
	return s.store.Candidates(ctx, f)
}

// List returns identities without biometrics.
func (s *Service) List(ctx context.Context, f Filter) ([]Identity, error) {
	return s.store.List(ctx, f)
}

// Delete removes an identity and all embeddings. Idempotent: the
// second call reports found=false.
func (s *Service) Delete(ctx context.Context, userID string) (bool, error) {
	unlock := s.lockUser(userID)
	defer unlock()
	return s.store.Delete(ctx, userID)
}

// UpdateProfile mutates non-biometric fields. The user_id anchor is
// not updatable by construction.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) error {
	if upd.Name != nil && !namePattern.MatchString(*upd.Name) {
		return fmt.Errorf("%w: invalid name", apperr.ErrValidation)
	}
	unlock := s.lockUser(userID)
	defer unlock()
	return s.store.UpdateProfile(ctx, userID, upd)
}

func (s *Service) validate(id Identity) error {
	if !userIDPattern.MatchString(id.UserID) {
		return fmt.Errorf("%w: user_id must be 3-20 letters, digits, - or _", apperr.ErrValidation)
	}
	if !namePattern.MatchString(id.Name) {
		return fmt.Errorf("%w: name must be 2-50 letters", apperr.ErrValidation)
	}
	if id.Role != RoleStudent && id.Role != RoleTeacher {
		return fmt.Errorf("%w: role must be student or teacher", apperr.ErrValidation)
	}
	if len(id.Embeddings) != s.requiredEmbeddings {
		return fmt.Errorf("%w: got %d embeddings, need %d",
			apperr.ErrValidation, len(id.Embeddings), s.requiredEmbeddings)
	}
	for i, emb := range id.Embeddings {
		if len(emb) != s.dim {
			return fmt.Errorf("%w: embedding %d has dimension %d, want %d",
				apperr.ErrValidation, i, len(emb), s.dim)
		}
	}
	return nil
}

// lockUser serializes writes per user_id; concurrent enroll/delete of
// different users proceed in parallel.
func (s *Service) lockUser(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}
