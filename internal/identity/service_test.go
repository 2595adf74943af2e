package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"faceattend/internal/apperr"
)

// fakeStore records inserts and simulates the duplicate check.
type fakeStore struct {
	mu       sync.Mutex
	inserted map[string]Identity
}

func newFakeStore() *fakeStore {
	return &fakeStore{inserted: make(map[string]Identity)}
}

func (f *fakeStore) Insert(ctx context.Context, id Identity, replace bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.inserted[id.UserID]; ok && !replace {
		return apperr.ErrDuplicate
	}
	f.inserted[id.UserID] = id
	return nil
}

func (f *fakeStore) Get(ctx context.Context, userID string) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.inserted[userID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &id, nil
}

func (f *fakeStore) Candidates(ctx context.Context, fl Filter) ([]Identity, error) {
	return nil, nil
}

func (f *fakeStore) List(ctx context.Context, fl Filter) ([]Identity, error) {
	return nil, nil
}

func (f *fakeStore) Delete(ctx context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.inserted[userID]; !ok {
		return false, nil
	}
	delete(f.inserted, userID)
	return true, nil
}

func (f *fakeStore) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) error {
	return nil
}

func embeddings(n, dim int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, dim)
		out[i][0] = float32(i + 1)
	}
	return out
}

func validIdentity() Identity {
	return Identity{
		UserID:     "stu_001",
		Name:       "Asha Rao",
		Role:       RoleStudent,
		Embeddings: embeddings(5, 128),
	}
}

func TestEnrollValidIdentity(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, 5, 128)

	if err := svc.Enroll(context.Background(), validIdentity(), false); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if _, ok := store.inserted["stu_001"]; !ok {
		t.Fatal("identity not stored")
	}
}

func TestEnrollValidation(t *testing.T) {
	svc := NewService(newFakeStore(), 5, 128)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*Identity)
	}{
		{"short user id", func(id *Identity) { id.UserID = "ab" }},
		{"user id with spaces", func(id *Identity) { id.UserID = "stu 01" }},
		{"empty name", func(id *Identity) { id.Name = "" }},
		{"name with digits", func(id *Identity) { id.Name = "4lice" }},
		{"bad role", func(id *Identity) { id.Role = "admin" }},
		{"too few embeddings", func(id *Identity) { id.Embeddings = embeddings(3, 128) }},
		{"too many embeddings", func(id *Identity) { id.Embeddings = embeddings(6, 128) }},
		{"wrong dimension", func(id *Identity) { id.Embeddings = embeddings(5, 64) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := validIdentity()
			tc.mutate(&id)
			if err := svc.Enroll(ctx, id, false); !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestEnrollDuplicateWithoutReplace(t *testing.T) {
	svc := NewService(newFakeStore(), 5, 128)
	ctx := context.Background()

	if err := svc.Enroll(ctx, validIdentity(), false); err != nil {
		t.Fatalf("first enroll: %v", err)
	}
	if err := svc.Enroll(ctx, validIdentity(), false); !errors.Is(err, apperr.ErrDuplicate) {
		t.Fatalf("re-enroll err = %v, want duplicate", err)
	}
	if err := svc.Enroll(ctx, validIdentity(), true); err != nil {
		t.Fatalf("replace enroll: %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, 5, 128)
	ctx := context.Background()

	if err := svc.Enroll(ctx, validIdentity(), false); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	found, err := svc.Delete(ctx, "stu_001")
	if err != nil || !found {
		t.Fatalf("first delete: found=%v err=%v", found, err)
	}
	found, err = svc.Delete(ctx, "stu_001")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if found {
		t.Fatal("second delete reported found")
	}
}

func TestUpdateProfileRejectsBadName(t *testing.T) {
	svc := NewService(newFakeStore(), 5, 128)
	bad := "123"
	err := svc.UpdateProfile(context.Background(), "stu_001", ProfileUpdate{Name: &bad})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestFilterEmpty(t *testing.T) {
	if !(Filter{}).Empty() {
		t.Fatal("zero filter should be empty")
	}
	if (Filter{Department: "CS"}).Empty() {
		t.Fatal("filter with a field should not be empty")
	}
}
