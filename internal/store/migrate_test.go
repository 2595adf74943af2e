package store

import (
	"context"
	"strings"
	"testing"
)

func TestMigrationsUseEngineDimension(t *testing.T) {
	for _, dim := range []int{128, 512} {
		found := false
		for _, stmt := range migrations(dim) {
			if strings.Contains(stmt, "identity_embeddings") {
				found = true
				want := "VECTOR(128)"
				if dim == 512 {
					want = "VECTOR(512)"
				}
				if !strings.Contains(stmt, want) {
					t.Errorf("dim %d: embeddings table missing %s:\n%s", dim, want, stmt)
				}
			}
		}
		if !found {
			t.Fatalf("dim %d: no identity_embeddings statement", dim)
		}
	}
}

func TestMigrateRejectsBadDimension(t *testing.T) {
	// A nil client would panic if Migrate touched the database before
	// validating the dimension.
	d := &DB{}
	if err := d.Migrate(context.Background(), 0); err == nil {
		t.Fatal("expected error for zero dimension")
	}
	if err := d.Migrate(context.Background(), -1); err == nil {
		t.Fatal("expected error for negative dimension")
	}
}
