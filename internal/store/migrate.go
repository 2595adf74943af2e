package store

import (
	"context"
	"fmt"
)

// migrations are applied in order at startup. Statements must be
// idempotent; there is no down path. dim is the embedding width the
// face engine produces.
func migrations(dim int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS users (
			id          UUID PRIMARY KEY,
			email       TEXT NOT NULL UNIQUE,
			name        TEXT NOT NULL,
			role        TEXT NOT NULL CHECK (role IN ('student', 'teacher')),
			password    TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS identities (
			user_id     TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			email       TEXT NOT NULL DEFAULT '',
			role        TEXT NOT NULL DEFAULT 'student',
			department  TEXT NOT NULL DEFAULT '',
			year        TEXT NOT NULL DEFAULT '',
			division    TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS identity_embeddings (
			user_id     TEXT NOT NULL REFERENCES identities(user_id) ON DELETE CASCADE,
			pos         SMALLINT NOT NULL,
			embedding   VECTOR(%d) NOT NULL,
			photo_url   TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (user_id, pos)
		)`, dim),

		`CREATE INDEX IF NOT EXISTS idx_identities_class
			ON identities (department, year, division)`,

		`CREATE TABLE IF NOT EXISTS attendance_sessions (
			id          UUID PRIMARY KEY,
			date        TEXT NOT NULL,
			subject     TEXT NOT NULL,
			department  TEXT NOT NULL,
			year        TEXT NOT NULL,
			division    TEXT NOT NULL,
			finalized   BOOLEAN NOT NULL DEFAULT FALSE,
			ended_at    TIMESTAMPTZ,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS attendance_records (
			id          UUID PRIMARY KEY,
			session_id  UUID NOT NULL REFERENCES attendance_sessions(id) ON DELETE CASCADE,
			student_id  TEXT NOT NULL,
			name        TEXT NOT NULL DEFAULT '',
			date        TEXT NOT NULL,
			subject     TEXT NOT NULL,
			department  TEXT NOT NULL,
			year        TEXT NOT NULL,
			division    TEXT NOT NULL,
			status      TEXT NOT NULL CHECK (status IN ('present', 'absent')),
			confidence  DOUBLE PRECISION,
			marked_at   TIMESTAMPTZ,
			UNIQUE (session_id, student_id)
		)`,

		// Mark-once across sessions sharing a scope: at most one present
		// record per student per (date, subject, class).
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_present_scope
			ON attendance_records (student_id, date, subject, department, year, division)
			WHERE status = 'present'`,

		`CREATE INDEX IF NOT EXISTS idx_records_query
			ON attendance_records (date, department, year, division, subject)`,
	}
}

// Migrate applies the schema and verifies the embedding column matches
// the engine's dimensionality. CREATE TABLE IF NOT EXISTS never alters
// an existing column, so a dimension change must fail here, at boot,
// rather than on the first enrollment insert.
func (d *DB) Migrate(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	for i, stmt := range migrations(dim) {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return d.checkEmbeddingDim(ctx, dim)
}

// checkEmbeddingDim compares the deployed column width against dim.
// pgvector stores the dimension as the column's typmod.
func (d *DB) checkEmbeddingDim(ctx context.Context, dim int) error {
	var current int
	err := d.Client.QueryRowContext(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = 'identity_embeddings'::regclass AND attname = 'embedding'
	`).Scan(&current)
	if err != nil {
		return fmt.Errorf("check embedding column: %w", err)
	}
	if current != dim {
		return fmt.Errorf("identity_embeddings.embedding is %d-d but the face engine produces %d-d vectors; migrate the column before changing engines", current, dim)
	}
	return nil
}
