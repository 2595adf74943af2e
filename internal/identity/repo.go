package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"faceattend/internal/apperr"
)

// Repository persists identities and their embeddings in Postgres.
// Embeddings live in identity_embeddings, one row per capture, as
// pgvector columns.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes an identity and all of its embeddings in one
// transaction. With replace set, prior embeddings and profile fields
// are overwritten; without it an existing user_id is a conflict.
func (r *Repository) Insert(ctx context.Context, id Identity, replace bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err)
	}
	defer tx.Rollback()

	if !replace {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM identities WHERE user_id = $1)`, id.UserID,
		).Scan(&exists); err != nil {
			return storeErr(err)
		}
		if exists {
			return fmt.Errorf("%w: %s already enrolled", apperr.ErrDuplicate, id.UserID)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO identities (user_id, name, email, role, department, year, division)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			department = EXCLUDED.department,
			year = EXCLUDED.year,
			division = EXCLUDED.division,
			updated_at = NOW()
	`, id.UserID, id.Name, id.Email, id.Role, id.Department, id.Year, id.Division); err != nil {
		return storeErr(err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM identity_embeddings WHERE user_id = $1`, id.UserID); err != nil {
		return storeErr(err)
	}

	for pos, emb := range id.Embeddings {
		photoURL := ""
		if pos < len(id.PhotoURLs) {
			photoURL = id.PhotoURLs[pos]
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO identity_embeddings (user_id, pos, embedding, photo_url)
			VALUES ($1,$2,$3,$4)
		`, id.UserID, pos, pgvector.NewVector(emb), photoURL); err != nil {
			return storeErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr(err)
	}
	return nil
}

// Get returns one identity with its embeddings.
func (r *Repository) Get(ctx context.Context, userID string) (*Identity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, name, email, role, department, year, division, created_at
		FROM identities WHERE user_id = $1
	`, userID)
	var id Identity
	if err := row.Scan(&id.UserID, &id.Name, &id.Email, &id.Role,
		&id.Department, &id.Year, &id.Division, &id.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: identity %s", apperr.ErrNotFound, userID)
		}
		return nil, storeErr(err)
	}
	if err := r.loadEmbeddings(ctx, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Candidates returns the matchable population, optionally narrowed by
// class filters. Empty filter fields never narrow, so a blank filter
// yields every enrolled identity.
func (r *Repository) Candidates(ctx context.Context, f Filter) ([]Identity, error) {
	ids, err := r.list(ctx, f)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT e.user_id, e.embedding
		FROM identity_embeddings e
		JOIN identities i ON i.user_id = e.user_id
		WHERE ($1 = '' OR i.department = $1)
		  AND ($2 = '' OR i.year = $2)
		  AND ($3 = '' OR i.division = $3)
		ORDER BY e.user_id, e.pos
	`, f.Department, f.Year, f.Division)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	byUser := make(map[string]*Identity, len(ids))
	for i := range ids {
		byUser[ids[i].UserID] = &ids[i]
	}
	for rows.Next() {
		var uid string
		var vec pgvector.Vector
		if err := rows.Scan(&uid, &vec); err != nil {
			return nil, storeErr(err)
		}
		if id, ok := byUser[uid]; ok {
			id.Embeddings = append(id.Embeddings, vec.Slice())
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}

	// Only identities with embeddings can be matched.
	out := ids[:0]
	for _, id := range ids {
		if len(id.Embeddings) > 0 {
			out = append(out, id)
		}
	}
	return out, nil
}

// List returns identities without embeddings, for rosters and CRUD.
func (r *Repository) List(ctx context.Context, f Filter) ([]Identity, error) {
	return r.list(ctx, f)
}

// Delete removes an identity and, via cascade, its embeddings. The
// second deletion of the same id reports found=false, not an error.
func (r *Repository) Delete(ctx context.Context, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM identities WHERE user_id = $1`, userID)
	if err != nil {
		return false, storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(err)
	}
	return n > 0, nil
}

// UpdateProfile mutates non-biometric fields only.
func (r *Repository) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) error {
	sets := []string{"updated_at = NOW()"}
	args := []any{userID}
	add := func(col string, v *string) {
		if v != nil {
			args = append(args, *v)
			sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	add("name", upd.Name)
	add("email", upd.Email)
	add("department", upd.Department)
	add("year", upd.Year)
	add("division", upd.Division)

	res, err := r.db.ExecContext(ctx,
		`UPDATE identities SET `+strings.Join(sets, ", ")+` WHERE user_id = $1`, args...)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: identity %s", apperr.ErrNotFound, userID)
	}
	return nil
}

func (r *Repository) list(ctx context.Context, f Filter) ([]Identity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, name, email, role, department, year, division, created_at
		FROM identities
		WHERE ($1 = '' OR department = $1)
		  AND ($2 = '' OR year = $2)
		  AND ($3 = '' OR division = $3)
		ORDER BY user_id
	`, f.Department, f.Year, f.Division)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var out []Identity
	for rows.Next() {
		var id Identity
		if err := rows.Scan(&id.UserID, &id.Name, &id.Email, &id.Role,
			&id.Department, &id.Year, &id.Division, &id.CreatedAt); err != nil {
			return nil, storeErr(err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repository) loadEmbeddings(ctx context.Context, id *Identity) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT embedding, photo_url FROM identity_embeddings
		WHERE user_id = $1 ORDER BY pos
	`, id.UserID)
	if err != nil {
		return storeErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var vec pgvector.Vector
		var photoURL string
		if err := rows.Scan(&vec, &photoURL); err != nil {
			return storeErr(err)
		}
		id.Embeddings = append(id.Embeddings, vec.Slice())
		if photoURL != "" {
			id.PhotoURLs = append(id.PhotoURLs, photoURL)
		}
	}
	return rows.Err()
}

// storeErr classifies database failures as unavailable so callers get
// a single structured error instead of partial results.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
}
