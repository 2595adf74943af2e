package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"faceattend/internal/apperr"
)

// Account is a login account; distinct from an enrolled identity.
type Account struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Users stores accounts with bcrypt password hashes.
type Users struct {
	db *sql.DB
}

// NewUsers creates the account store.
func NewUsers(db *sql.DB) *Users {
	return &Users{db: db}
}

// Create registers an account. Email is unique, case-insensitive.
func (u *Users) Create(ctx context.Context, name, email, password, role string) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email", apperr.ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", apperr.ErrValidation)
	}
	if role != "student" && role != "teacher" {
		return nil, fmt.Errorf("%w: role must be student or teacher", apperr.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	acct := &Account{ID: uuid.NewString(), Name: name, Email: email, Role: role}
	_, err = u.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password, role)
		VALUES ($1,$2,$3,$4,$5)
	`, acct.ID, acct.Name, acct.Email, string(hash), acct.Role)
	if err != nil {
		if strings.Contains(err.Error(), "users_email_key") {
			return nil, fmt.Errorf("%w: email already registered", apperr.ErrDuplicate)
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
	}
	return acct, nil
}

// Authenticate checks credentials and returns the account. A wrong
// password and an unknown email fail identically.
func (u *Users) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := u.db.QueryRowContext(ctx, `
		SELECT id, name, email, password, role FROM users WHERE email = $1
	`, email)

	var acct Account
	var hash string
	if err := row.Scan(&acct.ID, &acct.Name, &acct.Email, &hash, &acct.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: bad credentials", apperr.ErrValidation)
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: bad credentials", apperr.ErrValidation)
	}
	return &acct, nil
}
