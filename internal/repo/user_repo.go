package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/satranslator/translator/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist or does not belong to the caller
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert
	ErrDuplicate = errors.New("already exists")
)

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	MarkEmailVerified(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName, location, bio string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

const userColumns = `id, username, email, first_name, last_name, location, bio, password_hash, email_verified_at, created_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	var idStr string
	err := row.Scan(&idStr, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Location, &u.Bio,
		&u.PasswordHash, &u.EmailVerifiedAt, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("user %w", ErrNotFound)
		}
		return model.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	u.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to parse user ID: %w", err)
	}
	return u, nil
}

// Create inserts an unverified user. A taken e-mail yields ErrDuplicate.
func (r *userRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return model.User{}, fmt.Errorf("user %w", ErrDuplicate)
		}
		return model.User{}, err
	}
	return created, nil
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail retrieves a user by e-mail, case-insensitively
func (r *userRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

// MarkEmailVerified stamps email_verified_at once; later calls keep the first stamp
func (r *userRepo) MarkEmailVerified(ctx context.Context, email string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET email_verified_at = COALESCE(email_verified_at, now())
		WHERE lower(email) = lower($1)
	`, email)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	return expectOne(result, "user")
}

// UpdateProfile overwrites the editable profile fields
func (r *userRepo) UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName, location, bio string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET first_name = $2, last_name = $3, location = $4, bio = $5
		WHERE id = $1
	`, id, firstName, lastName, location, bio)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return expectOne(result, "user")
}

// UpdatePassword stores a new bcrypt hash
func (r *userRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectOne(result, "user")
}

func expectOne(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return nil
}
