package repo

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/satranslator/translator/internal/model"
)

// TokenRepo stores hashed verification codes, at most one active per e-mail and purpose
type TokenRepo interface {
	CreateOrReplace(ctx context.Context, email string, purpose model.Purpose, tokenHashHex string, expiresAt time.Time, requestIP *string) (uuid.UUID, error)
	GetActive(ctx context.Context, email string, purpose model.Purpose) (model.VerificationToken, error)
	ListActiveByPurpose(ctx context.Context, purpose model.Purpose) ([]model.VerificationToken, error)
	MarkConsumed(ctx context.Context, id uuid.UUID) error
	IncrementAttempt(ctx context.Context, id uuid.UUID) (newAttemptCount int, err error)
	CountRecent(ctx context.Context, email string, since time.Time) (int, error)
}

type tokenRepo struct {
	db *sql.DB
}

// NewTokenRepo creates a new TokenRepo instance
func NewTokenRepo(db *sql.DB) TokenRepo {
	return &tokenRepo{db: db}
}

// CreateOrReplace consumes any active code for (email, purpose) and inserts a new one in the same
// transaction. An advisory lock serializes concurrent requests for one address.
func (r *tokenRepo) CreateOrReplace(ctx context.Context, email string, purpose model.Purpose, tokenHashHex string, expiresAt time.Time, requestIP *string) (uuid.UUID, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(1, hashtext(lower($1)))`, email); err != nil {
		return uuid.Nil, fmt.Errorf("advisory lock: %w", err)
	}

	// includes expired rows, the unique index does not look at expires_at
	_, err = tx.ExecContext(ctx, `
		UPDATE verification_tokens
		SET consumed_at = now()
		WHERE lower(email) = lower($1) AND purpose = $2 AND consumed_at IS NULL
	`, email, purpose)
	if err != nil {
		return uuid.Nil, fmt.Errorf("consume existing tokens: %w", err)
	}

	var idStr string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO verification_tokens (email, purpose, token_hash, expires_at, request_ip)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, email, purpose, tokenHashHex, expiresAt, requestIP).Scan(&idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return uuid.Parse(idStr)
}

const tokenColumns = `id, email, purpose, token_hash, expires_at, consumed_at, created_at, attempt_count, last_attempt_at, request_ip`

const activeTokenFilter = `consumed_at IS NULL AND expires_at > now() AND attempt_count < 5`

func scanToken(row interface{ Scan(...any) error }) (model.VerificationToken, error) {
	var t model.VerificationToken
	var idStr, hashHex, purpose string
	err := row.Scan(&idStr, &t.Email, &purpose, &hashHex, &t.ExpiresAt, &t.ConsumedAt, &t.CreatedAt,
		&t.AttemptCount, &t.LastAttemptAt, &t.RequestIP)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.VerificationToken{}, fmt.Errorf("token %w", ErrNotFound)
		}
		return model.VerificationToken{}, fmt.Errorf("query token: %w", err)
	}
	t.Purpose = model.Purpose(purpose)
	if t.ID, err = uuid.Parse(idStr); err != nil {
		return model.VerificationToken{}, fmt.Errorf("parse token ID: %w", err)
	}
	if t.TokenHash, err = hex.DecodeString(hashHex); err != nil {
		return model.VerificationToken{}, fmt.Errorf("decode token_hash: %w", err)
	}
	return t, nil
}

// GetActive returns the live (unconsumed, unexpired, under the attempt limit) code
func (r *tokenRepo) GetActive(ctx context.Context, email string, purpose model.Purpose) (model.VerificationToken, error) {
	return scanToken(r.db.QueryRowContext(ctx, `
		SELECT `+tokenColumns+`
		FROM verification_tokens
		WHERE lower(email) = lower($1) AND purpose = $2 AND `+activeTokenFilter+`
		ORDER BY created_at DESC
		LIMIT 1
	`, email, purpose))
}

// ListActiveByPurpose returns every live code of a purpose; used when the client omits the e-mail
func (r *tokenRepo) ListActiveByPurpose(ctx context.Context, purpose model.Purpose) ([]model.VerificationToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+tokenColumns+`
		FROM verification_tokens
		WHERE purpose = $1 AND `+activeTokenFilter+`
		ORDER BY created_at DESC
	`, purpose)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var out []model.VerificationToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkConsumed sets consumed_at = now()
func (r *tokenRepo) MarkConsumed(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE verification_tokens SET consumed_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark consumed: %w", err)
	}
	return expectOne(result, "token")
}

// IncrementAttempt bumps attempt_count and last_attempt_at, returning the new count
func (r *tokenRepo) IncrementAttempt(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		UPDATE verification_tokens
		SET attempt_count = attempt_count + 1, last_attempt_at = now()
		WHERE id = $1
		RETURNING attempt_count
	`, id).Scan(&n)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("token %w", ErrNotFound)
		}
		return 0, fmt.Errorf("increment attempt: %w", err)
	}
	return n, nil
}

// CountRecent counts codes issued to email since the given time, across purposes
func (r *tokenRepo) CountRecent(ctx context.Context, email string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM verification_tokens
		WHERE lower(email) = lower($1) AND created_at >= $2
	`, email, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent tokens: %w", err)
	}
	return count, nil
}
