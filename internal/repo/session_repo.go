package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/satranslator/translator/internal/model"
)

// SessionRepo stores signed-in devices
type SessionRepo interface {
	Create(ctx context.Context, userID uuid.UUID, deviceName, deviceType, ip string) (model.Session, error)
	GetActive(ctx context.Context, id uuid.UUID) (model.Session, error)
	Touch(ctx context.Context, id uuid.UUID) error
	ListActive(ctx context.Context, userID uuid.UUID) ([]model.Session, error)
	Revoke(ctx context.Context, userID, id uuid.UUID) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

type sessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo instance
func NewSessionRepo(db *sql.DB) SessionRepo {
	return &sessionRepo{db: db}
}

const sessionColumns = `id, user_id, device_name, device_type, ip_address, created_at, last_active_at, revoked_at`

func scanSession(row interface{ Scan(...any) error }) (model.Session, error) {
	var s model.Session
	var idStr, userIDStr string
	err := row.Scan(&idStr, &userIDStr, &s.DeviceName, &s.DeviceType, &s.IPAddress, &s.CreatedAt, &s.LastActiveAt, &s.RevokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, fmt.Errorf("session %w", ErrNotFound)
		}
		return model.Session{}, fmt.Errorf("query session: %w", err)
	}
	if s.ID, err = uuid.Parse(idStr); err != nil {
		return model.Session{}, fmt.Errorf("parse session ID: %w", err)
	}
	if s.UserID, err = uuid.Parse(userIDStr); err != nil {
		return model.Session{}, fmt.Errorf("parse user ID: %w", err)
	}
	return s, nil
}

// Create opens a session for a device
func (r *sessionRepo) Create(ctx context.Context, userID uuid.UUID, deviceName, deviceType, ip string) (model.Session, error) {
	return scanSession(r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (user_id, device_name, device_type, ip_address)
		VALUES ($1, $2, $3, $4)
		RETURNING `+sessionColumns,
		userID, deviceName, deviceType, ip))
}

// GetActive returns the session if it has not been revoked
func (r *sessionRepo) GetActive(ctx context.Context, id uuid.UUID) (model.Session, error) {
	return scanSession(r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = $1 AND revoked_at IS NULL
	`, id))
}

// Touch records activity on the session
func (r *sessionRepo) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET last_active_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// ListActive returns the user's live sessions, most recently active first
func (r *sessionRepo) ListActive(ctx context.Context, userID uuid.UUID) ([]model.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1 AND revoked_at IS NULL
		ORDER BY last_active_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Revoke ends one of the user's sessions. Sessions of other users are reported as not found.
func (r *sessionRepo) Revoke(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = now()
		WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL
	`, id, userID)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return expectOne(result, "session")
}

// RevokeAllForUser ends every live session of the user
func (r *sessionRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL
	`, userID)
	if err != nil {
		return fmt.Errorf("revoke all sessions for user: %w", err)
	}
	return nil
}
