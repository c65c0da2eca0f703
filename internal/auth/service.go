package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/satranslator/translator/internal/model"
	"github.com/satranslator/translator/internal/repo"
)

// DeviceInfo identifies the client opening a session
type DeviceInfo struct {
	Name string
	Type string
	IP   string
}

// RegisterInput is a new account
type RegisterInput struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Principal is the caller behind a verified token
type Principal struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	Scope     string

	// PasswordVersion is set for reset-scoped callers
	PasswordVersion string
}

// ProfileInput holds the editable profile fields
type ProfileInput struct {
	FirstName string
	LastName  string
	Location  string
	Bio       string
}

// AuthService orchestrates authentication operations
type AuthService struct {
	codes    *CodeIssuer
	jwt      *JWTService
	users    repo.UserRepo
	sessions repo.SessionRepo
	logger   *logrus.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(codes *CodeIssuer, jwtService *JWTService, users repo.UserRepo, sessions repo.SessionRepo, logger *logrus.Logger) *AuthService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthService{
		codes:    codes,
		jwt:      jwtService,
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
}

// Register creates an unverified account and sends a REGISTER code
func (s *AuthService) Register(ctx context.Context, in RegisterInput, ip string) (model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	hash, err := HashPassword(in.Password)
	if err != nil {
		return model.User{}, err
	}

	user, err := s.users.Create(ctx, model.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        in.Email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.codes.Issue(ctx, user.Email, model.PurposeRegister, ip); err != nil {
		return model.User{}, fmt.Errorf("failed to issue code: %w", err)
	}
	return user, nil
}

// Login checks credentials, opens a session for the device and returns an access token
func (s *AuthService) Login(ctx context.Context, email, password string, device DeviceInfo) (model.User, string, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.User{}, "", ErrInvalidCredentials
		}
		return model.User{}, "", fmt.Errorf("failed to load user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return model.User{}, "", ErrInvalidCredentials
	}
	if !user.Verified() {
		return model.User{}, "", ErrEmailNotVerified
	}

	session, err := s.sessions.Create(ctx, user.ID, device.Name, device.Type, device.IP)
	if err != nil {
		return model.User{}, "", fmt.Errorf("failed to create session: %w", err)
	}
	token, err := s.jwt.SignAccessToken(user.ID, session.ID)
	if err != nil {
		return model.User{}, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user, token, nil
}

// VerifyCode consumes a code. REGISTER and EMAIL_RESET mark the address verified;
// PASSWORD_RESET returns a reset-scoped token.
func (s *AuthService) VerifyCode(ctx context.Context, email, code string, purpose model.Purpose) (string, error) {
	verified, err := s.codes.Verify(ctx, strings.TrimSpace(email), purpose, strings.TrimSpace(code))
	if err != nil {
		return "", err
	}

	switch purpose {
	case model.PurposePasswordReset:
		user, err := s.users.GetByEmail(ctx, verified)
		if err != nil {
			return "", fmt.Errorf("failed to load user: %w", err)
		}
		token, err := s.jwt.SignResetToken(user.ID, PasswordVersion(user.PasswordHash))
		if err != nil {
			return "", fmt.Errorf("failed to generate reset token: %w", err)
		}
		return token, nil
	default:
		if err := s.users.MarkEmailVerified(ctx, verified); err != nil {
			return "", fmt.Errorf("failed to verify email: %w", err)
		}
		return "", nil
	}
}

// ResendCode issues a fresh code. Unknown addresses are accepted without sending anything.
func (s *AuthService) ResendCode(ctx context.Context, email string, purpose model.Purpose, ip string) error {
	email = strings.TrimSpace(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.WithField("email", MaskEmail(email)).Info("code requested for unknown address")
			return nil
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	return s.codes.Issue(ctx, user.Email, purpose, ip)
}

// ForgotPassword issues a PASSWORD_RESET code
func (s *AuthService) ForgotPassword(ctx context.Context, email, ip string) error {
	return s.ResendCode(ctx, email, model.PurposePasswordReset, ip)
}

// Authenticate turns a bearer token into a Principal. Access tokens must point at a live session;
// reset tokens stop working once the password they were issued for has changed.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := s.jwt.VerifyToken(token)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	p := Principal{UserID: claims.UserID, SessionID: claims.SessionID, Scope: claims.Scope}
	if p.Scope == ScopeReset {
		user, err := s.users.GetByID(ctx, p.UserID)
		if err != nil {
			return Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		if !samePasswordVersion(claims.PasswordVersion, user.PasswordHash) {
			return Principal{}, fmt.Errorf("%w: reset token already used", ErrUnauthorized)
		}
		p.PasswordVersion = claims.PasswordVersion
		return p, nil
	}

	session, err := s.sessions.GetActive(ctx, p.SessionID)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if session.UserID != p.UserID {
		return Principal{}, ErrUnauthorized
	}
	if err := s.sessions.Touch(ctx, p.SessionID); err != nil {
		s.logger.WithError(err).WithField("session_id", p.SessionID).Warn("failed to touch session")
	}
	return p, nil
}

// GetUser loads the caller's account
func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile saves the editable fields and returns the updated account
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (model.User, error) {
	err := s.users.UpdateProfile(ctx, userID,
		strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName),
		strings.TrimSpace(in.Location), strings.TrimSpace(in.Bio))
	if err != nil {
		return model.User{}, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.users.GetByID(ctx, userID)
}

// ChangePassword sets a new password. Reset-scoped callers skip the current-password check and
// every session of the account is signed out afterwards.
func (s *AuthService) ChangePassword(ctx context.Context, p Principal, current, next, confirmation string) error {
	if next != confirmation {
		return ErrPasswordMismatch
	}
	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if p.Scope == ScopeReset {
		if !samePasswordVersion(p.PasswordVersion, user.PasswordHash) {
			return ErrUnauthorized
		}
	} else if !CheckPassword(user.PasswordHash, current) {
		return ErrWrongPassword
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if p.Scope == ScopeReset {
		if err := s.sessions.RevokeAllForUser(ctx, user.ID); err != nil {
			return fmt.Errorf("failed to sign out sessions: %w", err)
		}
	}
	return nil
}

// ListSessions returns the caller's live sessions
func (s *AuthService) ListSessions(ctx context.Context, userID uuid.UUID) ([]model.Session, error) {
	return s.sessions.ListActive(ctx, userID)
}

// RevokeSession ends one of the caller's sessions
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	return s.sessions.Revoke(ctx, userID, sessionID)
}

func samePasswordVersion(version, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(version), []byte(PasswordVersion(hash))) == 1
}
