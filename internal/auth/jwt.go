package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token scopes
const (
	// ScopeAccess tokens are bound to a device session and open every protected endpoint
	ScopeAccess = "access"
	// ScopeReset tokens come out of a PASSWORD_RESET verification and only open change-password
	ScopeReset = "password_reset"
)

// JWTClaims are the claims of both access and reset tokens
type JWTClaims struct {
	UserID    uuid.UUID `json:"sub"`
	SessionID uuid.UUID `json:"sid,omitempty"`
	Scope     string    `json:"scope"`

	// PasswordVersion pins a reset token to the password it replaces
	PasswordVersion string `json:"pwv,omitempty"`

	jwt.RegisteredClaims
}

// JWTService handles JWT token operations
type JWTService struct {
	secret    []byte
	accessTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(secret string, accessTTL, resetTTL time.Duration) *JWTService {
	return &JWTService{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		resetTTL:  resetTTL,
		now:       time.Now,
	}
}

// SignAccessToken creates a token for a user signed in on one session
func (s *JWTService) SignAccessToken(userID, sessionID uuid.UUID) (string, error) {
	return s.sign(JWTClaims{UserID: userID, SessionID: sessionID, Scope: ScopeAccess}, s.accessTTL)
}

// SignResetToken creates a short-lived token that may only change the password, and only while
// the password is still the one fingerprinted by passwordVersion
func (s *JWTService) SignResetToken(userID uuid.UUID, passwordVersion string) (string, error) {
	return s.sign(JWTClaims{UserID: userID, Scope: ScopeReset, PasswordVersion: passwordVersion}, s.resetTTL)
}

func (s *JWTService) sign(claims JWTClaims, ttl time.Duration) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", claims.Scope, err)
	}
	return tokenString, nil
}

// VerifyToken verifies and parses a JWT token
func (s *JWTService) VerifyToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("token has no subject")
	}
	switch claims.Scope {
	case ScopeAccess:
		if claims.SessionID == uuid.Nil {
			return nil, fmt.Errorf("access token has no session")
		}
	case ScopeReset:
		if claims.PasswordVersion == "" {
			return nil, fmt.Errorf("reset token has no password version")
		}
	default:
		return nil, fmt.Errorf("unknown token scope %q", claims.Scope)
	}
	return claims, nil
}
