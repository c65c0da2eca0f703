package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/satranslator/translator/internal/model"
	"github.com/satranslator/translator/internal/repo"
)

const (
	codeLength           = 6
	codeExpiry           = 10 * time.Minute
	maxAttempts          = 5
	minAttemptDelay      = 2 * time.Second
	requestWindow        = 10 * time.Minute
	maxRequestsPerWindow = 3
	devCode              = "123456"
)

// CodeIssuer issues and checks six-digit verification codes. Only salted hashes are stored.
type CodeIssuer struct {
	tokens  repo.TokenRepo
	mailer  Mailer
	salt    string
	devMode bool
	logger  *logrus.Logger
	now     func() time.Time
}

// NewCodeIssuer creates a code issuer. In dev mode every code is 123456.
func NewCodeIssuer(tokens repo.TokenRepo, mailer Mailer, salt string, devMode bool, logger *logrus.Logger) *CodeIssuer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CodeIssuer{
		tokens:  tokens,
		mailer:  mailer,
		salt:    salt,
		devMode: devMode,
		logger:  logger,
		now:     time.Now,
	}
}

// Issue replaces any live code for (email, purpose) with a fresh one and mails it.
// At most three codes per address are issued in ten minutes.
func (c *CodeIssuer) Issue(ctx context.Context, email string, purpose model.Purpose, ip string) error {
	count, err := c.tokens.CountRecent(ctx, email, c.now().Add(-requestWindow))
	if err != nil {
		return fmt.Errorf("rate limit check: %w", err)
	}
	if count >= maxRequestsPerWindow {
		return fmt.Errorf("%w: max %d codes per %v", ErrRateLimited, maxRequestsPerWindow, requestWindow)
	}

	code := devCode
	if !c.devMode {
		if code, err = generateCode(); err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
	}

	var requestIP *string
	if ip != "" {
		requestIP = &ip
	}
	hashHex := hex.EncodeToString(hashCode(email, code, c.salt))
	if _, err := c.tokens.CreateOrReplace(ctx, email, purpose, hashHex, c.now().Add(codeExpiry), requestIP); err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	if err := c.mailer.SendCode(ctx, email, purpose, code); err != nil {
		return fmt.Errorf("send code: %w", err)
	}
	return nil
}

// Verify checks code against the live code for (email, purpose) and consumes it. With an empty
// email every live code of the purpose is tried. Returns the address the code was issued to.
func (c *CodeIssuer) Verify(ctx context.Context, email string, purpose model.Purpose, code string) (string, error) {
	if len(code) != codeLength {
		return "", ErrInvalidCode
	}
	if email == "" {
		return c.verifyAny(ctx, purpose, code)
	}

	token, err := c.tokens.GetActive(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrInvalidCode
		}
		return "", fmt.Errorf("load code: %w", err)
	}

	if token.LastAttemptAt != nil && c.now().Sub(*token.LastAttemptAt) < minAttemptDelay {
		return "", ErrTooManyAttempts
	}

	attempts, err := c.tokens.IncrementAttempt(ctx, token.ID)
	if err != nil {
		return "", fmt.Errorf("failed to record attempt: %w", err)
	}

	if subtle.ConstantTimeCompare(hashCode(token.Email, code, c.salt), token.TokenHash) != 1 {
		if attempts >= maxAttempts {
			_ = c.tokens.MarkConsumed(ctx, token.ID)
		}
		return "", ErrInvalidCode
	}

	if err := c.tokens.MarkConsumed(ctx, token.ID); err != nil {
		return "", fmt.Errorf("failed to consume code: %w", err)
	}
	return token.Email, nil
}

// verifyAny checks a code sent without an address against every live code of the purpose.
// A miss counts as an attempt on each of them and the delay applies to the whole set, so the
// email-less path has the same budget as a single address.
func (c *CodeIssuer) verifyAny(ctx context.Context, purpose model.Purpose, code string) (string, error) {
	candidates, err := c.tokens.ListActiveByPurpose(ctx, purpose)
	if err != nil {
		return "", fmt.Errorf("load codes: %w", err)
	}
	now := c.now()
	for _, token := range candidates {
		if token.LastAttemptAt != nil && now.Sub(*token.LastAttemptAt) < minAttemptDelay {
			return "", ErrTooManyAttempts
		}
	}

	for _, token := range candidates {
		if subtle.ConstantTimeCompare(hashCode(token.Email, code, c.salt), token.TokenHash) != 1 {
			continue
		}
		if _, err := c.tokens.IncrementAttempt(ctx, token.ID); err != nil {
			return "", fmt.Errorf("failed to record attempt: %w", err)
		}
		if err := c.tokens.MarkConsumed(ctx, token.ID); err != nil {
			return "", fmt.Errorf("failed to consume code: %w", err)
		}
		return token.Email, nil
	}

	for _, token := range candidates {
		attempts, err := c.tokens.IncrementAttempt(ctx, token.ID)
		if err != nil {
			return "", fmt.Errorf("failed to record attempt: %w", err)
		}
		if attempts >= maxAttempts {
			_ = c.tokens.MarkConsumed(ctx, token.ID)
		}
	}
	return "", ErrInvalidCode
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// hashCode returns SHA-256(lower(email):code:salt)
func hashCode(email, code, salt string) []byte {
	data := fmt.Sprintf("%s:%s:%s", strings.ToLower(email), code, salt)
	hash := sha256.Sum256([]byte(data))
	return hash[:]
}
