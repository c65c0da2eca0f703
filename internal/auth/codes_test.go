package auth

import (
	"context"
	"encoding/hex"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satranslator/translator/internal/model"
)

func TestHashCode_consistency(t *testing.T) {
	h1 := hex.EncodeToString(hashCode("a@example.com", "123456", "salt"))
	h2 := hex.EncodeToString(hashCode("A@Example.com", "123456", "salt"))
	assert.Equal(t, h1, h2, "address case must not matter")
	assert.Len(t, h1, 64)
}

func TestHashCode_differentInputsDifferentHash(t *testing.T) {
	h1 := hashCode("a@example.com", "123456", "salt")
	h2 := hashCode("b@example.com", "123456", "salt")
	h3 := hashCode("a@example.com", "654321", "salt")
	h4 := hashCode("a@example.com", "123456", "pepper")
	assert.NotEqual(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.NotEqual(t, h1, h4)
}

func TestGenerateCode(t *testing.T) {
	re := regexp.MustCompile(`^[1-9]\d{5}$`)
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
	}
}

func newIssuer(devMode bool) (*CodeIssuer, *memTokens, *outbox, *clock) {
	clk := &clock{t: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
	tokens := &memTokens{now: clk.Now}
	mail := &outbox{}
	issuer := NewCodeIssuer(tokens, mail, "salt", devMode, nil)
	issuer.now = clk.Now
	return issuer, tokens, mail, clk
}

func TestIssueVerify_devMode(t *testing.T) {
	issuer, _, mail, _ := newIssuer(true)
	ctx := context.Background()

	require.NoError(t, issuer.Issue(ctx, "a@example.com", model.PurposeRegister, "10.0.0.1"))
	assert.Equal(t, devCode, mail.last("a@example.com", model.PurposeRegister))

	email, err := issuer.Verify(ctx, "A@example.com", model.PurposeRegister, devCode)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)

	_, err = issuer.Verify(ctx, "a@example.com", model.PurposeRegister, devCode)
	assert.ErrorIs(t, err, ErrInvalidCode, "codes are single use")
}

func TestIssueVerify_generatedCode(t *testing.T) {
	issuer, _, mail, _ := newIssuer(false)
	ctx := context.Background()

	require.NoError(t, issuer.Issue(ctx, "a@example.com", model.PurposePasswordReset, ""))
	code := mail.last("a@example.com", model.PurposePasswordReset)
	require.Len(t, code, codeLength)

	_, err := issuer.Verify(ctx, "a@example.com", model.PurposeRegister, code)
	assert.ErrorIs(t, err, ErrInvalidCode, "purpose must match")

	email, err := issuer.Verify(ctx, "a@example.com", model.PurposePasswordReset, code)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)
}

func TestIssue_replacesPreviousCode(t *testing.T) {
	issuer, _, mail, _ := newIssuer(false)
	ctx := context.Background()

	require.NoError(t, issuer.Issue(ctx, "a@example.com", model.PurposeRegister, ""))
	first := mail.last("a@example.com", model.PurposeRegister)
	require.NoError(t, issuer.Issue(ctx, "a@example.com", model.PurposeRegister, ""))
	second := mail.last("a@example.com", model.PurposeRegister)

	if first != second {
		_, err := issuer.Verify(ctx, "a@example.com", model.PurposeRegister, first)
		assert.ErrorIs(t, err, ErrInvalidCode)
	}
}

func TestIssue_rateLimit(t *testing.T) {
	issuer, _, _, clk := newIssuer(true)
	ctx := context.Background()

	for i := 0; i < maxRequestsPerWindow; i++ {
		require.NoError(t, issuer.Issue(ctx, "a@example.com", model.PurposeRegister, ""))
	}
	assert.ErrorIs(t, issuer.Issue(ctx, "a@example.com", model.PurposeRegister, ""), ErrRateLimited)
	assert.NoError(t, issuer.Issue(ctx, "b@example.com", model.PurposeRegister, ""), "limit is per address")

	clk.Advance(requestWindow + time.Second)
	assert.NoError(t, issuer.Issue(ctx, "a@example.com", model.PurposeRegister, ""))
}

func TestVerify_attemptDelay(t *testing.T) {
	issuer, _, _, clk := newIssuer(true)
	ctx := context.Background()
	require.NoError(t, issuer.Issue(ctx, "a@example.com", model.PurposeRegister, ""))

	_, err := issuer.Verify(ctx, "a@example.com", model.PurposeRegister, "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)
	_, err = issuer.Verify(ctx, "a@example.com", model.PurposeRegister, devCode)
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	clk.Advance(minAttemptDelay)
	_, err = issuer.Verify(ctx, "a@example.com", model.PurposeRegister, devCode)
	assert.NoError(t, err)
}

func TestVerify_attemptLimitBurnsCode(t *testing.T) {
	issuer, _, _, clk := newIssuer(true)
	ctx := context.Background()
	require.NoError(t, issuer.Issue(ctx, "a@example.com", model.PurposeRegister, ""))

	for i := 0; i < maxAttempts; i++ {
		_, err := issuer.Verify(ctx, "a@example.com", model.PurposeRegister, "000000")
		require.ErrorIs(t, err, ErrInvalidCode)
		clk.Advance(minAttemptDelay)
	}
	_, err := issuer.Verify(ctx, "a@example.com", model.PurposeRegister, devCode)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerify_expiry(t *testing.T) {
	issuer, _, _, clk := newIssuer(true)
	ctx := context.Background()
	require.NoError(t, issuer.Issue(ctx, "a@example.com", model.PurposeEmailReset, ""))

	clk.Advance(codeExpiry + time.Second)
	_, err := issuer.Verify(ctx, "a@example.com", model.PurposeEmailReset, devCode)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerify_withoutEmail(t *testing.T) {
	issuer, _, mail, _ := newIssuer(false)
	ctx := context.Background()
	require.NoError(t, issuer.Issue(ctx, "a@example.com", model.PurposeRegister, ""))
	require.NoError(t, issuer.Issue(ctx, "b@example.com", model.PurposeRegister, ""))

	code := mail.last("b@example.com", model.PurposeRegister)
	email, err := issuer.Verify(ctx, "", model.PurposeRegister, code)
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", email)

	_, err = issuer.Verify(ctx, "", model.PurposeRegister, "12345")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerify_withoutEmailSharesAttemptBudget(t *testing.T) {
	issuer, _, mail, clk := newIssuer(false)
	ctx := context.Background()
	require.NoError(t, issuer.Issue(ctx, "a@example.com", model.PurposePasswordReset, ""))
	require.NoError(t, issuer.Issue(ctx, "b@example.com", model.PurposePasswordReset, ""))
	codeA := mail.last("a@example.com", model.PurposePasswordReset)
	codeB := mail.last("b@example.com", model.PurposePasswordReset)

	// generated codes never start with 0
	_, err := issuer.Verify(ctx, "", model.PurposePasswordReset, "000000")
	require.ErrorIs(t, err, ErrInvalidCode)
	_, err = issuer.Verify(ctx, "", model.PurposePasswordReset, "000001")
	assert.ErrorIs(t, err, ErrTooManyAttempts, "guesses are spaced out")

	for i := 1; i < maxAttempts; i++ {
		clk.Advance(minAttemptDelay)
		_, err := issuer.Verify(ctx, "", model.PurposePasswordReset, "000000")
		require.ErrorIs(t, err, ErrInvalidCode)
	}
	clk.Advance(minAttemptDelay)

	_, err = issuer.Verify(ctx, "", model.PurposePasswordReset, codeB)
	assert.ErrorIs(t, err, ErrInvalidCode, "every code is burned after the budget is spent")
	_, err = issuer.Verify(ctx, "a@example.com", model.PurposePasswordReset, codeA)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerify_withoutEmailOnlyTouchesOnePurpose(t *testing.T) {
	issuer, _, mail, clk := newIssuer(false)
	ctx := context.Background()
	require.NoError(t, issuer.Issue(ctx, "a@example.com", model.PurposePasswordReset, ""))
	code := mail.last("a@example.com", model.PurposePasswordReset)

	for i := 0; i < maxAttempts; i++ {
		_, err := issuer.Verify(ctx, "", model.PurposeRegister, "000000")
		require.ErrorIs(t, err, ErrInvalidCode)
		clk.Advance(minAttemptDelay)
	}

	email, err := issuer.Verify(ctx, "", model.PurposePasswordReset, code)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)
}
