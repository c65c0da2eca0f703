package otp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/satranslator/translator/internal/gateway"
	"github.com/satranslator/translator/internal/nav"
	"github.com/satranslator/translator/internal/notify"
	"github.com/satranslator/translator/internal/session"
)

var (
	// ErrIncompleteCode is returned when fewer than six digits are filled
	ErrIncompleteCode = errors.New("please enter all 6 digits")
	// ErrBusy is returned while the same action is still in flight
	ErrBusy = errors.New("request already in progress")
	// ErrNoEmail is returned by Resend when no address was remembered for the flow
	ErrNoEmail = errors.New("no email address to resend the code to")
)

// API is the part of the gateway the controller needs
type API interface {
	VerifyToken(ctx context.Context, req gateway.VerifyRequest) (gateway.VerifyResult, error)
	ResendToken(ctx context.Context, req gateway.ResendRequest) (string, error)
}

// Store is the part of the session store the controller reads and writes
type Store interface {
	Flow() session.FlowType
	PendingEmail() string
	SetToken(token string)
}

// Navigator moves the client between routes
type Navigator interface {
	Navigate(path string) (nav.Location, error)
}

// Controller drives the verify-token step: the digit buffer, submission and resend
type Controller struct {
	api      API
	store    Store
	nav      Navigator
	notifier notify.Notifier
	logger   *logrus.Logger

	mu        sync.Mutex
	buf       *Buffer
	verifying bool
	resending bool
}

// NewController creates a controller with an empty buffer
func NewController(api API, store Store, navigator Navigator, notifier notify.Notifier, logger *logrus.Logger) *Controller {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Controller{
		api:      api,
		store:    store,
		nav:      navigator,
		notifier: notifier,
		logger:   logger,
		buf:      NewBuffer(),
	}
}

// DigitChange forwards to Buffer.Change
func (c *Controller) DigitChange(slot int, raw string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Change(slot, raw)
}

// Backspace forwards to Buffer.Backspace
func (c *Controller) Backspace(slot int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Backspace(slot)
}

// Paste forwards to Buffer.Paste
func (c *Controller) Paste(raw string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Paste(raw)
}

// Digits returns the current slot values
func (c *Controller) Digits() [Length]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Digits()
}

// Focus returns the focused slot
func (c *Controller) Focus() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Focus()
}

// Verifying reports whether a submission is in flight
func (c *Controller) Verifying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verifying
}

// Resending reports whether a resend is in flight
func (c *Controller) Resending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resending
}

// Submit verifies the buffered code for the current auth flow. On failure the buffer is kept
// as typed so the user can correct and retry.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if !c.buf.Complete() {
		c.mu.Unlock()
		c.notifier.Error("Please enter all 6 digits.")
		return ErrIncompleteCode
	}
	if c.verifying {
		c.mu.Unlock()
		return ErrBusy
	}
	c.verifying = true
	code := c.buf.Code()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.verifying = false
		c.mu.Unlock()
	}()

	flow := c.store.Flow()
	res, err := c.api.VerifyToken(ctx, gateway.VerifyRequest{
		Email: c.store.PendingEmail(),
		Token: code,
		Type:  flow,
	})
	if err != nil {
		c.logger.WithError(err).WithField("flow", flow).Error("verification failed")
		c.notifier.Error(gateway.MessageOr(err, "Invalid verification code. Please try again."))
		return fmt.Errorf("verify code: %w", err)
	}

	c.notifier.Success(messageOr(res.Message, "Email verified successfully!"))

	next := nav.RouteLogin
	if flow == session.FlowPasswordReset {
		c.store.SetToken(res.Token)
		next = nav.RouteResetPassword
	}
	if _, err := c.nav.Navigate(next); err != nil {
		return fmt.Errorf("navigate after verification: %w", err)
	}
	return nil
}

// Resend asks the server for a fresh code for the remembered address. Concurrent calls
// are rejected until the outstanding one settles.
func (c *Controller) Resend(ctx context.Context) error {
	c.mu.Lock()
	if c.resending {
		c.mu.Unlock()
		return ErrBusy
	}
	c.resending = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.resending = false
		c.mu.Unlock()
	}()

	email := c.store.PendingEmail()
	if email == "" {
		c.notifier.Error("No email address to resend the code to")
		return ErrNoEmail
	}

	msg, err := c.api.ResendToken(ctx, gateway.ResendRequest{Email: email, Type: c.store.Flow()})
	if err != nil {
		c.logger.WithError(err).Warn("resend code failed")
		c.notifier.Error(gateway.MessageOr(err, "Failed to resend code"))
		return fmt.Errorf("resend code: %w", err)
	}
	c.notifier.Success(messageOr(msg, "A new code has been sent"))
	return nil
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
