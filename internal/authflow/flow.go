// Package authflow drives the login, registration and password-reset screens that sit around
// the verify-token step.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/satranslator/translator/internal/gateway"
	"github.com/satranslator/translator/internal/nav"
	"github.com/satranslator/translator/internal/notify"
	"github.com/satranslator/translator/internal/session"
)

var (
	// ErrPasswordMismatch is returned when a password and its confirmation differ
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrMissingField is returned when a required form field is blank
	ErrMissingField = errors.New("required field is empty")
	// ErrBusy is returned while a submission is in flight
	ErrBusy = errors.New("request already in progress")
)

// API is the part of the gateway the auth screens need
type API interface {
	Register(ctx context.Context, req gateway.RegisterRequest) (string, error)
	Login(ctx context.Context, req gateway.LoginRequest) (gateway.LoginResult, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ChangePassword(ctx context.Context, req gateway.PasswordChange) (string, error)
}

// Store is the write side of the session store used by login and logout
type Store interface {
	SignIn(user *session.User, token string)
	SetFlow(flow session.FlowType, email string)
	SetToken(token string)
	Reset()
}

// Navigator moves between routes and hands back the location a guard redirect captured
type Navigator interface {
	Navigate(path string) (nav.Location, error)
	TakeReturnTo() string
}

// Flow submits the auth forms
type Flow struct {
	api      API
	store    Store
	nav      Navigator
	notifier notify.Notifier
	logger   *logrus.Logger

	mu      sync.Mutex
	loading bool
}

func New(api API, store Store, navigator Navigator, notifier notify.Notifier, logger *logrus.Logger) *Flow {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Flow{api: api, store: store, nav: navigator, notifier: notifier, logger: logger}
}

// Loading reports whether a submission is in flight
func (f *Flow) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// Register creates the account and moves to the verify-token step for its e-mail
func (f *Flow) Register(ctx context.Context, req gateway.RegisterRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		f.notifier.Error("Email and password are required")
		return ErrMissingField
	}
	if req.Password != req.PasswordConfirmation {
		f.notifier.Error("Passwords do not match")
		return ErrPasswordMismatch
	}

	release, err := f.begin()
	if err != nil {
		return err
	}
	defer release()

	msg, err := f.api.Register(ctx, req)
	if err != nil {
		f.logger.WithError(err).WithField("email", req.Email).Error("registration failed")
		f.notifier.Error(gateway.MessageOr(err, "Registration failed"))
		return fmt.Errorf("register: %w", err)
	}
	f.notifier.Success(messageOr(msg, "Registration successful. Check your email for a verification code."))
	f.store.SetFlow(session.FlowRegister, req.Email)
	return f.navigate(nav.RouteVerifyToken)
}

// Login signs in and returns to the location the route guard captured, or the root route
func (f *Flow) Login(ctx context.Context, req gateway.LoginRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		f.notifier.Error("Email and password are required")
		return ErrMissingField
	}

	release, err := f.begin()
	if err != nil {
		return err
	}
	defer release()

	res, err := f.api.Login(ctx, req)
	if err != nil {
		f.logger.WithError(err).WithField("email", req.Email).Warn("login failed")
		f.notifier.Error(gateway.MessageOr(err, "Login failed"))
		return fmt.Errorf("login: %w", err)
	}
	if res.Token == "" {
		f.notifier.Error("Login failed")
		return errors.New("login: response carried no token")
	}
	f.store.SignIn(res.User, res.Token)
	f.notifier.Success(messageOr(res.Message, "Login successful"))
	return f.navigate(f.nav.TakeReturnTo())
}

// ForgotPassword asks for a reset code and moves to the verify-token step
func (f *Flow) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		f.notifier.Error("Email is required")
		return ErrMissingField
	}

	release, err := f.begin()
	if err != nil {
		return err
	}
	defer release()

	msg, err := f.api.ForgotPassword(ctx, email)
	if err != nil {
		f.logger.WithError(err).WithField("email", email).Error("forgot password failed")
		f.notifier.Error(gateway.MessageOr(err, "Failed to send reset code"))
		return fmt.Errorf("forgot password: %w", err)
	}
	f.notifier.Success(messageOr(msg, "A reset code has been sent to your email"))
	f.store.SetFlow(session.FlowPasswordReset, email)
	return f.navigate(nav.RouteVerifyToken)
}

// ResetPassword sets a new password with the reset token stored by the verify-token step.
// The token is dropped afterwards and the user signs in again.
func (f *Flow) ResetPassword(ctx context.Context, password, confirmation string) error {
	if password != confirmation {
		f.notifier.Error("Passwords do not match")
		return ErrPasswordMismatch
	}
	if password == "" {
		f.notifier.Error("Password is required")
		return ErrMissingField
	}

	release, err := f.begin()
	if err != nil {
		return err
	}
	defer release()

	msg, err := f.api.ChangePassword(ctx, gateway.PasswordChange{
		NewPassword:             password,
		NewPasswordConfirmation: confirmation,
	})
	if err != nil {
		f.logger.WithError(err).Error("reset password failed")
		f.notifier.Error(gateway.MessageOr(err, "Failed to reset password"))
		return fmt.Errorf("reset password: %w", err)
	}
	f.store.SetToken("")
	f.notifier.Success(messageOr(msg, "Password reset successful"))
	return f.navigate(nav.RouteLogin)
}

// Logout clears the session and returns to the login screen
func (f *Flow) Logout() error {
	f.store.Reset()
	f.logger.Info("signed out")
	return f.navigate(nav.RouteLogin)
}

func (f *Flow) navigate(path string) error {
	if _, err := f.nav.Navigate(path); err != nil {
		return fmt.Errorf("navigate to %s: %w", path, err)
	}
	return nil
}

func (f *Flow) begin() (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loading {
		return nil, ErrBusy
	}
	f.loading = true
	return func() {
		f.mu.Lock()
		f.loading = false
		f.mu.Unlock()
	}, nil
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
