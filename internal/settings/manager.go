package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/satranslator/translator/internal/gateway"
	"github.com/satranslator/translator/internal/notify"
	"github.com/satranslator/translator/internal/session"
)

var (
	// ErrPasswordMismatch is returned when the new password and its confirmation differ
	ErrPasswordMismatch = errors.New("new passwords do not match")
	// ErrBusy is returned while another settings request is in flight
	ErrBusy = errors.New("request already in progress")
	// ErrUnknownTab is returned by Open for tabs the dialog does not have
	ErrUnknownTab = errors.New("unknown settings tab")
)

// Tab of the settings dialog
type Tab string

const (
	TabProfile  Tab = "profile"
	TabPassword Tab = "password"
	TabSessions Tab = "sessions"
)

// API is the part of the gateway the settings dialog needs
type API interface {
	UpdateProfile(ctx context.Context, req gateway.ProfileUpdate) (string, error)
	ChangePassword(ctx context.Context, req gateway.PasswordChange) (string, error)
	ListSessions(ctx context.Context) ([]gateway.SessionRecord, error)
	RevokeSession(ctx context.Context, id string) error
}

// Store is the part of the session store that holds the profile
type Store interface {
	User() *session.User
	SetUser(user *session.User)
}

// Manager backs the settings dialog: profile form, password form and the session list.
// Write actions share one loading flag.
type Manager struct {
	api      API
	store    Store
	notifier notify.Notifier
	logger   *logrus.Logger

	mu       sync.Mutex
	tab      Tab
	profile  gateway.ProfileUpdate
	password gateway.PasswordChange
	sessions []gateway.SessionRecord
	loading  bool
}

func NewManager(api API, store Store, notifier notify.Notifier, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		api:      api,
		store:    store,
		notifier: notifier,
		logger:   logger,
		tab:      TabProfile,
	}
}

// Open shows tab with the profile form seeded from the stored user. The session list is
// fetched whenever the sessions tab opens.
func (m *Manager) Open(ctx context.Context, tab Tab) error {
	switch tab {
	case TabProfile, TabPassword, TabSessions:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTab, tab)
	}

	m.mu.Lock()
	m.tab = tab
	m.profile = profileOf(m.store.User())
	m.mu.Unlock()

	if tab == TabSessions {
		return m.FetchSessions(ctx)
	}
	return nil
}

// Tab returns the open tab
func (m *Manager) Tab() Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tab
}

func (m *Manager) Profile() gateway.ProfileUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

func (m *Manager) SetProfile(p gateway.ProfileUpdate) {
	m.mu.Lock()
	m.profile = p
	m.mu.Unlock()
}

func (m *Manager) Password() gateway.PasswordChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.password
}

func (m *Manager) SetPassword(p gateway.PasswordChange) {
	m.mu.Lock()
	m.password = p
	m.mu.Unlock()
}

// Sessions returns the last fetched session list
func (m *Manager) Sessions() []gateway.SessionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]gateway.SessionRecord(nil), m.sessions...)
}

// Loading reports whether a write action is in flight
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// UpdateProfile saves the profile form and merges it into the stored user
func (m *Manager) UpdateProfile(ctx context.Context) error {
	release, err := m.begin()
	if err != nil {
		return err
	}
	defer release()

	form := m.Profile()
	msg, err := m.api.UpdateProfile(ctx, form)
	if err != nil {
		m.logger.WithError(err).Error("update profile failed")
		m.notifier.Error(gateway.MessageOr(err, "Failed to update profile"))
		return fmt.Errorf("update profile: %w", err)
	}

	user := m.store.User()
	if user == nil {
		user = &session.User{}
	}
	user.FirstName = form.FirstName
	user.LastName = form.LastName
	user.Location = form.Location
	user.Bio = form.Bio
	m.store.SetUser(user)

	m.notifier.Success(messageOr(msg, "Profile updated successfully"))
	return nil
}

// UpdatePassword submits the password form. A confirmation mismatch is reported without a
// request; a successful change clears the form.
func (m *Manager) UpdatePassword(ctx context.Context) error {
	form := m.Password()
	if form.NewPassword != form.NewPasswordConfirmation {
		m.notifier.Error("New passwords do not match")
		return ErrPasswordMismatch
	}

	release, err := m.begin()
	if err != nil {
		return err
	}
	defer release()

	msg, err := m.api.ChangePassword(ctx, form)
	if err != nil {
		m.logger.WithError(err).Error("change password failed")
		m.notifier.Error(gateway.MessageOr(err, "Failed to update password"))
		return fmt.Errorf("change password: %w", err)
	}

	m.mu.Lock()
	m.password = gateway.PasswordChange{}
	m.mu.Unlock()
	m.notifier.Success(messageOr(msg, "Password updated successfully"))
	return nil
}

// FetchSessions reloads the session list. Failures keep the old list and are only logged.
func (m *Manager) FetchSessions(ctx context.Context) error {
	records, err := m.api.ListSessions(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("failed to fetch sessions")
		return fmt.Errorf("fetch sessions: %w", err)
	}
	m.mu.Lock()
	m.sessions = records
	m.mu.Unlock()
	return nil
}

// RevokeSession signs out one device, drops it from the list and refetches
func (m *Manager) RevokeSession(ctx context.Context, id string) error {
	release, err := m.begin()
	if err != nil {
		return err
	}
	defer release()

	if err := m.api.RevokeSession(ctx, id); err != nil {
		m.logger.WithError(err).WithField("session_id", id).Error("revoke session failed")
		m.notifier.Error(gateway.MessageOr(err, "Failed to revoke session"))
		return fmt.Errorf("revoke session: %w", err)
	}

	m.mu.Lock()
	kept := m.sessions[:0:0]
	for _, s := range m.sessions {
		if string(s.ID) != id {
			kept = append(kept, s)
		}
	}
	m.sessions = kept
	m.mu.Unlock()

	m.notifier.Success("Session revoked")
	// logged inside; the local removal already happened
	_ = m.FetchSessions(ctx)
	return nil
}

func (m *Manager) begin() (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loading {
		return nil, ErrBusy
	}
	m.loading = true
	return func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}, nil
}

func profileOf(u *session.User) gateway.ProfileUpdate {
	if u == nil {
		return gateway.ProfileUpdate{}
	}
	return gateway.ProfileUpdate{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Location:  u.Location,
		Bio:       u.Bio,
	}
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
