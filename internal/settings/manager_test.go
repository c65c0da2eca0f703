package settings

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satranslator/translator/internal/gateway"
	"github.com/satranslator/translator/internal/notify"
	"github.com/satranslator/translator/internal/session"
)

type fakeAPI struct {
	profiles  []gateway.ProfileUpdate
	passwords []gateway.PasswordChange
	revoked   []string
	listCalls int

	profileErr  error
	passwordErr error
	revokeErr   error
	listErr     error
	sessions    []gateway.SessionRecord
	revokeHook  func()
}

func (f *fakeAPI) UpdateProfile(_ context.Context, req gateway.ProfileUpdate) (string, error) {
	f.profiles = append(f.profiles, req)
	return "", f.profileErr
}

func (f *fakeAPI) ChangePassword(_ context.Context, req gateway.PasswordChange) (string, error) {
	f.passwords = append(f.passwords, req)
	return "Password changed", f.passwordErr
}

func (f *fakeAPI) ListSessions(context.Context) ([]gateway.SessionRecord, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]gateway.SessionRecord(nil), f.sessions...), nil
}

func (f *fakeAPI) RevokeSession(_ context.Context, id string) error {
	f.revoked = append(f.revoked, id)
	if f.revokeHook != nil {
		f.revokeHook()
	}
	return f.revokeErr
}

func signedIn() *session.Store {
	store := session.NewStore(nil, nil)
	store.SignIn(&session.User{ID: "1", Email: "thandi@example.com", FirstName: "Thandi", LastName: "Nkosi", Location: "Durban"}, "tok")
	return store
}

func TestOpen_seedsProfileFromStore(t *testing.T) {
	m := NewManager(&fakeAPI{}, signedIn(), &notify.Recorder{}, nil)
	require.NoError(t, m.Open(context.Background(), TabProfile))

	assert.Equal(t, TabProfile, m.Tab())
	assert.Equal(t, gateway.ProfileUpdate{FirstName: "Thandi", LastName: "Nkosi", Location: "Durban"}, m.Profile())
	assert.ErrorIs(t, m.Open(context.Background(), Tab("billing")), ErrUnknownTab)
}

func TestOpen_sessionsTabFetches(t *testing.T) {
	api := &fakeAPI{sessions: []gateway.SessionRecord{{ID: "s1", Device: "SA-Translator", LastActiveAt: time.Now()}}}
	m := NewManager(api, signedIn(), &notify.Recorder{}, nil)

	require.NoError(t, m.Open(context.Background(), TabSessions))
	assert.Equal(t, 1, api.listCalls)
	assert.Len(t, m.Sessions(), 1)
}

func TestUpdateProfile_mergesIntoStore(t *testing.T) {
	store := signedIn()
	rec := &notify.Recorder{}
	m := NewManager(&fakeAPI{}, store, rec, nil)
	require.NoError(t, m.Open(context.Background(), TabProfile))

	p := m.Profile()
	p.Bio = "Translator"
	p.Location = "Pietermaritzburg"
	m.SetProfile(p)
	require.NoError(t, m.UpdateProfile(context.Background()))

	user := store.User()
	assert.Equal(t, "Translator", user.Bio)
	assert.Equal(t, "Pietermaritzburg", user.Location)
	assert.Equal(t, "thandi@example.com", user.Email)
	last, _ := rec.Last()
	assert.Equal(t, notify.Entry{Level: notify.LevelSuccess, Message: "Profile updated successfully"}, last)
}

func TestUpdateProfile_failureLeavesStore(t *testing.T) {
	store := signedIn()
	rec := &notify.Recorder{}
	api := &fakeAPI{profileErr: errors.New("connection refused")}
	m := NewManager(api, store, rec, nil)
	m.SetProfile(gateway.ProfileUpdate{FirstName: "X"})

	require.Error(t, m.UpdateProfile(context.Background()))
	assert.Equal(t, "Thandi", store.User().FirstName)
	assert.False(t, m.Loading())
	last, _ := rec.Last()
	assert.Equal(t, "Failed to update profile", last.Message)
}

func TestUpdatePassword_mismatchSendsNothing(t *testing.T) {
	api := &fakeAPI{}
	rec := &notify.Recorder{}
	m := NewManager(api, signedIn(), rec, nil)
	m.SetPassword(gateway.PasswordChange{CurrentPassword: "old", NewPassword: "abc12345", NewPasswordConfirmation: "abc1234"})

	assert.ErrorIs(t, m.UpdatePassword(context.Background()), ErrPasswordMismatch)
	assert.Empty(t, api.passwords)
	last, _ := rec.Last()
	assert.Equal(t, notify.Entry{Level: notify.LevelError, Message: "New passwords do not match"}, last)
}

func TestUpdatePassword_successClearsForm(t *testing.T) {
	api := &fakeAPI{}
	rec := &notify.Recorder{}
	m := NewManager(api, signedIn(), rec, nil)
	form := gateway.PasswordChange{CurrentPassword: "old", NewPassword: "new-pass", NewPasswordConfirmation: "new-pass"}
	m.SetPassword(form)

	require.NoError(t, m.UpdatePassword(context.Background()))
	assert.Equal(t, []gateway.PasswordChange{form}, api.passwords)
	assert.Equal(t, gateway.PasswordChange{}, m.Password())
	last, _ := rec.Last()
	assert.Equal(t, "Password changed", last.Message)
}

func TestUpdatePassword_failureKeepsForm(t *testing.T) {
	api := &fakeAPI{passwordErr: &gateway.Error{Status: http.StatusBadRequest, Message: "Current password is incorrect"}}
	rec := &notify.Recorder{}
	m := NewManager(api, signedIn(), rec, nil)
	form := gateway.PasswordChange{CurrentPassword: "wrong", NewPassword: "n", NewPasswordConfirmation: "n"}
	m.SetPassword(form)

	require.Error(t, m.UpdatePassword(context.Background()))
	assert.Equal(t, form, m.Password())
	last, _ := rec.Last()
	assert.Equal(t, "Current password is incorrect", last.Message)
}

func TestRevokeSession(t *testing.T) {
	api := &fakeAPI{sessions: []gateway.SessionRecord{{ID: "s1"}, {ID: "s2"}}}
	rec := &notify.Recorder{}
	m := NewManager(api, signedIn(), rec, nil)
	require.NoError(t, m.FetchSessions(context.Background()))

	api.revokeHook = func() { api.sessions = api.sessions[1:] }
	require.NoError(t, m.RevokeSession(context.Background(), "s1"))

	assert.Equal(t, []string{"s1"}, api.revoked)
	require.Len(t, m.Sessions(), 1)
	assert.Equal(t, gateway.ID("s2"), m.Sessions()[0].ID)
	assert.Equal(t, 2, api.listCalls)
	last, _ := rec.Last()
	assert.Equal(t, notify.Entry{Level: notify.LevelSuccess, Message: "Session revoked"}, last)
}

func TestRevokeSession_localRemovalSurvivesRefetchFailure(t *testing.T) {
	api := &fakeAPI{sessions: []gateway.SessionRecord{{ID: "s1"}, {ID: "s2"}}}
	m := NewManager(api, signedIn(), &notify.Recorder{}, nil)
	require.NoError(t, m.FetchSessions(context.Background()))

	api.listErr = errors.New("offline")
	require.NoError(t, m.RevokeSession(context.Background(), "s2"))
	require.Len(t, m.Sessions(), 1)
	assert.Equal(t, gateway.ID("s1"), m.Sessions()[0].ID)
}

func TestRevokeSession_failure(t *testing.T) {
	api := &fakeAPI{sessions: []gateway.SessionRecord{{ID: "s1"}}, revokeErr: errors.New("boom")}
	rec := &notify.Recorder{}
	m := NewManager(api, signedIn(), rec, nil)
	require.NoError(t, m.FetchSessions(context.Background()))

	require.Error(t, m.RevokeSession(context.Background(), "s1"))
	assert.Len(t, m.Sessions(), 1)
	last, _ := rec.Last()
	assert.Equal(t, notify.Entry{Level: notify.LevelError, Message: "Failed to revoke session"}, last)
}

func TestLoadingFlagIsShared(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{sessions: []gateway.SessionRecord{{ID: "s1"}}}
	api.revokeHook = func() {
		close(entered)
		<-release
	}
	m := NewManager(api, signedIn(), &notify.Recorder{}, nil)

	done := make(chan error, 1)
	go func() { done <- m.RevokeSession(context.Background(), "s1") }()
	<-entered

	assert.True(t, m.Loading())
	assert.ErrorIs(t, m.UpdateProfile(context.Background()), ErrBusy)
	assert.Empty(t, api.profiles)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, m.Loading())
}

func TestFetchSessions_failureKeepsList(t *testing.T) {
	api := &fakeAPI{sessions: []gateway.SessionRecord{{ID: "s1"}}}
	rec := &notify.Recorder{}
	m := NewManager(api, signedIn(), rec, nil)
	require.NoError(t, m.FetchSessions(context.Background()))

	api.listErr = errors.New("offline")
	require.Error(t, m.FetchSessions(context.Background()))
	assert.Len(t, m.Sessions(), 1)
	assert.Empty(t, rec.Entries())
}
