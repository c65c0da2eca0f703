package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satranslator/translator/internal/auth"
	"github.com/satranslator/translator/internal/http/handlers"
	"github.com/satranslator/translator/internal/middleware"
	"github.com/satranslator/translator/internal/model"
)

type staticAuthenticator map[string]auth.Principal

func (s staticAuthenticator) Authenticate(_ context.Context, token string) (auth.Principal, error) {
	p, ok := s[token]
	if !ok {
		return auth.Principal{}, auth.ErrUnauthorized
	}
	return p, nil
}

type stubAccounts struct{ changed int }

func (s *stubAccounts) GetUser(context.Context, uuid.UUID) (model.User, error) {
	return model.User{Email: "a@example.com"}, nil
}

func (s *stubAccounts) UpdateProfile(context.Context, uuid.UUID, auth.ProfileInput) (model.User, error) {
	return model.User{}, nil
}

func (s *stubAccounts) ChangePassword(context.Context, auth.Principal, string, string, string) error {
	s.changed++
	return nil
}

func (s *stubAccounts) ListSessions(context.Context, uuid.UUID) ([]model.Session, error) {
	return nil, nil
}

func (s *stubAccounts) RevokeSession(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func newTestRouter(t *testing.T, limiter *middleware.RateLimiter) (http.Handler, *stubAccounts) {
	t.Helper()
	userID := uuid.New()
	accounts := &stubAccounts{}
	r := NewRouter(Routes{
		Auth:    handlers.NewAuthHandler(nil, nil),
		Account: handlers.NewAccountHandler(accounts, nil),
		Chat:    handlers.NewChatHandler(nil, nil),
		Health:  handlers.NewHealthHandler(nil),
		Authenticator: staticAuthenticator{
			"access": {UserID: userID, SessionID: uuid.New(), Scope: auth.ScopeAccess},
			"reset":  {UserID: userID, Scope: auth.ScopeReset},
		},
		AuthLimiter: limiter,
		CORSOrigins: []string{"https://app.example.com"},
	})
	return r, accounts
}

func serve(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_health(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	rec := serve(r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_protectedRoutesNeedToken(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	for _, rt := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/chat"},
		{http.MethodPost, "/api/v1/chat"},
		{http.MethodDelete, "/api/v1/chat/" + uuid.NewString()},
		{http.MethodGet, "/api/v1/sessions"},
		{http.MethodDelete, "/api/v1/sessions/" + uuid.NewString() + "/revoke"},
		{http.MethodPatch, "/api/v1/profile/update"},
		{http.MethodPost, "/api/v1/profile/change-password"},
	} {
		rec := serve(r, rt.method, rt.path, "", "{}")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, rt.method+" "+rt.path)
		assert.JSONEq(t, `{"message":"missing authorization header"}`, rec.Body.String())
	}
}

func TestRouter_resetTokenOnlyChangesPassword(t *testing.T) {
	r, accounts := newTestRouter(t, nil)

	rec := serve(r, http.MethodGet, "/api/v1/sessions", "reset", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(r, http.MethodGet, "/api/v1/profile", "reset", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(r, http.MethodPost, "/api/v1/profile/change-password", "reset", `{"new_password":"password2","new_password_confirmation":"password2"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, accounts.changed)

	rec = serve(r, http.MethodGet, "/api/v1/sessions", "access", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_authRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(time.Minute, 2)
	defer limiter.Stop()
	r, _ := newTestRouter(t, limiter)

	// malformed bodies are rejected by the handler but still count
	for i := 0; i < 2; i++ {
		rec := serve(r, http.MethodPost, "/api/v1/auth/login", "", "{")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec := serve(r, http.MethodPost, "/api/v1/auth/login", "", "{")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = serve(r, http.MethodGet, "/api/v1/chat", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "the limit only covers /auth")
}

func TestRouter_cors(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
