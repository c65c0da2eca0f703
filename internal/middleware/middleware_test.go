package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satranslator/translator/internal/auth"
)

type authenticatorFunc func(ctx context.Context, token string) (auth.Principal, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, token string) (auth.Principal, error) {
	return f(ctx, token)
}

func tokens(m map[string]auth.Principal) Authenticator {
	return authenticatorFunc(func(_ context.Context, token string) (auth.Principal, error) {
		p, ok := m[token]
		if !ok {
			return auth.Principal{}, auth.ErrUnauthorized
		}
		return p, nil
	})
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["message"]
}

func TestRequireAuth(t *testing.T) {
	userID := uuid.New()
	authn := tokens(map[string]auth.Principal{
		"access": {UserID: userID, SessionID: uuid.New(), Scope: auth.ScopeAccess},
		"reset":  {UserID: userID, Scope: auth.ScopeReset},
	})

	var seen uuid.UUID
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	cases := []struct {
		name       string
		header     string
		allowReset bool
		status     int
		message    string
	}{
		{"missing header", "", false, http.StatusUnauthorized, "missing authorization header"},
		{"wrong scheme", "Basic abc", false, http.StatusUnauthorized, "invalid authorization header format"},
		{"empty token", "Bearer  ", false, http.StatusUnauthorized, "missing token"},
		{"unknown token", "Bearer nope", false, http.StatusUnauthorized, "invalid or expired token"},
		{"access token", "Bearer access", false, http.StatusNoContent, ""},
		{"lowercase scheme", "bearer access", false, http.StatusNoContent, ""},
		{"reset token refused", "Bearer reset", false, http.StatusUnauthorized, "token not valid for this endpoint"},
		{"reset token allowed", "Bearer reset", true, http.StatusNoContent, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = uuid.Nil
			req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			RequireAuth(authn, tc.allowReset, nil)(ok).ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.message != "" {
				assert.Equal(t, tc.message, decodeMessage(t, rec))
				assert.Equal(t, uuid.Nil, seen)
			} else {
				assert.Equal(t, userID, seen)
			}
		})
	}
}

func TestGetPrincipal_absent(t *testing.T) {
	_, ok := GetPrincipal(context.Background())
	assert.False(t, ok)

	p := auth.Principal{UserID: uuid.New()}
	got, ok := GetPrincipal(WithPrincipal(context.Background(), p))
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestRateLimiter_slidingWindow(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 2)
	defer rl.Stop()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("ip:1"))
	assert.True(t, rl.Allow("ip:1"))
	assert.False(t, rl.Allow("ip:1"))
	assert.True(t, rl.Allow("ip:2"))

	now = now.Add(time.Minute + time.Second)
	assert.True(t, rl.Allow("ip:1"))

	now = now.Add(2 * time.Minute)
	rl.sweep()
	rl.mu.Lock()
	assert.Empty(t, rl.requests)
	rl.mu.Unlock()
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 1)
	defer rl.Stop()
	h := RateLimitMiddleware(rl, GetIPKey)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req.RemoteAddr = "10.0.0.1:6666"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "port does not change the key")
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "Too many requests, please try again later", decodeMessage(t, rec))
}

func TestGetEmailKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/auth/forgot-password", strings.NewReader(`{"email":" Thandi@Example.com "}`))
	assert.Equal(t, "email:thandi@example.com", GetEmailKey(req))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":" Thandi@Example.com "}`, string(body), "body is restored")

	req = httptest.NewRequest(http.MethodPost, "/auth/forgot-password", strings.NewReader(`not json`))
	req.RemoteAddr = "10.0.0.9:1234"
	assert.Equal(t, "ip:10.0.0.9", GetEmailKey(req))
}

func TestAuthenticatorError(t *testing.T) {
	authn := authenticatorFunc(func(context.Context, string) (auth.Principal, error) {
		return auth.Principal{}, errors.New("db down")
	})
	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec := httptest.NewRecorder()
	RequireAuth(authn, false, nil)(http.NotFoundHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	h := chimw.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/chat/missing", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, http.StatusNotFound, entry.Data["status"])
	assert.Equal(t, "/chat/missing", entry.Data["path"])
	assert.NotEmpty(t, entry.Data["request_id"])
}
