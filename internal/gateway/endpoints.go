package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/satranslator/translator/internal/session"
)

// Register creates an account; the server then sends a verification code
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var resp envelope[struct{}]
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, c.deviceHeaders(), &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	var resp envelope[struct {
		Token string        `json:"token"`
		User  *session.User `json:"user"`
	}]
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, c.deviceHeaders(), &resp); err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Message: resp.Message, Token: resp.Data.Token, User: resp.Data.User}, nil
}

// VerifyToken submits a one-time code
func (c *Client) VerifyToken(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	var resp envelope[struct {
		Token string `json:"token"`
	}]
	if err := c.do(ctx, http.MethodPost, "/auth/verify-token", req, nil, &resp); err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Message: resp.Message, Token: resp.Data.Token}, nil
}

// ResendToken asks for a fresh code for the given flow
func (c *Client) ResendToken(ctx context.Context, req ResendRequest) (string, error) {
	var resp envelope[struct{}]
	if err := c.do(ctx, http.MethodPost, "/auth/resend-token", req, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ForgotPassword starts the password-reset flow
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var resp envelope[struct{}]
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, "/auth/forgot-password", body, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// UpdateProfile edits the signed-in user's profile
func (c *Client) UpdateProfile(ctx context.Context, req ProfileUpdate) (string, error) {
	var resp envelope[struct{}]
	if err := c.do(ctx, http.MethodPatch, "/profile/update", req, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ChangePassword changes the password of the token's user
func (c *Client) ChangePassword(ctx context.Context, req PasswordChange) (string, error) {
	var resp envelope[struct{}]
	if err := c.do(ctx, http.MethodPost, "/profile/change-password", req, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ListSessions returns the user's active sign-ins
func (c *Client) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	var resp envelope[[]SessionRecord]
	if err := c.do(ctx, http.MethodGet, "/sessions", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// RevokeSession signs out one device
func (c *Client) RevokeSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id)+"/revoke", nil, nil, nil)
}

// SendChat sends a message for translation and returns the whole conversation
func (c *Client) SendChat(ctx context.Context, req SendChatRequest) (ChatRecord, error) {
	var resp envelope[ChatRecord]
	if err := c.do(ctx, http.MethodPost, "/chat", req, nil, &resp); err != nil {
		return ChatRecord{}, err
	}
	return resp.Data, nil
}

// ListChats returns every conversation with its messages
func (c *Client) ListChats(ctx context.Context) ([]ChatRecord, error) {
	var resp envelope[[]ChatRecord]
	if err := c.do(ctx, http.MethodGet, "/chat", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// DeleteChat removes a conversation
func (c *Client) DeleteChat(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/chat/"+url.PathEscape(id), nil, nil, nil)
}
