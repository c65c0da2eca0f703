package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/satranslator/translator/internal/auth"
	"github.com/satranslator/translator/internal/model"
)

// AuthService is the unauthenticated part of the account service
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput, ip string) (model.User, error)
	Login(ctx context.Context, email, password string, device auth.DeviceInfo) (model.User, string, error)
	VerifyCode(ctx context.Context, email, code string, purpose model.Purpose) (string, error)
	ResendCode(ctx context.Context, email string, purpose model.Purpose, ip string) error
	ForgotPassword(ctx context.Context, email, ip string) error
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService AuthService
	logger      *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService, logger *logrus.Logger) *AuthHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthHandler{authService: authService, logger: logger}
}

// registerRequest is the request body for POST /auth/register
type registerRequest struct {
	Username             string `json:"username"`
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// loginRequest is the request body for POST /auth/login
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the data of a successful login
type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// verifyRequest is the request body for POST /auth/verify-token
type verifyRequest struct {
	Email string        `json:"email"`
	Token string        `json:"token"`
	Type  model.Purpose `json:"type"`
}

// resendRequest is the request body for POST /auth/resend-token
type resendRequest struct {
	Email string        `json:"email"`
	Type  model.Purpose `json:"type"`
}

// forgotRequest is the request body for POST /auth/forgot-password
type forgotRequest struct {
	Email string `json:"email"`
}

// HandleRegister handles POST /auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if req.Password != req.PasswordConfirmation {
		respondWithError(w, http.StatusBadRequest, "Passwords do not match")
		return
	}

	user, err := h.authService.Register(r.Context(), auth.RegisterInput{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	}, getClientIP(r))
	if err != nil {
		h.fail(w, err, req.Email, "registration failed")
		return
	}

	respondJSON(w, http.StatusCreated, "Registration successful. Check your email for the verification code.", toUserResponse(user))
}

// HandleLogin handles POST /auth/login. X-Device-Name and X-Device-Type label the new session.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondWithError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	device := auth.DeviceInfo{
		Name: strings.TrimSpace(r.Header.Get("X-Device-Name")),
		Type: strings.TrimSpace(r.Header.Get("X-Device-Type")),
		IP:   getClientIP(r),
	}
	if device.Name == "" {
		device.Name = r.UserAgent()
	}

	user, token, err := h.authService.Login(r.Context(), req.Email, req.Password, device)
	if err != nil {
		h.fail(w, err, req.Email, "login failed")
		return
	}

	respondJSON(w, http.StatusOK, "Login successful", loginResponse{Token: token, User: toUserResponse(user)})
}

// HandleVerifyToken handles POST /auth/verify-token
func (h *AuthHandler) HandleVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		respondWithError(w, http.StatusBadRequest, "token is required")
		return
	}
	if !req.Type.Valid() {
		respondWithError(w, http.StatusBadRequest, "invalid verification type")
		return
	}

	token, err := h.authService.VerifyCode(r.Context(), req.Email, req.Token, req.Type)
	if err != nil {
		h.fail(w, err, req.Email, "verification failed")
		return
	}

	if req.Type == model.PurposePasswordReset {
		respondJSON(w, http.StatusOK, "Token verified. You can now reset your password.", map[string]string{"token": token})
		return
	}
	respondJSON(w, http.StatusOK, "Email verified successfully", nil)
}

// HandleResendToken handles POST /auth/resend-token
func (h *AuthHandler) HandleResendToken(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		respondWithError(w, http.StatusBadRequest, "email is required")
		return
	}
	if !req.Type.Valid() {
		respondWithError(w, http.StatusBadRequest, "invalid verification type")
		return
	}

	if err := h.authService.ResendCode(r.Context(), req.Email, req.Type, getClientIP(r)); err != nil {
		h.fail(w, err, req.Email, "resend failed")
		return
	}
	respondJSON(w, http.StatusOK, "A new code has been sent to your email", nil)
}

// HandleForgotPassword handles POST /auth/forgot-password
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		respondWithError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email, getClientIP(r)); err != nil {
		h.fail(w, err, req.Email, "forgot password failed")
		return
	}
	respondJSON(w, http.StatusOK, "If the address is registered, a reset code has been sent", nil)
}

func (h *AuthHandler) fail(w http.ResponseWriter, err error, email, msg string) {
	status, message := authStatus(err)
	entry := h.logger.WithError(err).WithField("email", auth.MaskEmail(strings.TrimSpace(email)))
	if status >= http.StatusInternalServerError {
		entry.Error(msg)
	} else {
		entry.Info(msg)
	}
	respondWithError(w, status, message)
}

// authStatus maps account errors to a status and a message safe to show
func authStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, auth.ErrEmailNotVerified):
		return http.StatusForbidden, "Please verify your email before logging in"
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, "An account with this email already exists"
	case errors.Is(err, auth.ErrInvalidCode):
		return http.StatusBadRequest, "Invalid or expired token"
	case errors.Is(err, auth.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "Too many attempts, please wait and try again"
	case errors.Is(err, auth.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many code requests, please try again later"
	case errors.Is(err, auth.ErrWeakPassword):
		return http.StatusUnprocessableEntity, "Password must be at least 8 characters"
	case errors.Is(err, auth.ErrPasswordMismatch):
		return http.StatusBadRequest, "Passwords do not match"
	case errors.Is(err, auth.ErrWrongPassword):
		return http.StatusBadRequest, "Current password is incorrect"
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "invalid or expired token"
	default:
		return http.StatusInternalServerError, "Something went wrong, please try again"
	}
}
