package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/satranslator/translator/internal/auth"
	"github.com/satranslator/translator/internal/middleware"
	"github.com/satranslator/translator/internal/model"
	"github.com/satranslator/translator/internal/repo"
)

// AccountService is the authenticated part of the account service
type AccountService interface {
	GetUser(ctx context.Context, userID uuid.UUID) (model.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in auth.ProfileInput) (model.User, error)
	ChangePassword(ctx context.Context, p auth.Principal, current, next, confirmation string) error
	ListSessions(ctx context.Context, userID uuid.UUID) ([]model.Session, error)
	RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error
}

// AccountHandler serves the profile and session endpoints
type AccountHandler struct {
	accounts AccountService
	logger   *logrus.Logger
}

// NewAccountHandler creates an account handler
func NewAccountHandler(accounts AccountService, logger *logrus.Logger) *AccountHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AccountHandler{accounts: accounts, logger: logger}
}

type profileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Location  string `json:"location"`
	Bio       string `json:"bio"`
}

type changePasswordRequest struct {
	CurrentPassword         string `json:"current_password"`
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

// HandleMe handles GET /profile
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.accounts.GetUser(r.Context(), p.UserID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", p.UserID).Error("failed to load user")
		respondWithError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	respondJSON(w, http.StatusOK, "", toUserResponse(user))
}

// HandleUpdateProfile handles PATCH /profile/update
func (h *AccountHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), p.UserID, auth.ProfileInput(req))
	if err != nil {
		h.logger.WithError(err).WithField("user_id", p.UserID).Error("failed to update profile")
		respondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	respondJSON(w, http.StatusOK, "Profile updated successfully", toUserResponse(user))
}

// HandleChangePassword handles POST /profile/change-password. Reset-scoped tokens are accepted here.
func (h *AccountHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.NewPassword == "" {
		respondWithError(w, http.StatusBadRequest, "new_password is required")
		return
	}

	err := h.accounts.ChangePassword(r.Context(), p, req.CurrentPassword, req.NewPassword, req.NewPasswordConfirmation)
	if err != nil {
		status, message := authStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.WithError(err).WithField("user_id", p.UserID).Error("failed to change password")
			message = "Failed to update password"
		}
		respondWithError(w, status, message)
		return
	}
	respondJSON(w, http.StatusOK, "Password updated successfully", nil)
}

// HandleListSessions handles GET /sessions
func (h *AccountHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sessions, err := h.accounts.ListSessions(r.Context(), p.UserID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", p.UserID).Error("failed to list sessions")
		respondWithError(w, http.StatusInternalServerError, "Failed to load sessions")
		return
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].LastActiveAt.After(sessions[j].LastActiveAt) })
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:           s.ID.String(),
			Device:       s.DeviceName,
			DeviceType:   s.DeviceType,
			IPAddress:    s.IPAddress,
			LastActiveAt: s.LastActiveAt,
			CreatedAt:    s.CreatedAt,
			Current:      s.ID == p.SessionID,
		})
	}
	respondJSON(w, http.StatusOK, "", out)
}

// HandleRevokeSession handles DELETE /sessions/{id}/revoke
func (h *AccountHandler) HandleRevokeSession(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	if err := h.accounts.RevokeSession(r.Context(), p.UserID, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.logger.WithError(err).WithField("session_id", id).Error("failed to revoke session")
		respondWithError(w, http.StatusInternalServerError, "Failed to revoke session")
		return
	}
	respondJSON(w, http.StatusOK, "Session revoked", nil)
}
