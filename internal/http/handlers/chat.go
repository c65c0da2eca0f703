package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/satranslator/translator/internal/middleware"
	"github.com/satranslator/translator/internal/model"
	"github.com/satranslator/translator/internal/repo"
	"github.com/satranslator/translator/internal/translate"
)

// ChatService stores translation conversations
type ChatService interface {
	Send(ctx context.Context, userID uuid.UUID, in translate.SendInput) (model.Chat, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.Chat, error)
	Delete(ctx context.Context, userID, chatID uuid.UUID) error
}

// ChatHandler serves the /chat endpoints
type ChatHandler struct {
	chats  ChatService
	logger *logrus.Logger
}

// NewChatHandler creates a chat handler
func NewChatHandler(chats ChatService, logger *logrus.Logger) *ChatHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ChatHandler{chats: chats, logger: logger}
}

// sendRequest is the request body for POST /chat. A null sourceLanguage asks for detection.
type sendRequest struct {
	Message        string  `json:"message"`
	SourceLanguage *string `json:"sourceLanguage"`
	TargetLanguage string  `json:"targetLanguage"`
	ChatID         string  `json:"chat_id"`
}

// HandleSend handles POST /chat
func (h *ChatHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req sendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := translate.SendInput{Message: req.Message, Source: req.SourceLanguage, Target: req.TargetLanguage}
	if req.ChatID != "" {
		id, err := uuid.Parse(req.ChatID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid chat_id")
			return
		}
		in.ChatID = &id
	}

	chat, err := h.chats.Send(r.Context(), userID, in)
	if err != nil {
		switch {
		case errors.Is(err, translate.ErrEmptyMessage):
			respondWithError(w, http.StatusBadRequest, "Message is required")
		case errors.Is(err, translate.ErrUnsupportedLanguage):
			respondWithError(w, http.StatusBadRequest, "Unsupported language")
		case errors.Is(err, repo.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "Chat not found")
		default:
			h.logger.WithError(err).WithField("user_id", userID).Error("failed to send message")
			respondWithError(w, http.StatusBadGateway, "Translation failed, please try again")
		}
		return
	}
	respondJSON(w, http.StatusOK, "", toChatResponse(chat))
}

// HandleList handles GET /chat
func (h *ChatHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	chats, err := h.chats.List(r.Context(), userID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("failed to list chats")
		respondWithError(w, http.StatusInternalServerError, "Failed to load chats")
		return
	}
	out := make([]chatResponse, 0, len(chats))
	for _, c := range chats {
		out = append(out, toChatResponse(c))
	}
	respondJSON(w, http.StatusOK, "", out)
}

// HandleDelete handles DELETE /chat/{id}
func (h *ChatHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	if err := h.chats.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Chat not found")
			return
		}
		h.logger.WithError(err).WithField("chat_id", id).Error("failed to delete chat")
		respondWithError(w, http.StatusInternalServerError, "Failed to delete chat")
		return
	}
	respondJSON(w, http.StatusOK, "Chat deleted successfully", nil)
}
