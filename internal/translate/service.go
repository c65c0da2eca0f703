package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/satranslator/translator/internal/model"
	"github.com/satranslator/translator/internal/repo"
)

const titleLength = 40

// ErrEmptyMessage is returned for blank messages
var ErrEmptyMessage = errors.New("message is required")

// SendInput is one message to translate. A nil ChatID starts a new conversation.
type SendInput struct {
	ChatID  *uuid.UUID
	Message string
	Source  *string
	Target  string
}

// Service stores translation conversations
type Service struct {
	chats  repo.ChatRepo
	engine Engine
	logger *logrus.Logger
}

// NewService creates a conversation service
func NewService(chats repo.ChatRepo, engine Engine, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{chats: chats, engine: engine, logger: logger}
}

// Send translates the message, records both sides and returns the whole conversation
func (s *Service) Send(ctx context.Context, userID uuid.UUID, in SendInput) (model.Chat, error) {
	text := strings.TrimSpace(in.Message)
	if text == "" {
		return model.Chat{}, ErrEmptyMessage
	}
	if err := validate(in.Source, in.Target); err != nil {
		return model.Chat{}, err
	}

	var chatID uuid.UUID
	if in.ChatID != nil {
		existing, err := s.chats.Get(ctx, userID, *in.ChatID)
		if err != nil {
			return model.Chat{}, err
		}
		chatID = existing.ID
	}

	reply, err := s.engine.Translate(ctx, text, in.Source, in.Target)
	if err != nil {
		return model.Chat{}, fmt.Errorf("translate: %w", err)
	}

	created := chatID == uuid.Nil
	chatID, err = s.chats.AppendExchange(ctx, userID, chatID, title(text), text, reply)
	if err != nil {
		return model.Chat{}, err
	}
	if created {
		s.logger.WithFields(logrus.Fields{"chat_id": chatID, "user_id": userID}).Info("chat created")
	}
	return s.chats.Get(ctx, userID, chatID)
}

// List returns the user's conversations, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]model.Chat, error) {
	return s.chats.ListForUser(ctx, userID)
}

// Delete removes one of the user's conversations
func (s *Service) Delete(ctx context.Context, userID, chatID uuid.UUID) error {
	return s.chats.Delete(ctx, userID, chatID)
}

func title(text string) string {
	r := []rune(text)
	if len(r) > titleLength {
		r = r[:titleLength]
	}
	return string(r)
}
