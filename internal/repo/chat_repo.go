package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/satranslator/translator/internal/model"
)

// ChatRepo stores conversations and their messages
type ChatRepo interface {
	Get(ctx context.Context, userID, chatID uuid.UUID) (model.Chat, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Chat, error)
	// AppendExchange stores a user message and its reply in one transaction. A nil chatID
	// creates the conversation with title first.
	AppendExchange(ctx context.Context, userID, chatID uuid.UUID, title, userText, reply string) (uuid.UUID, error)
	Delete(ctx context.Context, userID, chatID uuid.UUID) error
}

type chatRepo struct {
	db *sql.DB
}

// NewChatRepo creates a new ChatRepo instance
func NewChatRepo(db *sql.DB) ChatRepo {
	return &chatRepo{db: db}
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AppendExchange stores both sides of an exchange, or nothing
func (r *chatRepo) AppendExchange(ctx context.Context, userID, chatID uuid.UUID, title, userText, reply string) (uuid.UUID, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if chatID == uuid.Nil {
		created, err := insertChat(ctx, tx, userID, title)
		if err != nil {
			return uuid.Nil, err
		}
		chatID = created.ID
	} else {
		var one int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM chats WHERE id = $1 AND user_id = $2 FOR UPDATE
		`, chatID, userID).Scan(&one)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return uuid.Nil, fmt.Errorf("chat %w", ErrNotFound)
			}
			return uuid.Nil, fmt.Errorf("lock chat: %w", err)
		}
	}

	if _, err := insertMessage(ctx, tx, chatID, userText, model.SenderUser); err != nil {
		return uuid.Nil, err
	}
	if _, err := insertMessage(ctx, tx, chatID, reply, model.SenderAssistant); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return chatID, nil
}

func insertChat(ctx context.Context, q rowQuerier, userID uuid.UUID, title string) (model.Chat, error) {
	c := model.Chat{UserID: userID, Title: title}
	var idStr string
	err := q.QueryRowContext(ctx, `
		INSERT INTO chats (user_id, title) VALUES ($1, $2)
		RETURNING id, created_at
	`, userID, title).Scan(&idStr, &c.CreatedAt)
	if err != nil {
		return model.Chat{}, fmt.Errorf("insert chat: %w", err)
	}
	if c.ID, err = uuid.Parse(idStr); err != nil {
		return model.Chat{}, fmt.Errorf("parse chat ID: %w", err)
	}
	return c, nil
}

func insertMessage(ctx context.Context, q rowQuerier, chatID uuid.UUID, content, sender string) (model.Message, error) {
	m := model.Message{ChatID: chatID, Content: content, Sender: sender}
	err := q.QueryRowContext(ctx, `
		INSERT INTO messages (chat_id, content, sender) VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, chatID, content, sender).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return model.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

// Get returns one of the user's conversations with its messages in order
func (r *chatRepo) Get(ctx context.Context, userID, chatID uuid.UUID) (model.Chat, error) {
	c := model.Chat{ID: chatID, UserID: userID}
	err := r.db.QueryRowContext(ctx, `
		SELECT title, created_at FROM chats WHERE id = $1 AND user_id = $2
	`, chatID, userID).Scan(&c.Title, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Chat{}, fmt.Errorf("chat %w", ErrNotFound)
		}
		return model.Chat{}, fmt.Errorf("query chat: %w", err)
	}
	byChat, err := r.messagesFor(ctx, []string{chatID.String()})
	if err != nil {
		return model.Chat{}, err
	}
	c.Messages = byChat[chatID]
	return c, nil
}

// ListForUser returns the user's conversations, newest first, each with its messages
func (r *chatRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Chat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, created_at FROM chats WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []model.Chat
	var ids []string
	for rows.Next() {
		c := model.Chat{UserID: userID}
		var idStr string
		if err := rows.Scan(&idStr, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		if c.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("parse chat ID: %w", err)
		}
		chats = append(chats, c)
		ids = append(ids, idStr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}
	if len(chats) == 0 {
		return chats, nil
	}

	byChat, err := r.messagesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range chats {
		chats[i].Messages = byChat[chats[i].ID]
	}
	return chats, nil
}

func (r *chatRepo) messagesFor(ctx context.Context, chatIDs []string) (map[uuid.UUID][]model.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, content, sender, created_at
		FROM messages
		WHERE chat_id = ANY($1::uuid[])
		ORDER BY id
	`, pq.Array(chatIDs))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]model.Message, len(chatIDs))
	for rows.Next() {
		var m model.Message
		var chatIDStr string
		if err := rows.Scan(&m.ID, &chatIDStr, &m.Content, &m.Sender, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if m.ChatID, err = uuid.Parse(chatIDStr); err != nil {
			return nil, fmt.Errorf("parse chat ID: %w", err)
		}
		out[m.ChatID] = append(out[m.ChatID], m)
	}
	return out, rows.Err()
}

// Delete removes one of the user's conversations and its messages
func (r *chatRepo) Delete(ctx context.Context, userID, chatID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM chats WHERE id = $1 AND user_id = $2`, chatID, userID)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return expectOne(result, "chat")
}
