package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/satranslator/translator/internal/gateway"
	"github.com/satranslator/translator/internal/nav"
	"github.com/satranslator/translator/internal/notify"
)

var (
	// ErrEmptyMessage is returned for blank input; nothing is appended or sent
	ErrEmptyMessage = errors.New("message is empty")
	// ErrBusy is returned while the same action is still in flight
	ErrBusy = errors.New("request already in progress")
	// ErrDeclined is returned when the user does not confirm a delete
	ErrDeclined = errors.New("delete not confirmed")
	// ErrNotFound is returned when selecting a conversation missing from history
	ErrNotFound = errors.New("conversation not found")
)

const deletePrompt = "Are you sure you want to delete this chat?"

// API is the part of the gateway the manager needs
type API interface {
	SendChat(ctx context.Context, req gateway.SendChatRequest) (gateway.ChatRecord, error)
	ListChats(ctx context.Context) ([]gateway.ChatRecord, error)
	DeleteChat(ctx context.Context, id string) error
}

// Navigator moves the client between routes
type Navigator interface {
	Navigate(path string) (nav.Location, error)
}

// Confirmer blocks until the user accepts or rejects a destructive action
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Manager owns the conversation history, the active conversation and the language pair.
// The active conversation is derived from the current route and the loaded history; every
// action that changes which conversation is shown bumps a generation so late responses
// for the old one are dropped.
type Manager struct {
	api      API
	nav      Navigator
	confirm  Confirmer
	notifier notify.Notifier
	logger   *logrus.Logger

	now   func() time.Time
	newID func() string

	mu         sync.Mutex
	history    []HistoryItem
	active     Active
	routeID    string
	pair       Pair
	sending    bool
	deleting   map[string]bool
	gen        uint64
	historySeq uint64
}

// NewManager creates a manager in the NEW state with the default language pair
func NewManager(api API, navigator Navigator, confirm Confirmer, notifier notify.Notifier, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		api:      api,
		nav:      navigator,
		confirm:  confirm,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return "local-" + uuid.NewString() },
		pair:     DefaultPair,
		deleting: make(map[string]bool),
	}
}

// History returns the loaded conversations in server order
func (m *Manager) History() []HistoryItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneHistory(m.history)
}

// Groups buckets the loaded history relative to the local clock
func (m *Manager) Groups() []Group {
	return GroupHistory(m.History(), m.now())
}

// Active returns a copy of the active conversation
func (m *Manager) Active() Active {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active.clone()
}

// Messages returns what the conversation view renders
func (m *Manager) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active.View()
}

// Sending reports whether a send is in flight
func (m *Manager) Sending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sending
}

// Deleting reports whether a delete of id is in flight
func (m *Manager) Deleting(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleting[id]
}

// Pair returns the selected languages
func (m *Manager) Pair() Pair {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair
}

// SetSource selects the source language; auto is allowed
func (m *Manager) SetSource(code string) error {
	if err := validateSource(code); err != nil {
		return err
	}
	m.mu.Lock()
	m.pair.Source = code
	m.mu.Unlock()
	return nil
}

// SetTarget selects the target language
func (m *Manager) SetTarget(code string) error {
	if err := validateTarget(code); err != nil {
		return err
	}
	m.mu.Lock()
	m.pair.Target = code
	m.mu.Unlock()
	return nil
}

// SwapLanguages exchanges source and target unless the source is auto
func (m *Manager) SwapLanguages() Pair {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = m.pair.Swap()
	return m.pair
}

// FetchHistory reloads the conversation list. A failure keeps the previous list and is only
// logged; the error is returned for callers that want it.
func (m *Manager) FetchHistory(ctx context.Context) error {
	m.mu.Lock()
	m.historySeq++
	seq := m.historySeq
	m.mu.Unlock()

	records, err := m.api.ListChats(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("failed to fetch chat history")
		return fmt.Errorf("fetch history: %w", err)
	}
	items := mapHistory(records)

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.historySeq {
		m.logger.WithField("seq", seq).Debug("dropping superseded history response")
		return nil
	}
	m.history = items
	m.active = Derive(m.routeID, m.history, m.active)
	return nil
}

// SelectConversation shows item and moves the route to it
func (m *Manager) SelectConversation(item HistoryItem) error {
	if item.ID == "" {
		return ErrNotFound
	}
	m.mu.Lock()
	m.gen++
	m.active = Active{ID: item.ID, Messages: cloneMessages(item.Messages)}
	m.routeID = item.ID
	m.mu.Unlock()

	if _, err := m.nav.Navigate(nav.ChatPath(item.ID)); err != nil {
		return fmt.Errorf("navigate to chat: %w", err)
	}
	return nil
}

// SelectByID looks id up in the loaded history and selects it
func (m *Manager) SelectByID(id string) error {
	for _, item := range m.History() {
		if item.ID == id {
			return m.SelectConversation(item)
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// StartNewConversation clears the active conversation and returns to the root route
func (m *Manager) StartNewConversation() error {
	m.mu.Lock()
	m.gen++
	m.active = Active{}
	m.routeID = ""
	m.mu.Unlock()

	if _, err := m.nav.Navigate(nav.RouteRoot); err != nil {
		return fmt.Errorf("navigate to root: %w", err)
	}
	return nil
}

// SendMessage shows text immediately as a pending entry, then replaces the whole active list
// with the server's copy of the conversation. A new conversation gets its id from the
// response and the route follows it. On failure the pending entry stays visible.
func (m *Manager) SendMessage(ctx context.Context, text, source, target string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if err := validateSource(source); err != nil {
		return err
	}
	if err := validateTarget(target); err != nil {
		return err
	}

	m.mu.Lock()
	if m.sending {
		m.mu.Unlock()
		return ErrBusy
	}
	m.sending = true
	gen := m.gen
	chatID := m.active.ID
	m.active.Pending = append(m.active.Pending, Message{
		ID:               m.newID(),
		Text:             text,
		IsUser:           true,
		DetectedLanguage: strings.ToUpper(source),
	})
	m.active.Phase = PhasePending
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.sending = false
		m.mu.Unlock()
	}()

	rec, err := m.api.SendChat(ctx, gateway.SendChatRequest{
		Message:        text,
		SourceLanguage: sourceParam(source),
		TargetLanguage: target,
		ChatID:         chatID,
	})
	if err != nil {
		m.mu.Lock()
		if gen == m.gen {
			m.active.Phase = PhaseFailed
		}
		m.mu.Unlock()
		m.logger.WithError(err).WithField("chat_id", chatID).Error("send message failed")
		m.notifier.Error(gateway.MessageOr(err, "Failed to send message"))
		return fmt.Errorf("send message: %w", err)
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.logger.WithField("chat_id", string(rec.ID)).Info("conversation changed while sending, dropping response")
		m.refreshHistory(ctx)
		return nil
	}
	id := string(rec.ID)
	if id == "" {
		id = chatID
	}
	assigned := chatID == "" && id != ""
	m.active = Active{
		ID:       id,
		Messages: mapSent(rec.Messages, source, target),
		Phase:    PhaseReconciled,
	}
	m.routeID = id
	m.mu.Unlock()

	if assigned {
		if _, err := m.nav.Navigate(nav.ChatPath(id)); err != nil {
			m.logger.WithError(err).WithField("chat_id", id).Warn("failed to update route")
		}
	}
	m.refreshHistory(ctx)
	return nil
}

// DeleteConversation removes id after the user confirms. Deleting the active conversation
// returns to the root route; other conversations are left untouched.
func (m *Manager) DeleteConversation(ctx context.Context, id string) error {
	if m.confirm != nil && !m.confirm.Confirm(deletePrompt) {
		return ErrDeclined
	}

	m.mu.Lock()
	if m.deleting[id] {
		m.mu.Unlock()
		return ErrBusy
	}
	m.deleting[id] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.deleting, id)
		m.mu.Unlock()
	}()

	if err := m.api.DeleteChat(ctx, id); err != nil {
		m.logger.WithError(err).WithField("chat_id", id).Error("delete chat failed")
		m.notifier.Error(gateway.MessageOr(err, "Failed to delete chat"))
		return fmt.Errorf("delete chat: %w", err)
	}
	m.notifier.Success("Chat deleted successfully")

	m.mu.Lock()
	wasActive := m.active.ID == id
	if wasActive {
		m.gen++
		m.active = Active{}
		m.routeID = ""
	}
	m.mu.Unlock()

	if wasActive {
		if _, err := m.nav.Navigate(nav.RouteRoot); err != nil {
			m.logger.WithError(err).Warn("failed to return to root")
		}
	}
	m.refreshHistory(ctx)
	return nil
}

// OnRoute re-derives the active conversation when the location changes. Routes outside the
// chat view are ignored.
func (m *Manager) OnRoute(loc nav.Location) {
	if !loc.Protected() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if loc.ChatID != m.active.ID {
		m.gen++
	}
	m.routeID = loc.ChatID
	m.active = Derive(m.routeID, m.history, m.active)
}

func (m *Manager) refreshHistory(ctx context.Context) {
	// failures are logged by FetchHistory
	_ = m.FetchHistory(ctx)
}
