package chat

import (
	"strings"
	"time"

	"github.com/satranslator/translator/internal/gateway"
)

// Message is one entry of a conversation. It is never edited after creation.
type Message struct {
	ID               string
	Text             string
	IsUser           bool
	DetectedLanguage string
}

// HistoryItem is a conversation as listed in the history sidebar
type HistoryItem struct {
	ID        string
	Title     string
	CreatedAt time.Time
	Messages  []Message
}

// Phase of the active conversation's last send
type Phase int

const (
	// PhaseIdle: nothing sent since the conversation was loaded
	PhaseIdle Phase = iota
	// PhasePending: optimistic entries are shown while the send is in flight
	PhasePending
	// PhaseReconciled: the list was replaced by the server's canonical list
	PhaseReconciled
	// PhaseFailed: the last send failed; its optimistic entry stays visible
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseReconciled:
		return "reconciled"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// State of a conversation
type State string

const (
	StateNew     State = "NEW"
	StateSending State = "SENDING"
	StateActive  State = "ACTIVE"
)

// Active is the conversation on screen. Messages mirror the last successful fetch or send;
// Pending holds optimistic entries layered on top until the server answers.
type Active struct {
	ID       string
	Messages []Message
	Pending  []Message
	Phase    Phase
}

// State derives NEW / SENDING / ACTIVE
func (a Active) State() State {
	switch {
	case a.Phase == PhasePending:
		return StateSending
	case a.ID == "":
		return StateNew
	default:
		return StateActive
	}
}

// View is the list to render: reconciled messages followed by optimistic ones
func (a Active) View() []Message {
	out := make([]Message, 0, len(a.Messages)+len(a.Pending))
	out = append(out, a.Messages...)
	return append(out, a.Pending...)
}

func (a Active) clone() Active {
	a.Messages = cloneMessages(a.Messages)
	a.Pending = cloneMessages(a.Pending)
	return a
}

func cloneMessages(in []Message) []Message {
	if in == nil {
		return nil
	}
	return append([]Message(nil), in...)
}

func cloneHistory(in []HistoryItem) []HistoryItem {
	out := make([]HistoryItem, len(in))
	for i, item := range in {
		item.Messages = cloneMessages(item.Messages)
		out[i] = item
	}
	return out
}

// mapHistory converts listed records. History messages carry no language tag.
func mapHistory(records []gateway.ChatRecord) []HistoryItem {
	items := make([]HistoryItem, 0, len(records))
	for _, rec := range records {
		msgs := make([]Message, 0, len(rec.Messages))
		for _, m := range rec.Messages {
			msgs = append(msgs, Message{
				ID:     string(m.ID),
				Text:   m.Content,
				IsUser: m.Sender == gateway.SenderUser,
			})
		}
		items = append(items, HistoryItem{
			ID:        string(rec.ID),
			Title:     rec.Title,
			CreatedAt: rec.CreatedAt,
			Messages:  msgs,
		})
	}
	return items
}

// mapSent converts the canonical list returned by a send, tagging each message with the
// language it was written in.
func mapSent(records []gateway.MessageRecord, source, target string) []Message {
	msgs := make([]Message, 0, len(records))
	for _, m := range records {
		isUser := m.Sender == gateway.SenderUser
		lang := target
		if isUser {
			lang = source
		}
		msgs = append(msgs, Message{
			ID:               string(m.ID),
			Text:             m.Content,
			IsUser:           isUser,
			DetectedLanguage: strings.ToUpper(lang),
		})
	}
	return msgs
}
