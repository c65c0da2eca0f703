package gateway

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/satranslator/translator/internal/session"
)

// ID is a server-issued identifier that may arrive as a JSON number or string
type ID string

// UnmarshalJSON accepts both 42 and "42"
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Username             string `json:"username"`
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is what a successful login hands back
type LoginResult struct {
	Message string
	Token   string
	User    *session.User
}

// VerifyRequest is the body of POST /auth/verify-token
type VerifyRequest struct {
	Email string           `json:"email,omitempty"`
	Token string           `json:"token"`
	Type  session.FlowType `json:"type"`
}

// VerifyResult carries the reset token issued for PASSWORD_RESET verifications
type VerifyResult struct {
	Message string
	Token   string
}

// ResendRequest is the body of POST /auth/resend-token
type ResendRequest struct {
	Email string           `json:"email"`
	Type  session.FlowType `json:"type"`
}

// ProfileUpdate is the body of PATCH /profile/update
type ProfileUpdate struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Location  string `json:"location"`
	Bio       string `json:"bio"`
}

// PasswordChange is the body of POST /profile/change-password
type PasswordChange struct {
	CurrentPassword         string `json:"current_password"`
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

// SessionRecord is one signed-in device as listed by GET /sessions
type SessionRecord struct {
	ID           ID        `json:"id"`
	Device       string    `json:"device"`
	IPAddress    string    `json:"ip_address"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// SendChatRequest is the body of POST /chat. A nil SourceLanguage asks the server to detect it.
type SendChatRequest struct {
	Message        string  `json:"message"`
	SourceLanguage *string `json:"sourceLanguage"`
	TargetLanguage string  `json:"targetLanguage"`
	ChatID         string  `json:"chat_id,omitempty"`
}

// ChatRecord is a conversation as the API returns it
type ChatRecord struct {
	ID        ID              `json:"id"`
	Title     string          `json:"title"`
	CreatedAt time.Time       `json:"created_at"`
	Messages  []MessageRecord `json:"messages"`
}

// MessageRecord is one message of a ChatRecord
type MessageRecord struct {
	ID      ID     `json:"id"`
	Content string `json:"content"`
	Sender  string `json:"sender"`
}

// SenderUser marks messages written by the user
const SenderUser = "user"
