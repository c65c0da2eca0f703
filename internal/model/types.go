package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account
type User struct {
	ID              uuid.UUID
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Location        string
	Bio             string
	PasswordHash    string
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
}

// Verified reports whether the e-mail address was confirmed with a code
func (u User) Verified() bool {
	return u.EmailVerifiedAt != nil
}

// Session is one signed-in device. Access tokens carry its id and die with it.
type Session struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	DeviceName   string
	DeviceType   string
	IPAddress    string
	CreatedAt    time.Time
	LastActiveAt time.Time
	RevokedAt    *time.Time
}

// Purpose of a verification code
type Purpose string

const (
	PurposeRegister      Purpose = "REGISTER"
	PurposePasswordReset Purpose = "PASSWORD_RESET"
	PurposeEmailReset    Purpose = "EMAIL_RESET"
)

// Valid reports whether p is a known purpose
func (p Purpose) Valid() bool {
	switch p {
	case PurposeRegister, PurposePasswordReset, PurposeEmailReset:
		return true
	}
	return false
}

// VerificationToken is an issued one-time code. Only the hash is stored.
type VerificationToken struct {
	ID            uuid.UUID
	Email         string
	Purpose       Purpose
	TokenHash     []byte
	ExpiresAt     time.Time
	ConsumedAt    *time.Time
	CreatedAt     time.Time
	AttemptCount  int
	LastAttemptAt *time.Time
	RequestIP     *string
}

// Sender of a chat message
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Chat is a translation conversation
type Chat struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	CreatedAt time.Time
	Messages  []Message
}

// Message belongs to a Chat; ids are sequential
type Message struct {
	ID        int64
	ChatID    uuid.UUID
	Content   string
	Sender    string
	CreatedAt time.Time
}
