package auth

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/satranslator/translator/internal/model"
)

// Mailer delivers verification codes
type Mailer interface {
	SendCode(ctx context.Context, email string, purpose model.Purpose, code string) error
}

// LogMailer writes codes to the server log. Local development only.
type LogMailer struct {
	Logger *logrus.Logger
}

func (m LogMailer) SendCode(_ context.Context, email string, purpose model.Purpose, code string) error {
	m.Logger.WithFields(logrus.Fields{
		"email":   MaskEmail(email),
		"purpose": purpose,
		"code":    code,
	}).Info("verification code issued")
	return nil
}

// MaskEmail masks an address for logging (e.g. th****@example.com)
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "****"
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return "**" + domain
	}
	return local[:2] + strings.Repeat("*", len(local)-2) + domain
}
