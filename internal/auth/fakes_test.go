package auth

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satranslator/translator/internal/model"
	"github.com/satranslator/translator/internal/repo"
)

// memTokens is an in-memory repo.TokenRepo
type memTokens struct {
	mu     sync.Mutex
	now    func() time.Time
	tokens []*model.VerificationToken
}

func (m *memTokens) active(t *model.VerificationToken) bool {
	return t.ConsumedAt == nil && t.ExpiresAt.After(m.now()) && t.AttemptCount < maxAttempts
}

func (m *memTokens) CreateOrReplace(_ context.Context, email string, purpose model.Purpose, hashHex string, expiresAt time.Time, ip *string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for _, t := range m.tokens {
		if strings.EqualFold(t.Email, email) && t.Purpose == purpose && t.ConsumedAt == nil {
			t.ConsumedAt = &now
		}
	}
	hash, err := hex.DecodeString(hashHex)
	if err != nil {
		return uuid.Nil, err
	}
	t := &model.VerificationToken{ID: uuid.New(), Email: email, Purpose: purpose, TokenHash: hash, ExpiresAt: expiresAt, CreatedAt: now, RequestIP: ip}
	m.tokens = append(m.tokens, t)
	return t.ID, nil
}

func (m *memTokens) GetActive(_ context.Context, email string, purpose model.Purpose) (model.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.tokens) - 1; i >= 0; i-- {
		t := m.tokens[i]
		if strings.EqualFold(t.Email, email) && t.Purpose == purpose && m.active(t) {
			return *t, nil
		}
	}
	return model.VerificationToken{}, fmt.Errorf("token %w", repo.ErrNotFound)
}

func (m *memTokens) ListActiveByPurpose(_ context.Context, purpose model.Purpose) ([]model.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.VerificationToken
	for _, t := range m.tokens {
		if t.Purpose == purpose && m.active(t) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memTokens) find(id uuid.UUID) *model.VerificationToken {
	for _, t := range m.tokens {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (m *memTokens) MarkConsumed(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.find(id)
	if t == nil {
		return repo.ErrNotFound
	}
	now := m.now()
	t.ConsumedAt = &now
	return nil
}

func (m *memTokens) IncrementAttempt(_ context.Context, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.find(id)
	if t == nil {
		return 0, repo.ErrNotFound
	}
	now := m.now()
	t.AttemptCount++
	t.LastAttemptAt = &now
	return t.AttemptCount, nil
}

func (m *memTokens) CountRecent(_ context.Context, email string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tokens {
		if strings.EqualFold(t.Email, email) && !t.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// memUsers is an in-memory repo.UserRepo
type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func newMemUsers() *memUsers { return &memUsers{users: make(map[uuid.UUID]model.User)} }

func (m *memUsers) Create(_ context.Context, u model.User) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return model.User{}, fmt.Errorf("user %w", repo.ErrDuplicate)
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return u, nil
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user %w", repo.ErrNotFound)
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("user %w", repo.ErrNotFound)
}

func (m *memUsers) MarkEmailVerified(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			if u.EmailVerifiedAt == nil {
				now := time.Now()
				u.EmailVerifiedAt = &now
				m.users[id] = u
			}
			return nil
		}
	}
	return repo.ErrNotFound
}

func (m *memUsers) UpdateProfile(_ context.Context, id uuid.UUID, first, last, location, bio string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.FirstName, u.LastName, u.Location, u.Bio = first, last, location, bio
	m.users[id] = u
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

// memSessions is an in-memory repo.SessionRepo
type memSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]model.Session
}

func newMemSessions() *memSessions { return &memSessions{sessions: make(map[uuid.UUID]model.Session)} }

func (m *memSessions) Create(_ context.Context, userID uuid.UUID, name, typ, ip string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	s := model.Session{ID: uuid.New(), UserID: userID, DeviceName: name, DeviceType: typ, IPAddress: ip, CreatedAt: now, LastActiveAt: now}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memSessions) GetActive(_ context.Context, id uuid.UUID) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.RevokedAt != nil {
		return model.Session{}, fmt.Errorf("session %w", repo.ErrNotFound)
	}
	return s, nil
}

func (m *memSessions) Touch(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.LastActiveAt = time.Now()
		m.sessions[id] = s
	}
	return nil
}

func (m *memSessions) ListActive(_ context.Context, userID uuid.UUID) ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Session
	for _, s := range m.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSessions) Revoke(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID || s.RevokedAt != nil {
		return fmt.Errorf("session %w", repo.ErrNotFound)
	}
	now := time.Now()
	s.RevokedAt = &now
	m.sessions[id] = s
	return nil
}

func (m *memSessions) RevokeAllForUser(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, s := range m.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
			m.sessions[id] = s
		}
	}
	return nil
}

// outbox records mailed codes
type outbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (o *outbox) SendCode(_ context.Context, email string, purpose model.Purpose, code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.codes == nil {
		o.codes = make(map[string]string)
	}
	o.codes[strings.ToLower(email)+"/"+string(purpose)] = code
	return nil
}

func (o *outbox) last(email string, purpose model.Purpose) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.codes[strings.ToLower(email)+"/"+string(purpose)]
}

// clock is a settable time source
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
