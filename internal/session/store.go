package session

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// FlowType tells the verification step which auth flow issued the code
type FlowType string

const (
	FlowRegister      FlowType = "REGISTER"
	FlowPasswordReset FlowType = "PASSWORD_RESET"
	FlowEmailReset    FlowType = "EMAIL_RESET"
)

// User is the profile record of the signed-in account
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Location  string `json:"location"`
	Bio       string `json:"bio"`
}

// AuthSession is the client-side authentication state
type AuthSession struct {
	User         *User    `json:"user,omitempty"`
	Token        string   `json:"token,omitempty"`
	FlowType     FlowType `json:"auth_flow_type,omitempty"`
	PendingEmail string   `json:"pending_email,omitempty"`
}

// Authenticated reports whether a token is present. Token presence alone gates protected views.
func (s AuthSession) Authenticated() bool {
	return s.Token != ""
}

// Reader is the read side handed to components that only need to look at the session
type Reader interface {
	Snapshot() AuthSession
	Token() string
}

// Persister saves the session between process runs
type Persister interface {
	Load() (AuthSession, error)
	Save(AuthSession) error
}

// Store owns the AuthSession. It is the single writer for login/logout transitions;
// every other component receives it (or its Reader) explicitly.
type Store struct {
	mu      sync.RWMutex
	state   AuthSession
	persist Persister
	logger  *logrus.Logger
}

// NewStore creates an empty (anonymous) store. persist may be nil.
func NewStore(persist Persister, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{persist: persist, logger: logger}
}

// Restore loads a previously saved session, if any
func (s *Store) Restore() error {
	if s.persist == nil {
		return nil
	}
	state, err := s.persist.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state = cloneSession(state)
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current session
func (s *Store) Snapshot() AuthSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSession(s.state)
}

// Token returns the bearer token, empty when anonymous
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// User returns a copy of the stored profile, nil when unknown
func (s *Store) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.state.User)
}

// Flow returns the current auth flow, REGISTER when unset
func (s *Store) Flow() FlowType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.FlowType == "" {
		return FlowRegister
	}
	return s.state.FlowType
}

// PendingEmail returns the e-mail address remembered for code verification and resend
func (s *Store) PendingEmail() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.PendingEmail
}

// SignIn stores the user and token after a successful login
func (s *Store) SignIn(user *User, token string) {
	s.update(func(st *AuthSession) {
		st.User = cloneUser(user)
		st.Token = token
	})
}

// SetToken replaces only the token (used for the password-reset token)
func (s *Store) SetToken(token string) {
	s.update(func(st *AuthSession) {
		st.Token = token
	})
}

// SetUser replaces the stored profile
func (s *Store) SetUser(user *User) {
	s.update(func(st *AuthSession) {
		st.User = cloneUser(user)
	})
}

// SetFlow records which flow the next verification belongs to and the address the code went to
func (s *Store) SetFlow(flow FlowType, email string) {
	s.update(func(st *AuthSession) {
		st.FlowType = flow
		st.PendingEmail = email
	})
}

// Reset clears everything back to the anonymous state
func (s *Store) Reset() {
	s.update(func(st *AuthSession) {
		*st = AuthSession{}
	})
}

func (s *Store) update(fn func(*AuthSession)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := cloneSession(s.state)
	s.mu.Unlock()

	if s.persist == nil {
		return
	}
	if err := s.persist.Save(snapshot); err != nil {
		s.logger.WithError(err).Warn("failed to persist auth session")
	}
}

func cloneSession(s AuthSession) AuthSession {
	s.User = cloneUser(s.User)
	return s
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
