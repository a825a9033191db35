package core

import "sync"

// SessionState is the presence-relevant state of one connection.
type SessionState int

const (
	// StateUnauthenticated is a connected handle with no presence entry.
	StateUnauthenticated SessionState = iota
	// StateAuthenticated is a handle registered for an account.
	StateAuthenticated
	// StateClosed is terminal; the handle is no longer registered.
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session tracks a single connection through its lifecycle. Transitions on
// one session are serialized so that an authenticate racing a disconnect
// cannot leave a closed handle registered.
type Session struct {
	handle Handle

	mu        sync.Mutex
	state     SessionState
	accountID int64
}

func newSession(h Handle) *Session {
	return &Session{handle: h, state: StateUnauthenticated}
}

// Handle returns the connection handle of the session.
func (s *Session) Handle() Handle {
	return s.handle
}

// State returns the current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AccountID returns the authenticated account, or 0.
func (s *Session) AccountID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountID
}
