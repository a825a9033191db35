package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirenotify-server/internal/store"
)

// Verifier resolves a connection credential to an account ID.
type Verifier interface {
	Verify(credential string) (int64, error)
}

// Hub ties the presence registry, the dispatcher and credential
// verification together behind the connection lifecycle callbacks.
type Hub struct {
	presence   *Registry
	dispatcher *Dispatcher
	verifier   Verifier
	log        *zerolog.Logger
}

// NewHub creates a new hub. A nil logger disables logging.
func NewHub(st NotificationCreator, verifier Verifier, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	presence := NewRegistry()
	return &Hub{
		presence:   presence,
		dispatcher: NewDispatcher(st, presence, logger),
		verifier:   verifier,
		log:        logger,
	}
}

// Connect starts tracking a freshly accepted connection.
func (h *Hub) Connect(handle Handle) *Session {
	h.log.Debug().Str("conn_id", handle.ID()).Msg("connection opened")
	return newSession(handle)
}

// Authenticate verifies credential and registers the session's handle for
// the resolved account. On failure the session stays unauthenticated and an
// authentication-failed event is pushed to the connection.
func (h *Hub) Authenticate(s *Session, credential string) (int64, error) {
	accountID, verifyErr := h.verifier.Verify(credential)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return 0, ErrSessionClosed
	}

	if verifyErr != nil {
		h.log.Debug().Err(verifyErr).Str("conn_id", s.handle.ID()).Msg("connection authentication failed")
		if err := s.handle.Push(authFailedEvent()); err != nil {
			h.log.Warn().Err(err).Str("conn_id", s.handle.ID()).Msg("failed to report authentication failure")
		}
		return 0, verifyErr
	}

	displaced := h.presence.Register(accountID, s.handle)
	s.state = StateAuthenticated
	s.accountID = accountID

	logEvent := h.log.Debug().Int64("user_id", accountID).Str("conn_id", s.handle.ID())
	if displaced != nil {
		logEvent = logEvent.Str("displaced_conn_id", displaced.ID())
	}
	logEvent.Msg("user authenticated")

	if err := s.handle.Push(authenticatedEvent(accountID)); err != nil {
		h.log.Warn().Err(err).Str("conn_id", s.handle.ID()).Msg("failed to acknowledge authentication")
	}
	return accountID, nil
}

// Disconnect removes the session's handle from presence. Safe to call more
// than once; the session ends in StateClosed.
func (h *Hub) Disconnect(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}
	s.state = StateClosed

	if accountID, removed := h.presence.Unregister(s.handle); removed {
		h.log.Debug().Int64("user_id", accountID).Str("conn_id", s.handle.ID()).Msg("user disconnected")
	}
	h.log.Debug().Str("conn_id", s.handle.ID()).Msg("connection closed")
}

// Deliver stores a notification and pushes it if the receiver is online.
func (h *Hub) Deliver(ctx context.Context, draft Draft) (*store.Notification, Outcome, error) {
	return h.dispatcher.Deliver(ctx, draft)
}

// IsOnline reports whether the account has a registered connection.
func (h *Hub) IsOnline(accountID int64) bool {
	return h.presence.IsOnline(accountID)
}

// Online returns the number of accounts with a registered connection.
func (h *Hub) Online() int {
	return h.presence.Len()
}

// ProtocolError builds an error event for malformed client input.
func ProtocolError(code, msg string) *Event {
	return &Event{Kind: EventError, Error: coreError(code, msg)}
}

// Pong builds the answer to a client ping.
func Pong() *Event {
	return &Event{Kind: EventPong}
}
