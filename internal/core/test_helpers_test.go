package core

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/wirenotify-server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event of kind %v: %+v", kind, ev)
			}
		default:
			return
		}
	}
}

// memoryStore keeps notifications in memory and can be told to fail.
type memoryStore struct {
	mu            sync.Mutex
	nextID        int64
	notifications []*store.Notification
	fail          error
}

func (m *memoryStore) CreateNotification(_ context.Context, senderID, receiverID int64, message string) (*store.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return nil, m.fail
	}
	m.nextID++
	n := &store.Notification{
		ID:         m.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Message:    message,
		CreatedAt:  time.Now(),
	}
	m.notifications = append(m.notifications, n)
	return n, nil
}

func (m *memoryStore) forReceiver(receiverID int64) []*store.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*store.Notification
	for _, n := range m.notifications {
		if n.ReceiverID == receiverID {
			out = append(out, n)
		}
	}
	return out
}

var errBadToken = errors.New("bad token")

// tokenVerifier accepts credentials of the form "user:<id>".
type tokenVerifier struct{}

func (tokenVerifier) Verify(credential string) (int64, error) {
	raw, ok := strings.CutPrefix(credential, "user:")
	if !ok {
		return 0, errBadToken
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadToken
	}
	return id, nil
}

// stubHandle records pushes and can simulate a dead connection.
type stubHandle struct {
	id string

	mu     sync.Mutex
	pushed []*Event
	dead   bool
}

func (s *stubHandle) ID() string { return s.id }

func (s *stubHandle) Push(ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dead {
		return ErrDeadHandle
	}
	s.pushed = append(s.pushed, ev)
	return nil
}

func (s *stubHandle) kill() {
	s.mu.Lock()
	s.dead = true
	s.mu.Unlock()
}

func (s *stubHandle) count(kind EventKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, ev := range s.pushed {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
