package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vovakirdan/wirenotify-server/internal/core"
	"github.com/vovakirdan/wirenotify-server/internal/store"
	"github.com/vovakirdan/wirenotify-server/internal/store/sqlite"
)

type fixture struct {
	svc      *Service
	hub      *core.Hub
	st       *sqlite.SQLiteStore
	sender   *store.User
	receiver *store.User
}

type idVerifier map[string]int64

func (v idVerifier) Verify(credential string) (int64, error) {
	id, ok := v[credential]
	if !ok {
		return 0, errors.New("unknown credential")
	}
	return id, nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	if _, err := st.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	sender, err := st.CreateUser(ctx, "sender", "hash")
	if err != nil {
		t.Fatalf("create sender: %v", err)
	}
	receiver, err := st.CreateUser(ctx, "receiver", "hash")
	if err != nil {
		t.Fatalf("create receiver: %v", err)
	}

	hub := core.NewHub(st, idVerifier{"receiver-token": receiver.ID}, nil)
	return &fixture{
		svc:      New(st, hub),
		hub:      hub,
		st:       st,
		sender:   sender,
		receiver: receiver,
	}
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		auth     int64
		sender   int64
		receiver int64
		message  string
		want     error
	}{
		{name: "sender mismatch", auth: f.receiver.ID, sender: f.sender.ID, receiver: f.receiver.ID, message: "hi", want: ErrForbiddenSender},
		{name: "empty message", auth: f.sender.ID, sender: f.sender.ID, receiver: f.receiver.ID, message: "   ", want: ErrInvalidMessage},
		{name: "message too long", auth: f.sender.ID, sender: f.sender.ID, receiver: f.receiver.ID, message: strings.Repeat("A", 256), want: ErrInvalidMessage},
		{name: "unknown receiver", auth: f.sender.ID, sender: f.sender.ID, receiver: 9999, message: "hi", want: ErrReceiverNotFound},
		{name: "unknown sender", auth: 9999, sender: 9999, receiver: f.receiver.ID, message: "hi", want: ErrSenderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Send(ctx, tt.auth, tt.sender, tt.receiver, tt.message)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if !errors.Is(ErrReceiverNotFound, ErrUnknownAccount) || !errors.Is(ErrSenderNotFound, ErrUnknownAccount) {
		t.Fatalf("account lookup errors must wrap ErrUnknownAccount")
	}

	count, err := f.svc.UnreadCount(ctx, f.receiver.ID)
	if err != nil || count != 0 {
		t.Fatalf("rejected sends must not store anything, got %d (%v)", count, err)
	}
}

func TestSendAcceptsMaxLengthMessage(t *testing.T) {
	f := newFixture(t)

	sent, err := f.svc.Send(context.Background(), f.sender.ID, f.sender.ID, f.receiver.ID, strings.Repeat("A", 255))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(sent.Notification.Message) != 255 {
		t.Fatalf("unexpected message length %d", len(sent.Notification.Message))
	}
}

func TestSendQueuedThenPushed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sent, err := f.svc.Send(ctx, f.sender.ID, f.sender.ID, f.receiver.ID, "  offline  ")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.Outcome != core.OutcomeQueued {
		t.Fatalf("expected queued, got %v", sent.Outcome)
	}
	if sent.Notification.Message != "offline" {
		t.Fatalf("expected trimmed message, got %q", sent.Notification.Message)
	}
	if sent.Notification.Sender == nil || sent.Notification.Sender.Username != "sender" {
		t.Fatalf("expected sender attributes, got %+v", sent.Notification.Sender)
	}

	client := core.NewClient("c1", 8)
	session := f.hub.Connect(client)
	if _, err := f.hub.Authenticate(session, "receiver-token"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	sent, err = f.svc.Send(ctx, f.sender.ID, f.sender.ID, f.receiver.ID, "online")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.Outcome != core.OutcomePushed {
		t.Fatalf("expected pushed, got %v", sent.Outcome)
	}

	page, err := f.svc.List(ctx, f.receiver.ID, DefaultPage, DefaultLimit)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || page.Notifications[0].Message != "online" {
		t.Fatalf("unexpected history: total=%d first=%+v", page.Total, page.Notifications[0])
	}
}

type failingDeliverer struct{ err error }

func (d failingDeliverer) Deliver(context.Context, core.Draft) (*store.Notification, core.Outcome, error) {
	return nil, core.OutcomeQueued, d.err
}

func TestSendPropagatesPersistenceError(t *testing.T) {
	f := newFixture(t)
	persistErr := &core.PersistenceError{Err: errors.New("disk full")}
	svc := New(f.st, failingDeliverer{err: persistErr})

	_, err := svc.Send(context.Background(), f.sender.ID, f.sender.ID, f.receiver.ID, "hi")
	var target *core.PersistenceError
	if !errors.As(err, &target) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}

// brokenLookup fails receiver existence checks while every other call
// reaches the real store.
type brokenLookup struct {
	*sqlite.SQLiteStore
	err error
}

func (r brokenLookup) UserExists(context.Context, int64) (bool, error) {
	return false, r.err
}

func TestSendReceiverLookupError(t *testing.T) {
	f := newFixture(t)
	lookupErr := errors.New("database is locked")
	svc := New(brokenLookup{SQLiteStore: f.st, err: lookupErr}, failingDeliverer{err: errors.New("must not deliver")})

	_, err := svc.Send(context.Background(), f.sender.ID, f.sender.ID, f.receiver.ID, "hi")
	if !errors.Is(err, lookupErr) {
		t.Fatalf("expected lookup error, got %v", err)
	}
	if errors.Is(err, ErrReceiverNotFound) {
		t.Fatalf("a failed lookup is not a missing receiver: %v", err)
	}
}

func TestReadStateIsMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sent, err := f.svc.Send(ctx, f.sender.ID, f.sender.ID, f.receiver.ID, "hi")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := f.svc.Send(ctx, f.sender.ID, f.sender.ID, f.receiver.ID, "second"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if _, err := f.svc.MarkRead(ctx, f.sender.ID, sent.Notification.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("only the receiver may mark it read, got %v", err)
	}
	if _, err := f.svc.MarkRead(ctx, f.receiver.ID, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	n, err := f.svc.MarkRead(ctx, f.receiver.ID, sent.Notification.ID)
	if err != nil || !n.IsRead {
		t.Fatalf("expected read notification, got %+v (%v)", n, err)
	}

	updated, err := f.svc.MarkAllRead(ctx, f.receiver.ID)
	if err != nil || updated != 1 {
		t.Fatalf("expected 1 updated, got %d (%v)", updated, err)
	}

	page, err := f.svc.List(ctx, f.receiver.ID, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, n := range page.Notifications {
		if !n.IsRead {
			t.Fatalf("notification %d flipped back to unread", n.ID)
		}
	}
}

func TestListRejectsBadPagination(t *testing.T) {
	f := newFixture(t)

	for _, p := range []struct{ page, limit int }{{0, 10}, {1, 0}, {1, 101}} {
		if _, err := f.svc.List(context.Background(), f.receiver.ID, p.page, p.limit); !errors.Is(err, ErrInvalidPage) {
			t.Fatalf("page=%d limit=%d: expected ErrInvalidPage, got %v", p.page, p.limit, err)
		}
	}
}
