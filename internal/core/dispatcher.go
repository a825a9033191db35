package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirenotify-server/internal/store"
)

// Outcome describes how a notification reached its receiver.
type Outcome int

const (
	// OutcomeQueued means the notification is stored but was not pushed.
	OutcomeQueued Outcome = iota
	// OutcomePushed means the notification was handed to the receiver's connection.
	OutcomePushed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePushed:
		return "pushed"
	default:
		return "queued"
	}
}

// NotificationCreator is the slice of the notification store the dispatcher writes through.
type NotificationCreator interface {
	CreateNotification(ctx context.Context, senderID, receiverID int64, message string) (*store.Notification, error)
}

// Draft is a notification that has not been stored yet. Sender and receiver
// are expected to have been checked for existence by the caller.
type Draft struct {
	Sender     Sender
	ReceiverID int64
	Message    string
}

// Dispatcher stores notifications and pushes them to online receivers.
type Dispatcher struct {
	store    NotificationCreator
	presence *Registry
	log      *zerolog.Logger
}

// NewDispatcher creates a dispatcher over the given store and registry.
func NewDispatcher(st NotificationCreator, presence *Registry, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    st,
		presence: presence,
		log:      logger,
	}
}

// Deliver persists the draft and then attempts a best-effort push.
// A *PersistenceError is returned if the notification could not be stored;
// push failures only downgrade the outcome to OutcomeQueued.
func (d *Dispatcher) Deliver(ctx context.Context, draft Draft) (*store.Notification, Outcome, error) {
	n, err := d.store.CreateNotification(ctx, draft.Sender.ID, draft.ReceiverID, draft.Message)
	if err != nil {
		return nil, OutcomeQueued, &PersistenceError{Err: err}
	}

	h, online := d.presence.HandleFor(n.ReceiverID)
	if !online {
		d.log.Debug().
			Int64("notification_id", n.ID).
			Int64("user_id", n.ReceiverID).
			Str("outcome", OutcomeQueued.String()).
			Msg("receiver offline")
		return n, OutcomeQueued, nil
	}

	payload := newPayload(n, draft.Sender)
	if err := h.Push(&Event{Kind: EventNotification, Notification: payload}); err != nil {
		d.log.Warn().Err(err).
			Int64("notification_id", n.ID).
			Int64("user_id", n.ReceiverID).
			Str("conn_id", h.ID()).
			Str("outcome", OutcomeQueued.String()).
			Msg("push failed")
		return n, OutcomeQueued, nil
	}

	d.log.Debug().
		Int64("notification_id", n.ID).
		Int64("user_id", n.ReceiverID).
		Str("conn_id", h.ID()).
		Str("outcome", OutcomePushed.String()).
		Msg("notification pushed")
	return n, OutcomePushed, nil
}

func newPayload(n *store.Notification, sender Sender) *Payload {
	return &Payload{
		ID:         n.ID,
		SenderID:   n.SenderID,
		ReceiverID: n.ReceiverID,
		Message:    n.Message,
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt,
		Sender:     sender,
	}
}
