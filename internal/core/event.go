package core

import "time"

// EventKind is a notification the core emits to connections.
type EventKind int

const (
	// EventNotification pushes a freshly created notification to its receiver.
	EventNotification EventKind = iota
	// EventAuthenticated reports the result of an authenticate attempt.
	EventAuthenticated
	// EventPong answers a client ping.
	EventPong
	// EventError notifies the connection about a protocol error.
	EventError
)

// Event is sent to connections to describe what happened in the system.
type Event struct {
	Kind         EventKind
	Notification *Payload
	Auth         *AuthResult
	Error        *CoreError
}

// AuthResult is the outcome of an authenticate attempt on a connection.
type AuthResult struct {
	Success bool
	UserID  int64
	Message string
}

// Payload is the record pushed to a receiver for a new notification.
type Payload struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Message    string
	IsRead     bool
	CreatedAt  time.Time
	Sender     Sender
}

// Sender holds the display attributes of a notification's sender.
type Sender struct {
	ID       int64
	Username string
}

func authenticatedEvent(userID int64) *Event {
	return &Event{Kind: EventAuthenticated, Auth: &AuthResult{Success: true, UserID: userID}}
}

func authFailedEvent() *Event {
	return &Event{Kind: EventAuthenticated, Auth: &AuthResult{Success: false, Message: "Authentication failed"}}
}
