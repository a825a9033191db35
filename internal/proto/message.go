package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	InboundTypeAuthenticate = "authenticate"
	InboundTypePing         = "ping"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventAuthenticated = "authenticated"
	EventNotification  = "notification"
	EventPong          = "pong"
)

// AuthenticateData carries the credential a connection authenticates with.
type AuthenticateData struct {
	Token string `json:"token"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventAuthenticatedData answers an authenticate message.
type EventAuthenticatedData struct {
	Success bool   `json:"success"`
	UserID  int64  `json:"user_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// NotificationPayload is pushed to a receiver when a notification is created.
type NotificationPayload struct {
	ID         int64      `json:"id"`
	SenderID   int64      `json:"senderId"`
	ReceiverID int64      `json:"receiverId"`
	Message    string     `json:"message"`
	IsRead     bool       `json:"isRead"`
	CreatedAt  string     `json:"createdAt"`
	Sender     SenderData `json:"sender"`
}

// SenderData holds the sender's display attributes.
type SenderData struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
