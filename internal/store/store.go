package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Notification represents a persisted directed message between two users.
type Notification struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Message    string
	IsRead     bool
	CreatedAt  time.Time

	// Sender is populated by listing queries that join the users table.
	Sender *UserRef
}

// UserRef is the public subset of a user embedded in notification views.
type UserRef struct {
	ID       int64
	Username string
}

// Page describes one page of a receiver's notification history.
type Page struct {
	Notifications []*Notification
	Total         int
	Page          int
	Limit         int
}

// TotalPages returns the number of pages for the page's limit.
func (p Page) TotalPages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// UserExists reports whether a user with the given ID exists.
	UserExists(ctx context.Context, id int64) (bool, error)
}

// NotificationStore handles notification persistence.
type NotificationStore interface {
	// CreateNotification persists a new unread notification.
	CreateNotification(ctx context.Context, senderID, receiverID int64, message string) (*Notification, error)

	// GetNotification retrieves a notification addressed to receiverID.
	GetNotification(ctx context.Context, id, receiverID int64) (*Notification, error)

	// ListNotifications returns a receiver's notifications, newest first.
	// page is 1-based.
	ListNotifications(ctx context.Context, receiverID int64, page, limit int) (*Page, error)

	// MarkRead flags a single notification as read. Already-read
	// notifications are returned unchanged.
	MarkRead(ctx context.Context, id, receiverID int64) (*Notification, error)

	// MarkAllRead flags every unread notification of a receiver as read and
	// returns how many changed.
	MarkAllRead(ctx context.Context, receiverID int64) (int64, error)

	// CountUnread returns the number of unread notifications of a receiver.
	CountUnread(ctx context.Context, receiverID int64) (int64, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	NotificationStore

	// Close closes the underlying database connection.
	Close() error
}
