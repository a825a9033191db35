package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vovakirdan/wirenotify-server/internal/core"
	"github.com/vovakirdan/wirenotify-server/internal/store"
)

// Common errors for notification operations.
var (
	ErrUnknownAccount   = errors.New("unknown account")
	ErrSenderNotFound   = fmt.Errorf("sender not found: %w", ErrUnknownAccount)
	ErrReceiverNotFound = fmt.Errorf("receiver not found: %w", ErrUnknownAccount)
	ErrForbiddenSender  = errors.New("sender does not match the authenticated user")
	ErrInvalidMessage   = errors.New("message must be between 1 and 255 characters")
	ErrInvalidPage      = errors.New("page must be >= 1 and limit between 1 and 100")
	ErrNotFound         = errors.New("notification not found")
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

var validate = validator.New()

type sendInput struct {
	Message string `validate:"required,min=1,max=255"`
}

type pageInput struct {
	Page  int `validate:"min=1"`
	Limit int `validate:"min=1,max=100"`
}

// Repository is the storage the service reads and writes.
type Repository interface {
	GetUserByID(ctx context.Context, id int64) (*store.User, error)
	UserExists(ctx context.Context, id int64) (bool, error)
	store.NotificationStore
}

// Deliverer stores a notification and pushes it to an online receiver.
type Deliverer interface {
	Deliver(ctx context.Context, draft core.Draft) (*store.Notification, core.Outcome, error)
}

// Sent is the result of a successful send.
type Sent struct {
	Notification *store.Notification
	Outcome      core.Outcome
}

// Service provides notification business logic.
type Service struct {
	repo      Repository
	deliverer Deliverer
}

// New creates a new notification service.
func New(repo Repository, deliverer Deliverer) *Service {
	return &Service{
		repo:      repo,
		deliverer: deliverer,
	}
}

// Send creates a notification from senderID to receiverID on behalf of the
// authenticated user and hands it to the deliverer. Both accounts must exist.
func (s *Service) Send(ctx context.Context, authUserID, senderID, receiverID int64, message string) (*Sent, error) {
	if senderID != authUserID {
		return nil, ErrForbiddenSender
	}

	message = strings.TrimSpace(message)
	if err := validate.Struct(sendInput{Message: message}); err != nil {
		return nil, ErrInvalidMessage
	}

	sender, err := s.repo.GetUserByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSenderNotFound
		}
		return nil, fmt.Errorf("lookup sender: %w", err)
	}

	exists, err := s.repo.UserExists(ctx, receiverID)
	if err != nil {
		return nil, fmt.Errorf("lookup receiver: %w", err)
	}
	if !exists {
		return nil, ErrReceiverNotFound
	}

	n, outcome, err := s.deliverer.Deliver(ctx, core.Draft{
		Sender:     core.Sender{ID: sender.ID, Username: sender.Username},
		ReceiverID: receiverID,
		Message:    message,
	})
	if err != nil {
		return nil, err
	}

	n.Sender = &store.UserRef{ID: sender.ID, Username: sender.Username}
	return &Sent{Notification: n, Outcome: outcome}, nil
}

// List returns one page of the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID int64, page, limit int) (*store.Page, error) {
	if err := validate.Struct(pageInput{Page: page, Limit: limit}); err != nil {
		return nil, ErrInvalidPage
	}

	result, err := s.repo.ListNotifications(ctx, userID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return result, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) (*store.Notification, error) {
	n, err := s.repo.MarkRead(ctx, notificationID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mark read: %w", err)
	}
	return n, nil
}

// MarkAllRead marks every unread notification of the user as read.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return updated, nil
}

// UnreadCount returns how many of the user's notifications are unread.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}
