package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/wirenotify-server/internal/core"
	"github.com/vovakirdan/wirenotify-server/internal/proto"
	"github.com/vovakirdan/wirenotify-server/internal/service/notifications"
	"github.com/vovakirdan/wirenotify-server/internal/store"
)

// NotificationHandlers provides HTTP handlers for notification endpoints.
type NotificationHandlers struct {
	service *notifications.Service
	log     *zerolog.Logger
}

// NewNotificationHandlers creates a new notification handlers instance.
func NewNotificationHandlers(svc *notifications.Service, logger *zerolog.Logger) *NotificationHandlers {
	return &NotificationHandlers{
		service: svc,
		log:     logger,
	}
}

// SendRequest represents the request body for sending a notification.
type SendRequest struct {
	SenderID   int64  `json:"senderId" binding:"required"`
	ReceiverID int64  `json:"receiverId" binding:"required"`
	Message    string `json:"message"`
}

// SendResponse is returned for a created notification.
type SendResponse struct {
	Notification proto.NotificationPayload `json:"notification"`
	Outcome      string                    `json:"outcome"`
}

// PaginationResponse describes the page returned by List.
type PaginationResponse struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// ListResponse is one page of notification history.
type ListResponse struct {
	Notifications []proto.NotificationPayload `json:"notifications"`
	Pagination    PaginationResponse          `json:"pagination"`
}

// Send creates a notification and pushes it to the receiver if online.
// POST /api/notifications/send
func (h *NotificationHandlers) Send(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "senderId, receiverId and message are required"})
		return
	}

	sent, err := h.service.Send(c.Request.Context(), uid, req.SenderID, req.ReceiverID, req.Message)
	if err != nil {
		var persistErr *core.PersistenceError
		switch {
		case errors.Is(err, notifications.ErrForbiddenSender):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
		case errors.Is(err, notifications.ErrInvalidMessage):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, notifications.ErrUnknownAccount):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		case errors.As(err, &persistErr):
			h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to store notification")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to store notification"})
		default:
			h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to send notification")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	c.JSON(http.StatusCreated, SendResponse{
		Notification: notificationToProto(sent.Notification),
		Outcome:      sent.Outcome.String(),
	})
}

// List returns the authenticated user's notifications, newest first.
// GET /api/notifications?page=&limit=
func (h *NotificationHandlers) List(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	page, err := queryInt(c, "page", notifications.DefaultPage)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "page must be a number"})
		return
	}
	limit, err := queryInt(c, "limit", notifications.DefaultLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a number"})
		return
	}

	result, err := h.service.List(c.Request.Context(), uid, page, limit)
	if err != nil {
		if errors.Is(err, notifications.ErrInvalidPage) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list notifications")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Notifications: lo.Map(result.Notifications, func(n *store.Notification, _ int) proto.NotificationPayload {
			return notificationToProto(n)
		}),
		Pagination: PaginationResponse{
			Total:      result.Total,
			Page:       result.Page,
			Limit:      result.Limit,
			TotalPages: result.TotalPages(),
		},
	})
}

// MarkRead marks one notification as read.
// PUT /api/notifications/:id/read
func (h *NotificationHandlers) MarkRead(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid notification id"})
		return
	}

	n, err := h.service.MarkRead(c.Request.Context(), uid, id)
	if err != nil {
		if errors.Is(err, notifications.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "notification not found"})
			return
		}
		h.log.Error().Err(err).Int64("notification_id", id).Msg("failed to mark notification read")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, notificationToProto(n))
}

// MarkAllRead marks every unread notification of the user as read.
// PUT /api/notifications/read-all
func (h *NotificationHandlers) MarkAllRead(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	updated, err := h.service.MarkAllRead(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to mark all read")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updatedCount": updated})
}

// UnreadCount returns the number of unread notifications.
// GET /api/notifications/unread-count
func (h *NotificationHandlers) UnreadCount(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to count unread")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
