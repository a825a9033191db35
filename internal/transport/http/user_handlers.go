package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// PresenceChecker answers whether an account has a live connection.
type PresenceChecker interface {
	IsOnline(accountID int64) bool
}

// UserHandlers provides HTTP handlers for user presence.
type UserHandlers struct {
	presence PresenceChecker
	log      *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(presence PresenceChecker, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		presence: presence,
		log:      logger,
	}
}

// OnlineResponse reports an account's presence.
type OnlineResponse struct {
	UserID int64 `json:"user_id"`
	Online bool  `json:"online"`
}

// Online reports whether a user currently has an authenticated connection.
// GET /api/users/:id/online
func (h *UserHandlers) Online(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	c.JSON(http.StatusOK, OnlineResponse{
		UserID: userID,
		Online: h.presence.IsOnline(userID),
	})
}
