package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// sendLimiter keeps one token bucket per account.
type sendLimiter struct {
	mu       sync.Mutex
	every    rate.Limit
	burst    int
	limiters map[int64]*rate.Limiter
}

func newSendLimiter(perMinute int) *sendLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &sendLimiter{
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[int64]*rate.Limiter),
	}
}

func (l *sendLimiter) allow(userID int64) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	lim, ok := l.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[userID] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}

// RateLimitMiddleware rejects requests from accounts that exceeded their send rate.
// It must run after AuthMiddleware.
func RateLimitMiddleware(l *sendLimiter, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := currentUserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		if !l.allow(uid) {
			logger.Debug().Int64("user_id", uid).Msg("send rate exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
