package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirenotify-server/internal/auth"
	"github.com/vovakirdan/wirenotify-server/internal/config"
	"github.com/vovakirdan/wirenotify-server/internal/core"
	"github.com/vovakirdan/wirenotify-server/internal/service/notifications"
	"github.com/vovakirdan/wirenotify-server/internal/store"
)

// NewServer builds an HTTP server with REST API and websocket routes.
func NewServer(
	hub *core.Hub,
	authService *auth.Service,
	notifService *notifications.Service,
	st store.Store,
	cfg *config.Config,
	logger *zerolog.Logger,
) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	apiHandlers := NewAPIHandlers(authService, st, logger)
	notifHandlers := NewNotificationHandlers(notifService, logger)
	userHandlers := NewUserHandlers(hub, logger)
	limiter := newSendLimiter(cfg.SendRatePerMinute)

	api := router.Group("/api")
	{
		api.POST("/register", apiHandlers.Register)
		api.POST("/login", apiHandlers.Login)

		protected := api.Group("")
		protected.Use(AuthMiddleware(authService, logger))
		{
			protected.GET("/profile", apiHandlers.Profile)
			protected.GET("/users/:id/online", userHandlers.Online)

			notifs := protected.Group("/notifications")
			{
				notifs.POST("/send", RateLimitMiddleware(limiter, logger), notifHandlers.Send)
				notifs.GET("", notifHandlers.List)
				notifs.GET("/unread-count", notifHandlers.UnreadCount)
				notifs.PUT("/read-all", notifHandlers.MarkAllRead)
				notifs.PUT("/:id/read", notifHandlers.MarkRead)
			}
		}
	}

	// The websocket handler hijacks the connection, so it stays outside gin.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, cfg, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
