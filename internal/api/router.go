// Package api is the operator-facing HTTP surface.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cruisesync/internal/auth"
	"cruisesync/internal/feed"
	"cruisesync/internal/pipeline"
	"cruisesync/internal/session"
	"cruisesync/internal/store"
)

// Sessions is the part of the orchestrator the API drives.
type Sessions interface {
	Snapshot() session.Snapshot
	Prepared() *pipeline.Prepared
	Start(ctx context.Context) error
	Confirm(ctx context.Context) error
	Cancel(ctx context.Context) error
}

type Deps struct {
	Sessions Sessions
	Store    store.Store
	Tokens   auth.TokenService
	// Login is optional; without it tokens come from `cruisesync token`.
	Login *auth.Handler
	// Extractor serves the extractor websocket.
	Extractor http.Handler
	Hub       *feed.Hub
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewRouter(d Deps) *gin.Engine {
	if d.Now == nil {
		d.Now = time.Now
	}
	logger := d.Logger.Named("api")

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", func(c *gin.Context) {
		var stats feed.Stats
		if d.Hub != nil {
			stats = d.Hub.Stats()
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := d.Store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if d.Login != nil {
		d.Login.RegisterRoutes(router.Group("/auth"))
	}

	sh := &sessionHandler{sessions: d.Sessions, logger: logger}
	sh.RegisterRoutes(router.Group("/session"), auth.Middleware(d.Tokens, auth.RoleOperator))

	rh := &recordsHandler{store: d.Store, now: d.Now}
	rh.RegisterRoutes(router.Group(""))

	if d.Extractor != nil {
		router.GET("/extractor/ws", auth.Middleware(d.Tokens, auth.RoleExtractor, auth.RoleOperator), gin.WrapH(d.Extractor))
	}
	if d.Hub != nil {
		router.GET("/feed/ws", feed.WSHandler(d.Hub))
	}
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("api: request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}
