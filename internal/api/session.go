package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cruisesync/internal/orchestrator"
)

type sessionHandler struct {
	sessions Sessions
	logger   *zap.Logger
}

func (h *sessionHandler) RegisterRoutes(rg *gin.RouterGroup, operator gin.HandlerFunc) {
	rg.GET("", h.get)             // GET /session
	rg.GET("/preview", h.preview) // GET /session/preview
	rg.POST("/start", operator, h.start)
	rg.POST("/confirm", operator, h.confirm)
	rg.POST("/cancel", operator, h.cancel)
}

func (h *sessionHandler) get(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessions.Snapshot())
}

func (h *sessionHandler) preview(c *gin.Context) {
	prep := h.sessions.Prepared()
	if prep == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no preview; run a session to awaiting_confirmation first"})
		return
	}
	c.JSON(http.StatusOK, prep)
}

// start returns once the extractor has reported a login; extraction keeps
// running in the background.
func (h *sessionHandler) start(c *gin.Context) {
	if err := h.sessions.Start(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, h.sessions.Snapshot())
}

func (h *sessionHandler) confirm(c *gin.Context) {
	if err := h.sessions.Confirm(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessions.Snapshot())
}

func (h *sessionHandler) cancel(c *gin.Context) {
	if err := h.sessions.Cancel(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessions.Snapshot())
}

func (h *sessionHandler) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("api: session request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(code, gin.H{"error": err.Error(), "session": h.sessions.Snapshot()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrBusy), errors.Is(err, orchestrator.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrNotAuthenticated):
		return http.StatusPreconditionFailed
	case errors.Is(err, orchestrator.ErrCancelled):
		return http.StatusGone
	case errors.Is(err, orchestrator.ErrStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
