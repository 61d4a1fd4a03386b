package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"

	"choiceview-connect/internal/routing"
	"choiceview-connect/internal/workflow"
	"choiceview-connect/pkg/logger"

	"github.com/gin-gonic/gin"
)

// maxEventBytes bounds an invoke body; contact-flow events are a few KB.
const maxEventBytes = 1 << 20

// Dispatcher is the part of the router the gateway needs.
type Dispatcher interface {
	Handle(ctx context.Context, payload []byte) (*workflow.Result, error)
	SwitchConnected() bool
	SmsBackend() string
}

var _ Dispatcher = (*routing.Router)(nil)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: read the event, hand it to the router, return JSON.

type Handlers struct {
	Router Dispatcher
}

// Health reports which backends are connected.
func (h Handlers) Health(c *gin.Context) {
	if h.Router == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"switch": h.Router.SwitchConnected(),
		"sms":    h.Router.SmsBackend(),
	})
}

// Invoke runs one contact-flow event, exactly as the Lambda entrypoint does,
// and returns the ordered result.
func (h Handlers) Invoke(c *gin.Context) {
	if h.Router == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "router not configured"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBytes+1))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
		return
	}
	if len(body) > maxEventBytes {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "event too large"})
		return
	}

	ctx := routing.WithClientIP(c.Request.Context(), c.ClientIP())
	result, err := h.Router.Handle(ctx, body)
	switch {
	case errors.Is(err, workflow.ErrMalformedEvent):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid contact event"})
	case err != nil:
		_ = c.Error(err)
		logger.FromGin(c).Error("invoke failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "invocation failed"})
	default:
		c.JSON(http.StatusOK, result)
	}
}
