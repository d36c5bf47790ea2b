package webhook

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Enqueuer hands a verified interaction to the background queue.
// Enqueue returns false when the queue is saturated.
type Enqueuer interface {
	Enqueue(itc *Interaction) bool
}

// Handler verifies and parses chat-platform callbacks. The platform
// imposes a hard response deadline, so the handler acknowledges
// immediately and the real work happens on the interaction worker.
type Handler struct {
	verifier *Verifier
	queue    Enqueuer
	logger   *zap.Logger
}

// NewHandler creates a webhook handler.
func NewHandler(verifier *Verifier, queue Enqueuer, logger *zap.Logger) *Handler {
	return &Handler{verifier: verifier, queue: queue, logger: logger}
}

// Handle processes an incoming interaction callback.
func (h *Handler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("Failed to read request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "failed to read request body"})
		return
	}

	timestamp := c.GetHeader("X-Signature-Timestamp")
	signature := c.GetHeader("X-Signature")
	if !h.verifier.Verify(timestamp, signature, body) {
		h.logger.Warn("Invalid webhook signature", zap.String("timestamp", timestamp))
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid signature"})
		return
	}

	itc, err := ParseInteraction(body)
	if err != nil {
		h.logger.Error("Failed to parse interaction", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "malformed payload"})
		return
	}

	if !h.queue.Enqueue(itc) {
		h.logger.Error("Interaction queue saturated, dropping interaction",
			zap.String("type", itc.Type),
			zap.String("user", itc.User.ID))
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "busy"})
		return
	}

	// Acknowledge before processing; follow-up messages carry the result.
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
