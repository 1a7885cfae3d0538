package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"luminix/internal/domain"
)

const (
	signatureHeader       = "X-Platform-Hmac-Sha256"
	legacySignatureHeader = "X-Shopify-Hmac-Sha256"
	topicHeader           = "X-Platform-Topic"
	legacyTopicHeader     = "X-Shopify-Topic"

	maxWebhookBody = 1 << 20
)

func (h *handlers) ingestOrder(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "payload too large"})
			return
		}
		badRequest(c, "could not read body")
		return
	}

	signature := c.GetHeader(signatureHeader)
	if signature == "" {
		signature = c.GetHeader(legacySignatureHeader)
	}
	topic := c.GetHeader(topicHeader)
	if topic == "" {
		topic = c.GetHeader(legacyTopicHeader)
	}

	res, err := h.deps.Orders.Ingest(c.Request.Context(), body, signature)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			h.logger.Printf("webhook: rejected topic=%q bytes=%d err=%v", topic, len(body), err)
		}
		writeError(c, h.logger, err)
		return
	}
	h.logger.Printf("webhook: topic=%q order=%s outcome=%s", topic, res.OrderID, res.Outcome)
	writeJSON(c, gin.H{"status": res.Outcome.String()})
}
