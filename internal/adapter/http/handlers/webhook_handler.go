package handlers

import (
	"errors"
	"log"
	"net/http"

	"vendomat/internal/usecase"

	"github.com/gin-gonic/gin"
)

// WebhookSignatureHeader carries the gateway's HMAC over the raw body.
const WebhookSignatureHeader = "X-Webhook-Signature"

// WebhookHandler receives asynchronous payment-gateway deliveries.
//
// Response policy: 400 on signature failure, 200 otherwise. Duplicates and
// harmless races are acknowledged with 200 so the gateway stops retrying;
// transient internal failures return 500 so it retries.

type WebhookHandler struct {
	usecase usecase.IPaymentUseCase
}

func NewWebhookHandler(uc usecase.IPaymentUseCase) *WebhookHandler {
	return &WebhookHandler{usecase: uc}
}

func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		log.Printf("[webhook][handler] body read failed err=%v", err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
		return
	}

	signature := c.GetHeader(WebhookSignatureHeader)
	err = h.usecase.HandleWebhook(c.Request.Context(), raw, signature)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, usecase.ErrInvalidSignature):
		log.Printf("[webhook][handler] invalid signature")
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
	case errors.Is(err, usecase.ErrInvalidWebhook), errors.Is(err, usecase.ErrPaymentNotFound):
		// Malformed or unresolvable deliveries will not get better on retry.
		log.Printf("[webhook][handler] unprocessable delivery err=%v", err)
		c.JSON(http.StatusOK, gin.H{"success": true})
	default:
		log.Printf("[webhook][handler] processing failed err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
	}
}
