package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/surojitgharami/alumni-portal/internal/modules/payments"
)

type WebhookHandlers struct {
	logger *slog.Logger
	svc    *payments.WebhookService
}

func NewWebhookHandlers(logger *slog.Logger, svc *payments.WebhookService) *WebhookHandlers {
	return &WebhookHandlers{logger: logger, svc: svc}
}

// POST /webhooks/razorpay
// Body is the raw processor JSON; the HMAC signature arrives in
// X-Razorpay-Signature. 400 means don't retry, 500 means do.
func (h *WebhookHandlers) Razorpay(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	err = h.svc.Handle(c.Request.Context(), body, c.GetHeader("X-Razorpay-Signature"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, payments.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
	case errors.Is(err, payments.ErrMalformedPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
	default:
		h.logger.ErrorContext(c.Request.Context(), "webhook apply failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
	}
}
