package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/surojitgharami/alumni-portal/internal/http/middleware"
	"github.com/surojitgharami/alumni-portal/internal/http/validation"
	"github.com/surojitgharami/alumni-portal/internal/modules/payments"
	"github.com/surojitgharami/alumni-portal/internal/shared/apperr"
)

type PaymentHandlers struct {
	svc *payments.Service
}

func NewPaymentHandlers(svc *payments.Service) *PaymentHandlers {
	return &PaymentHandlers{svc: svc}
}

type createOrderInput struct {
	Amount   int            `json:"amount" binding:"omitempty,gt=0"`
	Purpose  string         `json:"purpose" binding:"required,oneof=membership event donation"`
	Metadata map[string]any `json:"metadata"`
}

// POST /payments/create-order
func (h *PaymentHandlers) CreateOrder(c *gin.Context) {
	var in createOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FromBindError(err, &in)))
		return
	}

	res, err := h.svc.CreateOrder(c.Request.Context(), payments.CreateOrderInput{
		UserID:   middleware.GetUserID(c),
		Amount:   in.Amount,
		Purpose:  in.Purpose,
		Metadata: in.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrNotConfigured):
			middleware.Fail(c, apperr.UnavailableErr("Payments are not available right now."))
		case errors.Is(err, payments.ErrInvalidAmount):
			middleware.Fail(c, apperr.InvalidErr("Invalid payment amount.", nil))
		default:
			middleware.Fail(c, apperr.Wrap(err))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": res.OrderID,
		"amount":   res.Amount,
		"currency": res.Currency,
		"key_id":   res.KeyID,
	})
}

type verifyInput struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
	Purpose   string `json:"purpose" binding:"required,oneof=membership event donation"`
}

// POST /payments/verify
func (h *PaymentHandlers) Verify(c *gin.Context) {
	var in verifyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FromBindError(err, &in)))
		return
	}

	res, err := h.svc.Verify(c.Request.Context(), payments.VerifyInput{
		UserID:    middleware.GetUserID(c),
		OrderID:   in.OrderID,
		PaymentID: in.PaymentID,
		Signature: in.Signature,
		Purpose:   in.Purpose,
	})
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrOrderNotFound):
			middleware.Fail(c, apperr.NotFoundErr("Payment order not found."))
		case errors.Is(err, payments.ErrForbidden):
			middleware.Fail(c, apperr.ForbiddenErr("This payment belongs to another account."))
		case errors.Is(err, payments.ErrPurposeMismatch):
			middleware.Fail(c, apperr.InvalidErr("Payment purpose mismatch.", nil))
		case errors.Is(err, payments.ErrInvalidSignature):
			middleware.Fail(c, apperr.InvalidErr("Payment verification failed.", nil))
		case errors.Is(err, payments.ErrInsufficientAmount):
			middleware.Fail(c, apperr.InvalidErr("Payment amount does not cover the membership fee.", nil))
		case errors.Is(err, payments.ErrTerminalConflict):
			middleware.Fail(c, apperr.ConflictErr("Payment already settled with a different outcome."))
		default:
			middleware.Fail(c, apperr.Wrap(err))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"payment_id": res.PaymentID,
		"duplicate":  res.Duplicate,
	})
}

// GET /payments/status/:order_id
func (h *PaymentHandlers) Status(c *gin.Context) {
	res, err := h.svc.Status(c.Request.Context(), middleware.GetUserID(c), c.Param("order_id"))
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrOrderNotFound):
			middleware.Fail(c, apperr.NotFoundErr("Payment order not found."))
		case errors.Is(err, payments.ErrForbidden):
			middleware.Fail(c, apperr.ForbiddenErr("This payment belongs to another account."))
		default:
			middleware.Fail(c, apperr.Wrap(err))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": res.OrderID,
		"status":   res.Status,
		"amount":   res.Amount,
		"purpose":  res.Purpose,
	})
}
