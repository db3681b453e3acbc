package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/surojitgharami/alumni-portal/internal/http/middleware"
	"github.com/surojitgharami/alumni-portal/internal/http/validation"
	"github.com/surojitgharami/alumni-portal/internal/modules/events"
	"github.com/surojitgharami/alumni-portal/internal/shared/apperr"
)

type EventHandlers struct {
	svc *events.Service
}

func NewEventHandlers(svc *events.Service) *EventHandlers {
	return &EventHandlers{svc: svc}
}

// GET /events — approved events only.
func (h *EventHandlers) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), true)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": list})
}

type eventCreateInput struct {
	Title       string    `json:"title" binding:"required,max=255"`
	Department  string    `json:"department" binding:"omitempty,max=64"`
	Description string    `json:"description" binding:"required"`
	EventDate   time.Time `json:"event_date" binding:"required"`
	Location    string    `json:"location" binding:"required,max=255"`
	IsPaid      bool      `json:"is_paid"`
	FeeAmount   int       `json:"fee_amount" binding:"omitempty,gt=0"`
}

// POST /events — proposal, invisible until approved.
func (h *EventHandlers) Create(c *gin.Context) {
	var in eventCreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FromBindError(err, &in)))
		return
	}
	if in.IsPaid && in.FeeAmount <= 0 {
		middleware.Fail(c, apperr.InvalidErr("Invalid request.", validation.FieldErrors{"fee_amount": "Required for paid events."}))
		return
	}

	ev, err := h.svc.Create(c.Request.Context(), events.CreateInput{
		Title:       in.Title,
		Department:  in.Department,
		Description: in.Description,
		EventDate:   in.EventDate,
		Location:    in.Location,
		IsPaid:      in.IsPaid,
		FeeAmount:   in.FeeAmount,
		CreatedBy:   middleware.GetUserID(c),
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusCreated, ev)
}

type eventRegisterInput struct {
	OrderID string `json:"order_id"` // required for paid events
}

// POST /events/:id/register
func (h *EventHandlers) Register(c *gin.Context) {
	// Body is optional: free events register with no payload.
	var in eventRegisterInput
	_ = c.ShouldBindJSON(&in)

	ticketID, err := h.svc.Register(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), in.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, events.ErrNotFound):
			middleware.Fail(c, apperr.NotFoundErr("Event not found."))
		case errors.Is(err, events.ErrNotApproved):
			middleware.Fail(c, apperr.NotFoundErr("Event not found."))
		case errors.Is(err, events.ErrAlreadyRegistered):
			middleware.Fail(c, apperr.ConflictErr("Already registered for this event."))
		case errors.Is(err, events.ErrPaymentRequired):
			middleware.Fail(c, apperr.InvalidErr("A captured event payment is required to register.", nil))
		default:
			middleware.Fail(c, apperr.Wrap(err))
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ticket_id": ticketID})
}
