package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/surojitgharami/alumni-portal/internal/modules/payments"
)

var (
	ErrNotFound          = errors.New("event not found")
	ErrNotApproved       = errors.New("event not approved")
	ErrAlreadyRegistered = errors.New("already registered for this event")
	ErrPaymentRequired   = errors.New("captured event payment required")
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

type CreateInput struct {
	Title       string
	Department  string
	Description string
	EventDate   time.Time
	Location    string
	IsPaid      bool
	FeeAmount   int
	CreatedBy   string
}

// Create proposes an event; it stays invisible until an admin approves it.
func (s *Service) Create(ctx context.Context, in CreateInput) (Event, error) {
	if in.Department == "" {
		in.Department = "All"
	}
	now := time.Now()
	ev := Event{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Department:  in.Department,
		Description: in.Description,
		EventDate:   in.EventDate,
		Location:    in.Location,
		IsPaid:      in.IsPaid,
		FeeAmount:   in.FeeAmount,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&ev).Error; err != nil {
		return Event{}, err
	}
	return ev, nil
}

func (s *Service) List(ctx context.Context, approvedOnly bool) ([]Event, error) {
	q := s.db.WithContext(ctx).Model(&Event{})
	if approvedOnly {
		q = q.Where("approved = ?", true)
	}
	var out []Event
	err := q.Order("created_at DESC").Limit(100).Find(&out).Error
	return out, err
}

func (s *Service) Get(ctx context.Context, id string) (Event, error) {
	var ev Event
	err := s.db.WithContext(ctx).First(&ev, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Event{}, ErrNotFound
	}
	return ev, err
}

func (s *Service) Approve(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&Event{}).
		Where("id = ?", id).
		Updates(map[string]any{"approved": true, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Register completes an event registration. For paid events the caller must
// name a captured payment intent of purpose `event` that they own and that
// covers the fee; payment capture itself happened earlier via verify/webhook.
func (s *Service) Register(ctx context.Context, eventID, userID, orderID string) (string, error) {
	ev, err := s.Get(ctx, eventID)
	if err != nil {
		return "", err
	}
	if !ev.Approved {
		return "", ErrNotApproved
	}

	paymentStatus := AttendeeFree
	if ev.IsPaid {
		var intent payments.Intent
		err := s.db.WithContext(ctx).First(&intent, "order_id = ?", orderID).Error
		if err != nil || intent.UserID != userID ||
			intent.Purpose != payments.PurposeEvent ||
			intent.Status != payments.StatusCaptured ||
			intent.Amount < ev.FeeAmount {
			return "", ErrPaymentRequired
		}
		paymentStatus = AttendeePaid
	}

	ticketID := uuid.NewString()
	err = s.db.WithContext(ctx).Create(&Attendee{
		ID:            uuid.NewString(),
		EventID:       eventID,
		UserID:        userID,
		TicketID:      ticketID,
		PaymentStatus: paymentStatus,
		RegisteredAt:  time.Now(),
	}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrAlreadyRegistered
		}
		return "", err
	}
	return ticketID, nil
}
