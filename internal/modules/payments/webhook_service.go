package payments

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EventProcessed = "processed"
	EventFailed    = "failed"
	EventRetrying  = "retrying"
)

// MaxEventRetries caps reconciliation re-delivery of a permanently broken
// event.
const MaxEventRetries = 3

// WebhookEvent is the per-delivery audit row. There is deliberately no unique
// index on a message id: replay safety comes from the intent's sticky terminal
// state, not from deduplicating deliveries.
type WebhookEvent struct {
	ID             string         `gorm:"type:char(36);primaryKey"`
	EventType      string         `gorm:"type:varchar(64);not null"`
	Payload        datatypes.JSON `gorm:"type:json;not null"`
	SignatureValid bool           `gorm:"not null"`
	Status         string         `gorm:"type:varchar(16);not null;index:ix_webhook_events_status"`
	RetryCount     int            `gorm:"not null;default:0"`
	ProcessError   *string        `gorm:"type:varchar(255)"`
	ReceivedAt     time.Time      `gorm:"type:datetime(3);not null"`
	ProcessedAt    *time.Time     `gorm:"type:datetime(3)"`
	LastRetryAt    *time.Time     `gorm:"type:datetime(3)"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }

// processor event envelope
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int    `json:"amount"`
}

type WebhookService struct {
	db     *gorm.DB
	logger *slog.Logger

	webhookSecret string

	// capture side effects are shared with the client verification path
	svc *Service
}

func NewWebhookService(db *gorm.DB, svc *Service, webhookSecret string) *WebhookService {
	return &WebhookService{
		db:            db,
		logger:        slog.Default(),
		webhookSecret: webhookSecret,
		svc:           svc,
	}
}

func (s *WebhookService) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Handle processes one processor callback. Authentication happens before any
// database read so an unauthenticated caller cannot probe for order existence,
// and a forged request cannot push a pending payment into `failed`.
func (s *WebhookService) Handle(ctx context.Context, rawBody []byte, signature string) error {
	if !VerifyWebhookSignature(rawBody, signature, s.webhookSecret) {
		return ErrInvalidSignature
	}

	var env webhookEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil || env.Event == "" {
		return ErrMalformedPayload
	}

	now := time.Now()
	ev := WebhookEvent{
		ID:             uuid.NewString(),
		EventType:      env.Event,
		Payload:        datatypes.JSON(rawBody),
		SignatureValid: true,
		Status:         EventRetrying, // in flight; flipped below
		ReceivedAt:     now,
	}
	// The audit row lives outside the apply transaction so a failed apply
	// still leaves a `failed` entry for the reconciliation job.
	if err := s.db.WithContext(ctx).Create(&ev).Error; err != nil {
		return err
	}

	applyErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.apply(ctx, tx, env)
	})

	if applyErr != nil {
		msg := truncate(applyErr.Error(), 250)
		if err := s.db.WithContext(ctx).Model(&WebhookEvent{}).
			Where("id = ?", ev.ID).
			Updates(map[string]any{"status": EventFailed, "process_error": msg}).Error; err != nil {
			return err
		}
		s.logger.ErrorContext(ctx, "webhook event apply failed",
			"event_id", ev.ID, "type", env.Event, "error", msg)
		// propagate so the handler returns 500 and the processor retries
		return applyErr
	}

	processed := now
	if err := s.db.WithContext(ctx).Model(&WebhookEvent{}).
		Where("id = ?", ev.ID).
		Updates(map[string]any{"status": EventProcessed, "processed_at": &processed, "process_error": nil}).Error; err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "webhook event processed", "event_id", ev.ID, "type", env.Event)
	return nil
}

func (s *WebhookService) apply(ctx context.Context, tx *gorm.DB, env webhookEnvelope) error {
	switch env.Event {
	case "payment.captured":
		return s.applyCaptured(ctx, tx, env.Payload.Payment.Entity)
	case "payment.failed":
		return s.applyFailed(ctx, tx, env.Payload.Payment.Entity)
	default:
		// Tolerate processor API evolution: unknown events are acknowledged
		// and ignored, never an error.
		s.logger.InfoContext(ctx, "webhook event ignored", "type", env.Event)
		return nil
	}
}

func (s *WebhookService) applyCaptured(ctx context.Context, tx *gorm.DB, entity paymentEntity) error {
	if entity.OrderID == "" {
		return ErrMalformedPayload
	}

	var intent Intent
	if err := tx.WithContext(ctx).First(&intent, "order_id = ?", entity.OrderID).Error; err != nil {
		return err // not found: fail the event so the processor retries
	}

	target := StatusCaptured
	if intent.Purpose == PurposeMembership && intent.Amount < s.svc.membershipAmount {
		target = StatusCapturedUnderpaid
	}

	raw, _ := json.Marshal(entity)
	applied, current, err := transition(ctx, tx, entity.OrderID, target, entity.ID, raw)
	if err != nil {
		return err
	}
	if !applied {
		if current != target {
			// First terminal state wins; a late webhook never overwrites it.
			s.logger.WarnContext(ctx, "webhook terminal-state conflict",
				"order_id", entity.OrderID, "stored_status", current, "requested_status", target)
		}
		return nil
	}
	if target == StatusCapturedUnderpaid {
		s.logger.WarnContext(ctx, "membership payment captured below configured price",
			"order_id", entity.OrderID, "amount", intent.Amount)
		return nil
	}
	return s.svc.applyCaptureSideEffects(ctx, tx, intent, entity.ID)
}

func (s *WebhookService) applyFailed(ctx context.Context, tx *gorm.DB, entity paymentEntity) error {
	if entity.OrderID == "" {
		return ErrMalformedPayload
	}

	applied, current, err := transition(ctx, tx, entity.OrderID, StatusFailed, entity.ID, nil)
	if err != nil {
		return err
	}
	if !applied && current != StatusFailed {
		s.logger.WarnContext(ctx, "webhook terminal-state conflict",
			"order_id", entity.OrderID, "stored_status", current, "requested_status", StatusFailed)
	}
	return nil
}

// Reapply re-runs a stored event's transition, used by the reconciliation job
// for deliveries that failed mid-apply. Safe to call repeatedly.
func (s *WebhookService) Reapply(ctx context.Context, ev WebhookEvent) error {
	var env webhookEnvelope
	if err := json.Unmarshal(ev.Payload, &env); err != nil || env.Event == "" {
		return ErrMalformedPayload
	}

	applyErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.apply(ctx, tx, env)
	})

	// Status bookkeeping happens outside the apply transaction; a rollback
	// must not erase the failure record.
	if applyErr != nil {
		msg := truncate(applyErr.Error(), 250)
		if err := s.db.WithContext(ctx).Model(&WebhookEvent{}).
			Where("id = ?", ev.ID).
			Updates(map[string]any{"status": EventFailed, "process_error": msg}).Error; err != nil {
			return err
		}
		return applyErr
	}

	processed := time.Now()
	return s.db.WithContext(ctx).Model(&WebhookEvent{}).
		Where("id = ?", ev.ID).
		Updates(map[string]any{"status": EventProcessed, "processed_at": &processed, "process_error": nil}).Error
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
