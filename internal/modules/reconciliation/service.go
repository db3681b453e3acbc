package reconciliation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/surojitgharami/alumni-portal/internal/modules/payments"
)

var ErrEventNotFound = errors.New("webhook event not found")

// pendingAge is how old a still-`created` intent must be before it counts as
// abandoned for the reconciliation report.
const pendingAge = time.Hour

// retryBatch limits how many failed webhook events one reconcile pass
// re-applies.
const retryBatch = 5

type Service struct {
	db         *gorm.DB
	webhookSvc *payments.WebhookService
	logger     *slog.Logger
}

func NewService(db *gorm.DB, webhookSvc *payments.WebhookService) *Service {
	return &Service{db: db, webhookSvc: webhookSvc, logger: slog.Default()}
}

func (s *Service) SetLogger(logger *slog.Logger) { s.logger = logger }

type ReconcileResult struct {
	FailedWebhooksCount       int64 `json:"failed_webhooks_count"`
	PendingVerificationsCount int64 `json:"pending_verifications_count"`
	RetriedWebhooksCount      int   `json:"retried_webhooks_count"`
}

// Reconcile re-applies recent failed webhook deliveries (up to the retry cap)
// and reports how many intents are still waiting on a completion signal.
func (s *Service) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	if err := s.db.WithContext(ctx).Model(&payments.WebhookEvent{}).
		Where("status = ?", payments.EventFailed).
		Count(&res.FailedWebhooksCount).Error; err != nil {
		return ReconcileResult{}, err
	}

	if err := s.db.WithContext(ctx).Model(&payments.Intent{}).
		Where("status = ? AND created_at < ?", payments.StatusCreated, time.Now().Add(-pendingAge)).
		Count(&res.PendingVerificationsCount).Error; err != nil {
		return ReconcileResult{}, err
	}

	var toRetry []payments.WebhookEvent
	if err := s.db.WithContext(ctx).
		Where("status = ? AND retry_count < ?", payments.EventFailed, payments.MaxEventRetries).
		Order("received_at ASC").
		Limit(retryBatch).
		Find(&toRetry).Error; err != nil {
		return ReconcileResult{}, err
	}

	for _, ev := range toRetry {
		if err := s.markRetrying(ctx, ev.ID); err != nil {
			s.logger.ErrorContext(ctx, "webhook retry bookkeeping failed", "event_id", ev.ID, "err", err)
			continue
		}
		res.RetriedWebhooksCount++

		if err := s.webhookSvc.Reapply(ctx, ev); err != nil {
			s.logger.WarnContext(ctx, "webhook retry failed", "event_id", ev.ID, "err", err)
		}
	}

	s.logger.InfoContext(ctx, "payment reconciliation finished",
		"failed_webhooks", res.FailedWebhooksCount,
		"pending_verifications", res.PendingVerificationsCount,
		"retried", res.RetriedWebhooksCount)
	return res, nil
}

// RetryOne re-applies a single failed webhook event, admin-invoked. The retry
// cap still applies.
func (s *Service) RetryOne(ctx context.Context, eventID string) error {
	var ev payments.WebhookEvent
	if err := s.db.WithContext(ctx).First(&ev, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEventNotFound
		}
		return err
	}
	if ev.RetryCount >= payments.MaxEventRetries {
		return errors.New("webhook event retry limit reached")
	}

	if err := s.markRetrying(ctx, ev.ID); err != nil {
		return err
	}
	return s.webhookSvc.Reapply(ctx, ev)
}

func (s *Service) markRetrying(ctx context.Context, eventID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&payments.WebhookEvent{}).
		Where("id = ?", eventID).
		Updates(map[string]any{
			"status":        payments.EventRetrying,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"last_retry_at": now,
		}).Error
}

type Dashboard struct {
	TotalPayments        int64 `json:"total_payments"`
	Successful           int64 `json:"successful"`
	Failed               int64 `json:"failed"`
	Pending              int64 `json:"pending"`
	Underpaid            int64 `json:"underpaid"`
	TotalAmountCollected int64 `json:"total_amount_collected"`
}

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	counts := []struct {
		dst    *int64
		status string
	}{
		{&d.Successful, payments.StatusCaptured},
		{&d.Failed, payments.StatusFailed},
		{&d.Pending, payments.StatusCreated},
		{&d.Underpaid, payments.StatusCapturedUnderpaid},
	}
	if err := s.db.WithContext(ctx).Model(&payments.Intent{}).Count(&d.TotalPayments).Error; err != nil {
		return Dashboard{}, err
	}
	for _, c := range counts {
		if err := s.db.WithContext(ctx).Model(&payments.Intent{}).
			Where("status = ?", c.status).Count(c.dst).Error; err != nil {
			return Dashboard{}, err
		}
	}
	err := s.db.WithContext(ctx).Model(&payments.Intent{}).
		Where("status = ?", payments.StatusCaptured).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&d.TotalAmountCollected).Error
	return d, err
}
