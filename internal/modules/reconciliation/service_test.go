package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/surojitgharami/alumni-portal/internal/modules/donations"
	"github.com/surojitgharami/alumni-portal/internal/modules/payments"
	"github.com/surojitgharami/alumni-portal/internal/modules/users"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&users.User{}, &payments.Intent{}, &payments.WebhookEvent{}, &donations.Donation{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	paySvc := payments.NewService(db, nil, "test_key_secret", 50000, "INR")
	webhookSvc := payments.NewWebhookService(db, paySvc, "whsec_test")
	return NewService(db, webhookSvc), db
}

func seedIntent(t *testing.T, db *gorm.DB, orderID, status string, amount int, createdAt time.Time) {
	t.Helper()
	if err := db.Create(&payments.Intent{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		UserID:    uuid.NewString(),
		Amount:    amount,
		Currency:  "INR",
		Purpose:   payments.PurposeDonation,
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}).Error; err != nil {
		t.Fatal(err)
	}
}

func seedFailedEvent(t *testing.T, db *gorm.DB, orderID string, retryCount int) payments.WebhookEvent {
	t.Helper()
	body := fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_r","order_id":%q,"amount":1000}}}}`,
		orderID)
	msg := "record not found"
	ev := payments.WebhookEvent{
		ID:             uuid.NewString(),
		EventType:      "payment.captured",
		Payload:        datatypes.JSON(body),
		SignatureValid: true,
		Status:         payments.EventFailed,
		RetryCount:     retryCount,
		ProcessError:   &msg,
		ReceivedAt:     time.Now().Add(-time.Minute),
	}
	if err := db.Create(&ev).Error; err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestReconcileRetriesFailedWebhooks(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	// The intent the failed delivery was about now exists, so the retry can
	// land.
	seedIntent(t, db, "order_r1", payments.StatusCreated, 1000, time.Now())
	seedFailedEvent(t, db, "order_r1", 0)

	// Exhausted event: counted, never retried.
	seedFailedEvent(t, db, "order_gone", payments.MaxEventRetries)

	// Stale pending intent.
	seedIntent(t, db, "order_stale", payments.StatusCreated, 500, time.Now().Add(-2*time.Hour))
	// Fresh pending intent: not yet abandoned.
	seedIntent(t, db, "order_fresh", payments.StatusCreated, 500, time.Now())

	res, err := svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.FailedWebhooksCount != 2 {
		t.Errorf("failed webhooks = %d, want 2", res.FailedWebhooksCount)
	}
	if res.RetriedWebhooksCount != 1 {
		t.Errorf("retried = %d, want 1", res.RetriedWebhooksCount)
	}
	// order_stale and order_fresh are both `created`, but only the stale one
	// is old enough to count. order_r1 was created now too.
	if res.PendingVerificationsCount != 1 {
		t.Errorf("pending verifications = %d, want 1", res.PendingVerificationsCount)
	}

	// The retried delivery landed: intent captured, event processed.
	var intent payments.Intent
	if err := db.First(&intent, "order_id = ?", "order_r1").Error; err != nil {
		t.Fatal(err)
	}
	if intent.Status != payments.StatusCaptured {
		t.Errorf("intent status = %q, want captured", intent.Status)
	}

	var n int64
	if err := db.Model(&payments.WebhookEvent{}).
		Where("status = ?", payments.EventProcessed).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("processed events = %d, want 1", n)
	}
}

func TestRetryOne(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedIntent(t, db, "order_r1", payments.StatusCreated, 1000, time.Now())
	ev := seedFailedEvent(t, db, "order_r1", 1)

	if err := svc.RetryOne(ctx, ev.ID); err != nil {
		t.Fatalf("RetryOne: %v", err)
	}

	var after payments.WebhookEvent
	if err := db.First(&after, "id = ?", ev.ID).Error; err != nil {
		t.Fatal(err)
	}
	if after.Status != payments.EventProcessed {
		t.Errorf("event status = %q, want processed", after.Status)
	}
	if after.RetryCount != 2 {
		t.Errorf("retry count = %d, want 2", after.RetryCount)
	}

	if err := svc.RetryOne(ctx, "missing"); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("unknown event: got %v, want ErrEventNotFound", err)
	}

	exhausted := seedFailedEvent(t, db, "order_r1", payments.MaxEventRetries)
	if err := svc.RetryOne(ctx, exhausted.ID); err == nil {
		t.Error("expected error for exhausted event")
	}
}

func TestDashboard(t *testing.T) {
	svc, db := newTestService(t)
	now := time.Now()

	seedIntent(t, db, "o1", payments.StatusCaptured, 100, now)
	seedIntent(t, db, "o2", payments.StatusCaptured, 250, now)
	seedIntent(t, db, "o3", payments.StatusFailed, 300, now)
	seedIntent(t, db, "o4", payments.StatusCreated, 400, now)
	seedIntent(t, db, "o5", payments.StatusCapturedUnderpaid, 40000, now)

	d, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.TotalPayments != 5 || d.Successful != 2 || d.Failed != 1 || d.Pending != 1 || d.Underpaid != 1 {
		t.Errorf("dashboard = %+v", d)
	}
	// Only fully captured intents count toward collected funds.
	if d.TotalAmountCollected != 350 {
		t.Errorf("collected = %d, want 350", d.TotalAmountCollected)
	}
}
