package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/surojitgharami/alumni-portal/internal/modules/users"
)

func newTestWebhookService(t *testing.T) (*WebhookService, *Service, *gorm.DB) {
	t.Helper()
	svc, _, db := newTestService(t)
	return NewWebhookService(db, svc, testWebhookSecret), svc, db
}

func capturedBody(orderID, paymentID string, amount int) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q,"amount":%d}}}}`,
		paymentID, orderID, amount))
}

func failedBody(orderID, paymentID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.failed","payload":{"payment":{"entity":{"id":%q,"order_id":%q}}}}`,
		paymentID, orderID))
}

func countEvents(t *testing.T, db *gorm.DB, status string) int64 {
	t.Helper()
	var n int64
	q := db.Model(&WebhookEvent{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestWebhookCapturedActivatesMembership(t *testing.T) {
	ws, svc, db := newTestWebhookService(t)
	u := seedUser(t, db)

	res, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID: u.ID, Purpose: PurposeMembership,
	})
	if err != nil {
		t.Fatal(err)
	}

	body := capturedBody(res.OrderID, "pay_wh_1", testMembershipAmount)
	if err := ws.Handle(context.Background(), body, sign(testWebhookSecret, body)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if got := getIntent(t, db, res.OrderID); got.Status != StatusCaptured {
		t.Errorf("intent status = %q, want %q", got.Status, StatusCaptured)
	}
	var gotUser users.User
	if err := db.First(&gotUser, "id = ?", u.ID).Error; err != nil {
		t.Fatal(err)
	}
	if gotUser.MembershipStatus != users.MembershipActive {
		t.Errorf("membership = %q, want active", gotUser.MembershipStatus)
	}
	if n := countEvents(t, db, EventProcessed); n != 1 {
		t.Errorf("processed events = %d, want 1", n)
	}

	// Replay: same body again. New audit row, no state change, no error.
	if err := ws.Handle(context.Background(), body, sign(testWebhookSecret, body)); err != nil {
		t.Fatalf("replay Handle: %v", err)
	}
	if n := countEvents(t, db, EventProcessed); n != 2 {
		t.Errorf("processed events after replay = %d, want 2", n)
	}
	if got := getIntent(t, db, res.OrderID); got.Status != StatusCaptured {
		t.Errorf("replay changed intent status to %q", got.Status)
	}
}

func TestWebhookFailedThenCapturedKeepsFailed(t *testing.T) {
	ws, svc, db := newTestWebhookService(t)
	u := seedUser(t, db)

	res, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID: u.ID, Purpose: PurposeMembership,
	})
	if err != nil {
		t.Fatal(err)
	}

	fb := failedBody(res.OrderID, "pay_wh_1")
	if err := ws.Handle(context.Background(), fb, sign(testWebhookSecret, fb)); err != nil {
		t.Fatalf("failed event: %v", err)
	}
	if got := getIntent(t, db, res.OrderID); got.Status != StatusFailed {
		t.Fatalf("intent status = %q, want failed", got.Status)
	}

	// Out-of-order captured arrives late: acknowledged, never applied.
	cb := capturedBody(res.OrderID, "pay_wh_1", testMembershipAmount)
	if err := ws.Handle(context.Background(), cb, sign(testWebhookSecret, cb)); err != nil {
		t.Fatalf("late captured event: %v", err)
	}
	if got := getIntent(t, db, res.OrderID); got.Status != StatusFailed {
		t.Errorf("late capture overwrote terminal state: %q", got.Status)
	}
	var gotUser users.User
	if err := db.First(&gotUser, "id = ?", u.ID).Error; err != nil {
		t.Fatal(err)
	}
	if gotUser.MembershipStatus != users.MembershipUnpaid {
		t.Errorf("membership = %q, want unpaid", gotUser.MembershipStatus)
	}
}

func TestWebhookUnderpaidMembership(t *testing.T) {
	ws, svc, db := newTestWebhookService(t)
	u := seedUser(t, db)
	_ = svc

	seedCreatedIntent(t, db, u.ID, "order_under", testMembershipAmount-1, PurposeMembership)

	body := capturedBody("order_under", "pay_wh_1", testMembershipAmount-1)
	if err := ws.Handle(context.Background(), body, sign(testWebhookSecret, body)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if got := getIntent(t, db, "order_under"); got.Status != StatusCapturedUnderpaid {
		t.Errorf("intent status = %q, want %q", got.Status, StatusCapturedUnderpaid)
	}
	var gotUser users.User
	if err := db.First(&gotUser, "id = ?", u.ID).Error; err != nil {
		t.Fatal(err)
	}
	if gotUser.MembershipStatus != users.MembershipUnpaid {
		t.Errorf("underpaid capture activated membership")
	}
}

func TestWebhookRejectsBadRequests(t *testing.T) {
	ws, _, db := newTestWebhookService(t)

	body := capturedBody("order_x", "pay_x", 100)

	// Wrong signature: rejected before any database write.
	err := ws.Handle(context.Background(), body, "deadbeef")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("bad signature: got %v, want ErrInvalidSignature", err)
	}
	if n := countEvents(t, db, ""); n != 0 {
		t.Errorf("audit rows after rejected signature = %d, want 0", n)
	}

	// Valid signature over garbage.
	garbage := []byte("{not json")
	err = ws.Handle(context.Background(), garbage, sign(testWebhookSecret, garbage))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("garbage body: got %v, want ErrMalformedPayload", err)
	}
}

func TestWebhookUnknownEventIgnored(t *testing.T) {
	ws, _, db := newTestWebhookService(t)

	body := []byte(`{"event":"refund.processed","payload":{}}`)
	if err := ws.Handle(context.Background(), body, sign(testWebhookSecret, body)); err != nil {
		t.Fatalf("unknown event: %v", err)
	}
	if n := countEvents(t, db, EventProcessed); n != 1 {
		t.Errorf("processed events = %d, want 1", n)
	}
}

func TestWebhookUnknownOrderFailsForRetry(t *testing.T) {
	ws, _, db := newTestWebhookService(t)

	// Captured for an order this system never created: the apply fails and
	// the audit row is left `failed` for reconciliation.
	body := capturedBody("order_never_seen", "pay_x", 100)
	if err := ws.Handle(context.Background(), body, sign(testWebhookSecret, body)); err == nil {
		t.Fatal("expected error for unknown order")
	}
	if n := countEvents(t, db, EventFailed); n != 1 {
		t.Errorf("failed events = %d, want 1", n)
	}

	var ev WebhookEvent
	if err := db.First(&ev).Error; err != nil {
		t.Fatal(err)
	}
	if ev.ProcessError == nil || *ev.ProcessError == "" {
		t.Error("process_error not recorded")
	}
}

func TestReapplyRecoversFailedEvent(t *testing.T) {
	ws, svc, db := newTestWebhookService(t)
	u := seedUser(t, db)
	_ = svc

	// Delivery arrives before the intent exists (order creation raced the
	// webhook); the first apply fails.
	body := capturedBody("order_late", "pay_late", testMembershipAmount)
	if err := ws.Handle(context.Background(), body, sign(testWebhookSecret, body)); err == nil {
		t.Fatal("expected first apply to fail")
	}

	var ev WebhookEvent
	if err := db.First(&ev, "status = ?", EventFailed).Error; err != nil {
		t.Fatal(err)
	}

	// Intent shows up; reapply succeeds and flips the event to processed.
	seedCreatedIntent(t, db, u.ID, "order_late", testMembershipAmount, PurposeMembership)
	if err := ws.Reapply(context.Background(), ev); err != nil {
		t.Fatalf("Reapply: %v", err)
	}

	if got := getIntent(t, db, "order_late"); got.Status != StatusCaptured {
		t.Errorf("intent status = %q, want captured", got.Status)
	}
	var after WebhookEvent
	if err := db.First(&after, "id = ?", ev.ID).Error; err != nil {
		t.Fatal(err)
	}
	if after.Status != EventProcessed {
		t.Errorf("event status = %q, want processed", after.Status)
	}
}
