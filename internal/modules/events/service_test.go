package events

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/surojitgharami/alumni-portal/internal/modules/payments"
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
	if err := db.AutoMigrate(&Event{}, &Attendee{}, &payments.Intent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(db), db
}

func createEvent(t *testing.T, svc *Service, isPaid bool, fee int) Event {
	t.Helper()
	ev, err := svc.Create(context.Background(), CreateInput{
		Title:       "Annual Meet",
		Description: "Yearly alumni gathering",
		EventDate:   time.Now().AddDate(0, 1, 0),
		Location:    "Main Auditorium",
		IsPaid:      isPaid,
		FeeAmount:   fee,
		CreatedBy:   uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return ev
}

func seedIntent(t *testing.T, db *gorm.DB, userID, orderID, purpose, status string, amount int) {
	t.Helper()
	now := time.Now()
	if err := db.Create(&payments.Intent{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		UserID:    userID,
		Amount:    amount,
		Currency:  "INR",
		Purpose:   purpose,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error; err != nil {
		t.Fatal(err)
	}
}

func TestCreateAndApproval(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ev := createEvent(t, svc, false, 0)
	if ev.Approved {
		t.Error("new event born approved")
	}
	if ev.Department != "All" {
		t.Errorf("default department = %q, want All", ev.Department)
	}

	// Invisible until approved.
	list, err := svc.List(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("approved list = %d events, want 0", len(list))
	}

	if err := svc.Approve(ctx, ev.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	list, err = svc.List(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("approved list = %d events, want 1", len(list))
	}

	if err := svc.Approve(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("approve missing: got %v, want ErrNotFound", err)
	}
}

func TestRegisterFreeEvent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.NewString()

	ev := createEvent(t, svc, false, 0)

	// Unapproved events cannot be registered for.
	if _, err := svc.Register(ctx, ev.ID, userID, ""); !errors.Is(err, ErrNotApproved) {
		t.Fatalf("unapproved: got %v, want ErrNotApproved", err)
	}

	if err := svc.Approve(ctx, ev.ID); err != nil {
		t.Fatal(err)
	}
	ticket, err := svc.Register(ctx, ev.ID, userID, "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if ticket == "" {
		t.Error("empty ticket id")
	}

	if _, err := svc.Register(ctx, ev.ID, userID, ""); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("double register: got %v, want ErrAlreadyRegistered", err)
	}
}

func TestRegisterPaidEvent(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.NewString()

	ev := createEvent(t, svc, true, 20000)
	if err := svc.Approve(ctx, ev.ID); err != nil {
		t.Fatal(err)
	}

	// No payment at all.
	if _, err := svc.Register(ctx, ev.ID, userID, ""); !errors.Is(err, ErrPaymentRequired) {
		t.Fatalf("no payment: got %v, want ErrPaymentRequired", err)
	}

	// Pending intent.
	seedIntent(t, db, userID, "order_pending", payments.PurposeEvent, payments.StatusCreated, 20000)
	if _, err := svc.Register(ctx, ev.ID, userID, "order_pending"); !errors.Is(err, ErrPaymentRequired) {
		t.Errorf("pending intent: got %v, want ErrPaymentRequired", err)
	}

	// Captured, but wrong purpose.
	seedIntent(t, db, userID, "order_membership", payments.PurposeMembership, payments.StatusCaptured, 50000)
	if _, err := svc.Register(ctx, ev.ID, userID, "order_membership"); !errors.Is(err, ErrPaymentRequired) {
		t.Errorf("wrong purpose: got %v, want ErrPaymentRequired", err)
	}

	// Captured, but someone else's.
	seedIntent(t, db, uuid.NewString(), "order_foreign", payments.PurposeEvent, payments.StatusCaptured, 20000)
	if _, err := svc.Register(ctx, ev.ID, userID, "order_foreign"); !errors.Is(err, ErrPaymentRequired) {
		t.Errorf("foreign intent: got %v, want ErrPaymentRequired", err)
	}

	// Captured but short.
	seedIntent(t, db, userID, "order_short", payments.PurposeEvent, payments.StatusCaptured, 19999)
	if _, err := svc.Register(ctx, ev.ID, userID, "order_short"); !errors.Is(err, ErrPaymentRequired) {
		t.Errorf("short intent: got %v, want ErrPaymentRequired", err)
	}

	// The real thing.
	seedIntent(t, db, userID, "order_ok", payments.PurposeEvent, payments.StatusCaptured, 20000)
	ticket, err := svc.Register(ctx, ev.ID, userID, "order_ok")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if ticket == "" {
		t.Error("empty ticket id")
	}

	var att Attendee
	if err := db.First(&att, "event_id = ? AND user_id = ?", ev.ID, userID).Error; err != nil {
		t.Fatal(err)
	}
	if att.PaymentStatus != AttendeePaid {
		t.Errorf("payment status = %q, want paid", att.PaymentStatus)
	}
}
