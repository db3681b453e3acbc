package payments

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

	"github.com/surojitgharami/alumni-portal/internal/modules/donations"
	"github.com/surojitgharami/alumni-portal/internal/modules/users"
)

const (
	testKeySecret        = "test_key_secret"
	testWebhookSecret    = "whsec_test"
	testMembershipAmount = 50000
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Named shared-cache DB so the pool's connections all see the same
	// schema; a plain :memory: DSN is per-connection.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&users.User{}, &Intent{}, &WebhookEvent{}, &donations.Donation{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// stubProvider hands out sequential order ids without talking to anything.
type stubProvider struct {
	calls   int
	lastReq CreateOrderRequest
	err     error
}

func (p *stubProvider) Name() string  { return "stub" }
func (p *stubProvider) KeyID() string { return "rzp_test_stub" }

func (p *stubProvider) CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResponse, error) {
	if p.err != nil {
		return CreateOrderResponse{}, p.err
	}
	p.calls++
	p.lastReq = req
	return CreateOrderResponse{
		OrderID:  fmt.Sprintf("order_stub_%d", p.calls),
		Amount:   req.Amount,
		Currency: req.Currency,
	}, nil
}

func newTestService(t *testing.T) (*Service, *stubProvider, *gorm.DB) {
	t.Helper()
	db := testDB(t)
	p := &stubProvider{}
	return NewService(db, p, testKeySecret, testMembershipAmount, "INR"), p, db
}

func seedUser(t *testing.T, db *gorm.DB) users.User {
	t.Helper()
	u := users.User{
		ID:                 uuid.NewString(),
		Name:               "Asha Varma",
		Department:         "CSE",
		Email:              uuid.NewString() + "@example.edu",
		RegistrationNumber: "REG-" + uuid.NewString()[:8],
		PassoutYear:        2024,
		PasswordHash:       []byte("x"),
		Role:               users.RoleAlumni,
		MembershipStatus:   users.MembershipUnpaid,
		JoinedAt:           time.Now(),
		UpdatedAt:          time.Now(),
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedCreatedIntent(t *testing.T, db *gorm.DB, userID, orderID string, amount int, purpose string) Intent {
	t.Helper()
	now := time.Now()
	intent := Intent{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		UserID:    userID,
		Amount:    amount,
		Currency:  "INR",
		Purpose:   purpose,
		Status:    StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(&intent).Error; err != nil {
		t.Fatalf("seed intent: %v", err)
	}
	return intent
}

func getIntent(t *testing.T, db *gorm.DB, orderID string) Intent {
	t.Helper()
	var intent Intent
	if err := db.First(&intent, "order_id = ?", orderID).Error; err != nil {
		t.Fatalf("load intent %s: %v", orderID, err)
	}
	return intent
}

func TestCreateOrderPinsMembershipPrice(t *testing.T) {
	svc, p, db := newTestService(t)
	u := seedUser(t, db)

	// Client-supplied amount of 1 paisa must be ignored for memberships.
	res, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:  u.ID,
		Amount:  1,
		Purpose: PurposeMembership,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if res.Amount != testMembershipAmount {
		t.Errorf("amount = %d, want %d", res.Amount, testMembershipAmount)
	}
	if p.lastReq.Amount != testMembershipAmount {
		t.Errorf("provider asked for %d, want %d", p.lastReq.Amount, testMembershipAmount)
	}

	intent := getIntent(t, db, res.OrderID)
	if intent.Amount != testMembershipAmount || intent.Status != StatusCreated {
		t.Errorf("intent = amount %d status %q, want amount %d status %q",
			intent.Amount, intent.Status, testMembershipAmount, StatusCreated)
	}
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	svc, _, db := newTestService(t)
	u := seedUser(t, db)

	if _, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID: u.ID, Amount: 1000, Purpose: "tuition",
	}); !errors.Is(err, ErrPurposeMismatch) {
		t.Errorf("unknown purpose: got %v, want ErrPurposeMismatch", err)
	}

	if _, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID: u.ID, Amount: 0, Purpose: PurposeDonation,
	}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero donation: got %v, want ErrInvalidAmount", err)
	}

	disabled := NewService(db, nil, testKeySecret, testMembershipAmount, "INR")
	if _, err := disabled.CreateOrder(context.Background(), CreateOrderInput{
		UserID: u.ID, Purpose: PurposeMembership,
	}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("nil provider: got %v, want ErrNotConfigured", err)
	}
}

func TestVerifyActivatesMembership(t *testing.T) {
	svc, _, db := newTestService(t)
	u := seedUser(t, db)

	res, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID: u.ID, Purpose: PurposeMembership,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	sig := sign(testKeySecret, []byte(res.OrderID+"|pay_001"))
	out, err := svc.Verify(context.Background(), VerifyInput{
		UserID: u.ID, OrderID: res.OrderID, PaymentID: "pay_001", Signature: sig, Purpose: PurposeMembership,
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if out.Duplicate {
		t.Error("first verify reported duplicate")
	}

	intent := getIntent(t, db, res.OrderID)
	if intent.Status != StatusCaptured {
		t.Errorf("intent status = %q, want %q", intent.Status, StatusCaptured)
	}
	if intent.PaymentID == nil || *intent.PaymentID != "pay_001" {
		t.Errorf("payment id not recorded: %v", intent.PaymentID)
	}

	var got users.User
	if err := db.First(&got, "id = ?", u.ID).Error; err != nil {
		t.Fatal(err)
	}
	if got.MembershipStatus != users.MembershipActive {
		t.Errorf("membership = %q, want %q", got.MembershipStatus, users.MembershipActive)
	}

	// Same call again: no-op success.
	out2, err := svc.Verify(context.Background(), VerifyInput{
		UserID: u.ID, OrderID: res.OrderID, PaymentID: "pay_001", Signature: sig, Purpose: PurposeMembership,
	})
	if err != nil {
		t.Fatalf("second Verify: %v", err)
	}
	if !out2.Duplicate {
		t.Error("second verify not reported as duplicate")
	}
}

func TestVerifyOwnershipAndPurpose(t *testing.T) {
	svc, _, db := newTestService(t)
	owner := seedUser(t, db)
	other := seedUser(t, db)

	res, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID: owner.ID, Purpose: PurposeMembership,
	})
	if err != nil {
		t.Fatal(err)
	}
	sig := sign(testKeySecret, []byte(res.OrderID+"|pay_001"))

	if _, err := svc.Verify(context.Background(), VerifyInput{
		UserID: other.ID, OrderID: res.OrderID, PaymentID: "pay_001", Signature: sig, Purpose: PurposeMembership,
	}); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign user: got %v, want ErrForbidden", err)
	}

	if _, err := svc.Verify(context.Background(), VerifyInput{
		UserID: owner.ID, OrderID: res.OrderID, PaymentID: "pay_001", Signature: sig, Purpose: PurposeDonation,
	}); !errors.Is(err, ErrPurposeMismatch) {
		t.Errorf("wrong purpose: got %v, want ErrPurposeMismatch", err)
	}

	if _, err := svc.Verify(context.Background(), VerifyInput{
		UserID: owner.ID, OrderID: "order_unknown", PaymentID: "pay_001", Signature: sig, Purpose: PurposeMembership,
	}); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("unknown order: got %v, want ErrOrderNotFound", err)
	}

	// Intent untouched by the rejected attempts.
	if got := getIntent(t, db, res.OrderID); got.Status != StatusCreated {
		t.Errorf("intent status = %q, want %q", got.Status, StatusCreated)
	}
}

func TestVerifyInvalidSignatureClosesIntent(t *testing.T) {
	svc, _, db := newTestService(t)
	u := seedUser(t, db)

	res, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID: u.ID, Purpose: PurposeMembership,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Verify(context.Background(), VerifyInput{
		UserID: u.ID, OrderID: res.OrderID, PaymentID: "pay_001", Signature: "deadbeef", Purpose: PurposeMembership,
	}); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("got %v, want ErrInvalidSignature", err)
	}

	if got := getIntent(t, db, res.OrderID); got.Status != StatusFailed {
		t.Errorf("intent status = %q, want %q", got.Status, StatusFailed)
	}

	var got users.User
	if err := db.First(&got, "id = ?", u.ID).Error; err != nil {
		t.Fatal(err)
	}
	if got.MembershipStatus != users.MembershipUnpaid {
		t.Errorf("membership = %q, want unpaid", got.MembershipStatus)
	}

	// A later legitimate verify loses to the failed state.
	sig := sign(testKeySecret, []byte(res.OrderID+"|pay_001"))
	if _, err := svc.Verify(context.Background(), VerifyInput{
		UserID: u.ID, OrderID: res.OrderID, PaymentID: "pay_001", Signature: sig, Purpose: PurposeMembership,
	}); !errors.Is(err, ErrTerminalConflict) {
		t.Errorf("got %v, want ErrTerminalConflict", err)
	}
}

func TestVerifyUnderpaidMembership(t *testing.T) {
	svc, _, db := newTestService(t)
	u := seedUser(t, db)

	// An intent created before a price change can carry less than the
	// current membership price.
	seedCreatedIntent(t, db, u.ID, "order_old_price", testMembershipAmount-10000, PurposeMembership)

	sig := sign(testKeySecret, []byte("order_old_price|pay_001"))
	_, err := svc.Verify(context.Background(), VerifyInput{
		UserID: u.ID, OrderID: "order_old_price", PaymentID: "pay_001", Signature: sig, Purpose: PurposeMembership,
	})
	if !errors.Is(err, ErrInsufficientAmount) {
		t.Fatalf("got %v, want ErrInsufficientAmount", err)
	}

	if got := getIntent(t, db, "order_old_price"); got.Status != StatusCapturedUnderpaid {
		t.Errorf("intent status = %q, want %q", got.Status, StatusCapturedUnderpaid)
	}

	// Funds collected, membership NOT activated.
	var got users.User
	if err := db.First(&got, "id = ?", u.ID).Error; err != nil {
		t.Fatal(err)
	}
	if got.MembershipStatus != users.MembershipUnpaid {
		t.Errorf("membership = %q, want unpaid", got.MembershipStatus)
	}

	// Replay keeps reporting the shortfall.
	if _, err := svc.Verify(context.Background(), VerifyInput{
		UserID: u.ID, OrderID: "order_old_price", PaymentID: "pay_001", Signature: sig, Purpose: PurposeMembership,
	}); !errors.Is(err, ErrInsufficientAmount) {
		t.Errorf("replay: got %v, want ErrInsufficientAmount", err)
	}
}

func TestVerifyDonationRecordedOnce(t *testing.T) {
	svc, _, db := newTestService(t)
	u := seedUser(t, db)

	res, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:   u.ID,
		Amount:   25000,
		Purpose:  PurposeDonation,
		Metadata: map[string]any{"donation_purpose": "library-fund"},
	})
	if err != nil {
		t.Fatal(err)
	}

	sig := sign(testKeySecret, []byte(res.OrderID+"|pay_don"))
	in := VerifyInput{
		UserID: u.ID, OrderID: res.OrderID, PaymentID: "pay_don", Signature: sig, Purpose: PurposeDonation,
	}
	if _, err := svc.Verify(context.Background(), in); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if _, err := svc.Verify(context.Background(), in); err != nil {
		t.Fatalf("duplicate Verify: %v", err)
	}

	var dons []donations.Donation
	if err := db.Find(&dons, "order_id = ?", res.OrderID).Error; err != nil {
		t.Fatal(err)
	}
	if len(dons) != 1 {
		t.Fatalf("donation rows = %d, want 1", len(dons))
	}
	d := dons[0]
	if d.Amount != 25000 || d.DonationPurpose != "library-fund" || d.Status != donations.StatusCompleted {
		t.Errorf("donation = %+v", d)
	}
}

func TestStatusScopedToOwner(t *testing.T) {
	svc, _, db := newTestService(t)
	owner := seedUser(t, db)
	other := seedUser(t, db)

	res, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID: owner.ID, Purpose: PurposeMembership,
	})
	if err != nil {
		t.Fatal(err)
	}

	st, err := svc.Status(context.Background(), owner.ID, res.OrderID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Status != StatusCreated || st.Amount != testMembershipAmount {
		t.Errorf("status = %+v", st)
	}

	if _, err := svc.Status(context.Background(), other.ID, res.OrderID); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign status read: got %v, want ErrForbidden", err)
	}
	if _, err := svc.Status(context.Background(), owner.ID, "order_missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("missing order: got %v, want ErrOrderNotFound", err)
	}
}
