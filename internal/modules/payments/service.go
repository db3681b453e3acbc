package payments

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/surojitgharami/alumni-portal/internal/modules/donations"
	"github.com/surojitgharami/alumni-portal/internal/modules/users"
)

type Service struct {
	db       *gorm.DB
	provider Provider
	logger   *slog.Logger

	keySecret        string // signs the client-path "{order_id}|{payment_id}" check
	membershipAmount int
	currency         string
}

func NewService(db *gorm.DB, p Provider, keySecret string, membershipAmount int, currency string) *Service {
	return &Service{
		db:               db,
		provider:         p,
		logger:           slog.Default(),
		keySecret:        keySecret,
		membershipAmount: membershipAmount,
		currency:         currency,
	}
}

func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

type CreateOrderInput struct {
	UserID   string
	Amount   int
	Purpose  string
	Metadata map[string]any
}

type CreateOrderResult struct {
	OrderID  string
	Amount   int
	Currency string
	KeyID    string
}

// CreateOrder asks the processor for an order and writes the `created` ledger
// row. The membership price is pinned server-side: whatever amount the client
// sent for a membership order is ignored.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderResult, error) {
	if s.provider == nil {
		return CreateOrderResult{}, ErrNotConfigured
	}
	if !ValidPurpose(in.Purpose) {
		return CreateOrderResult{}, ErrPurposeMismatch
	}

	amount := in.Amount
	if in.Purpose == PurposeMembership {
		amount = s.membershipAmount
	} else if amount <= 0 {
		return CreateOrderResult{}, ErrInvalidAmount
	}

	notes := map[string]any{
		"purpose": in.Purpose,
		"user_id": in.UserID,
	}
	for k, v := range in.Metadata {
		notes[k] = v
	}

	resp, err := s.provider.CreateOrder(ctx, CreateOrderRequest{
		Amount:   amount,
		Currency: s.currency,
		Receipt:  in.Purpose + "_" + in.UserID,
		Notes:    notes,
	})
	if err != nil {
		return CreateOrderResult{}, err
	}

	now := time.Now()
	raw, _ := json.Marshal(resp)
	intent := Intent{
		ID:        uuid.NewString(),
		OrderID:   resp.OrderID,
		UserID:    in.UserID,
		Amount:    amount,
		Currency:  resp.Currency,
		Purpose:   in.Purpose,
		Status:    StatusCreated,
		Metadata:  datatypes.JSONMap(in.Metadata),
		Raw:       datatypes.JSON(raw),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&intent).Error; err != nil {
		return CreateOrderResult{}, err
	}

	s.logger.InfoContext(ctx, "payment order created",
		"order_id", resp.OrderID, "user_id", in.UserID, "purpose", in.Purpose, "amount", amount)

	return CreateOrderResult{
		OrderID:  resp.OrderID,
		Amount:   amount,
		Currency: resp.Currency,
		KeyID:    s.provider.KeyID(),
	}, nil
}

type VerifyInput struct {
	UserID    string
	OrderID   string
	PaymentID string
	Signature string
	Purpose   string
}

type VerifyResult struct {
	PaymentID string
	// Duplicate reports that the intent was already in the matching terminal
	// state and this call changed nothing. Callers treat it as success.
	Duplicate bool
}

// Verify is the client-side completion path: the browser comes back from the
// processor with (order_id, payment_id, signature). Ownership and purpose are
// checked before the signature; a signature mismatch closes the intent out as
// failed rather than leaving it retryable.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (VerifyResult, error) {
	var intent Intent
	if err := s.db.WithContext(ctx).First(&intent, "order_id = ?", in.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return VerifyResult{}, ErrOrderNotFound
		}
		return VerifyResult{}, err
	}

	if intent.UserID != in.UserID {
		return VerifyResult{}, ErrForbidden
	}
	if intent.Purpose != in.Purpose {
		return VerifyResult{}, ErrPurposeMismatch
	}

	if !VerifyPaymentSignature(in.OrderID, in.PaymentID, in.Signature, s.keySecret) {
		// An invalid signature closes the attempt out: the intent must not
		// linger as `created` forever. No-op if already terminal.
		if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			_, _, err := transition(ctx, tx, in.OrderID, StatusFailed, in.PaymentID, nil)
			return err
		}); err != nil {
			return VerifyResult{}, err
		}
		s.logger.WarnContext(ctx, "payment signature rejected",
			"order_id", in.OrderID, "payment_id", in.PaymentID)
		return VerifyResult{}, ErrInvalidSignature
	}

	target := StatusCaptured
	underpaid := intent.Purpose == PurposeMembership && intent.Amount < s.membershipAmount
	if underpaid {
		target = StatusCapturedUnderpaid
	}

	raw, _ := json.Marshal(map[string]string{
		"order_id":   in.OrderID,
		"payment_id": in.PaymentID,
		"signature":  in.Signature,
	})

	var applied bool
	var current string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		applied, current, err = transition(ctx, tx, in.OrderID, target, in.PaymentID, raw)
		if err != nil {
			return err
		}
		if applied && !underpaid {
			return s.applyCaptureSideEffects(ctx, tx, intent, in.PaymentID)
		}
		return nil
	})
	if err != nil {
		return VerifyResult{}, err
	}

	if !applied {
		if current == target {
			// Webhook beat us to it; both paths agree.
			if underpaid {
				return VerifyResult{}, ErrInsufficientAmount
			}
			return VerifyResult{PaymentID: in.PaymentID, Duplicate: true}, nil
		}
		s.logger.WarnContext(ctx, "payment terminal-state conflict on verify",
			"order_id", in.OrderID, "stored_status", current, "requested_status", target)
		return VerifyResult{}, ErrTerminalConflict
	}

	if underpaid {
		s.logger.WarnContext(ctx, "membership payment captured below configured price",
			"order_id", in.OrderID, "amount", intent.Amount, "required", s.membershipAmount)
		return VerifyResult{}, ErrInsufficientAmount
	}

	s.logger.InfoContext(ctx, "payment captured via client verification",
		"order_id", in.OrderID, "payment_id", in.PaymentID, "purpose", intent.Purpose)
	return VerifyResult{PaymentID: in.PaymentID}, nil
}

type StatusResult struct {
	OrderID string
	Status  string
	Amount  int
	Purpose string
}

func (s *Service) Status(ctx context.Context, userID, orderID string) (StatusResult, error) {
	var intent Intent
	if err := s.db.WithContext(ctx).First(&intent, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return StatusResult{}, ErrOrderNotFound
		}
		return StatusResult{}, err
	}
	if intent.UserID != userID {
		return StatusResult{}, ErrForbidden
	}
	return StatusResult{
		OrderID: intent.OrderID,
		Status:  intent.Status,
		Amount:  intent.Amount,
		Purpose: intent.Purpose,
	}, nil
}

// transition moves an intent from `created` into a terminal state with one
// conditional UPDATE. There is deliberately no read-modify-write here: the
// WHERE clause is the only thing that keeps the verify/webhook race benign.
// Returns applied=false with the stored status when the row was already
// terminal.
func transition(ctx context.Context, tx *gorm.DB, orderID, target, paymentID string, raw []byte) (bool, string, error) {
	updates := map[string]any{
		"status":     target,
		"updated_at": time.Now(),
	}
	if paymentID != "" {
		updates["payment_id"] = paymentID
	}
	if len(raw) > 0 {
		updates["raw"] = datatypes.JSON(raw)
	}

	res := tx.WithContext(ctx).Model(&Intent{}).
		Where("order_id = ? AND status = ?", orderID, StatusCreated).
		Updates(updates)
	if res.Error != nil {
		return false, "", res.Error
	}
	if res.RowsAffected > 0 {
		return true, target, nil
	}

	var current string
	err := tx.WithContext(ctx).Model(&Intent{}).
		Select("status").
		Where("order_id = ?", orderID).
		Scan(&current).Error
	if err != nil {
		return false, "", err
	}
	return false, current, nil
}

// applyCaptureSideEffects runs in the same transaction as a successful
// created -> captured transition, which is what makes the side effects fire
// exactly once across the racing verify and webhook paths.
func (s *Service) applyCaptureSideEffects(ctx context.Context, tx *gorm.DB, intent Intent, paymentID string) error {
	switch intent.Purpose {
	case PurposeMembership:
		// Target state is idempotent; the unpaid guard just avoids a
		// pointless write on replays.
		return tx.WithContext(ctx).Model(&users.User{}).
			Where("id = ? AND membership_status = ?", intent.UserID, users.MembershipUnpaid).
			Updates(map[string]any{
				"membership_status": users.MembershipActive,
				"updated_at":        time.Now(),
			}).Error

	case PurposeDonation:
		return ensureDonation(ctx, tx, intent, paymentID)

	default:
		// Event fees: registration completion is an explicit follow-up call
		// from the client, nothing fires here.
		return nil
	}
}

func ensureDonation(ctx context.Context, tx *gorm.DB, intent Intent, paymentID string) error {
	var cnt int64
	if err := tx.WithContext(ctx).Model(&donations.Donation{}).
		Where("order_id = ?", intent.OrderID).
		Count(&cnt).Error; err != nil {
		return err
	}
	if cnt > 0 {
		return nil
	}

	purpose := "general"
	if v, ok := intent.Metadata["donation_purpose"].(string); ok && v != "" {
		purpose = v
	}

	now := time.Now()
	return tx.WithContext(ctx).Create(&donations.Donation{
		ID:              uuid.NewString(),
		UserID:          intent.UserID,
		OrderID:         intent.OrderID,
		PaymentID:       paymentID,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		DonationPurpose: purpose,
		Status:          donations.StatusCompleted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}).Error
}
