package payments

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PurposeMembership = "membership"
	PurposeEvent      = "event"
	PurposeDonation   = "donation"
)

const (
	StatusCreated = "created"
	// Terminal states. Once an intent reaches one of these, the only legal
	// "transition" is a no-op into the same state.
	StatusCaptured = "captured"
	// Membership payment captured below the configured price. Funds were
	// collected, membership was not activated; needs operator follow-up.
	StatusCapturedUnderpaid = "captured_underpaid"
	StatusFailed            = "failed"
)

func ValidPurpose(p string) bool {
	switch p {
	case PurposeMembership, PurposeEvent, PurposeDonation:
		return true
	}
	return false
}

func IsTerminal(status string) bool {
	switch status {
	case StatusCaptured, StatusCapturedUnderpaid, StatusFailed:
		return true
	}
	return false
}

// Intent is a payment intent, keyed by the order id the processor issued at
// creation time. Rows are never deleted; they are the audit trail.
type Intent struct {
	ID        string            `gorm:"type:char(36);primaryKey"`
	OrderID   string            `gorm:"type:varchar(64);not null;uniqueIndex:ux_payments_order_id"`
	UserID    string            `gorm:"type:char(36);not null;index:ix_payments_user_id"`
	Amount    int               `gorm:"not null"`
	Currency  string            `gorm:"type:char(3);not null"`
	Purpose   string            `gorm:"type:varchar(16);not null"`
	Status    string            `gorm:"type:varchar(32);not null;index:ix_payments_status_created,priority:1"`
	PaymentID *string           `gorm:"type:varchar(64)"`
	Metadata  datatypes.JSONMap `gorm:"type:json"`
	Raw       datatypes.JSON    `gorm:"type:json"`
	CreatedAt time.Time         `gorm:"type:datetime(3);not null;index:ix_payments_status_created,priority:2"`
	UpdatedAt time.Time         `gorm:"type:datetime(3);not null"`
}

func (Intent) TableName() string { return "payments" }
