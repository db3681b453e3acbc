package donations

import "time"

const StatusCompleted = "completed"

// Donation is written once per captured donation payment, keyed by the
// processor order id so webhook replays cannot double-record it.
type Donation struct {
	ID              string    `gorm:"type:char(36);primaryKey"`
	UserID          string    `gorm:"type:char(36);not null;index:ix_donations_user_id"`
	OrderID         string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_donations_order_id"`
	PaymentID       string    `gorm:"type:varchar(64);not null"`
	Amount          int       `gorm:"not null"`
	Currency        string    `gorm:"type:char(3);not null"`
	DonationPurpose string    `gorm:"type:varchar(64);not null"`
	Status          string    `gorm:"type:varchar(16);not null"`
	CreatedAt       time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt       time.Time `gorm:"type:datetime(3);not null"`
}

func (Donation) TableName() string { return "donations" }
