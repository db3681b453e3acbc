package notifications

import "time"

type Notification struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	UserID    string    `gorm:"type:char(36);not null;index:ix_notifications_user_id"`
	Title     string    `gorm:"type:varchar(128);not null"`
	Message   string    `gorm:"type:varchar(512);not null"`
	Read      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Notification) TableName() string { return "notifications" }
