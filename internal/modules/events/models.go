package events

import "time"

type Event struct {
	ID          string    `gorm:"type:char(36);primaryKey"`
	Title       string    `gorm:"type:varchar(255);not null"`
	Department  string    `gorm:"type:varchar(64);not null"`
	Description string    `gorm:"type:text;not null"`
	EventDate   time.Time `gorm:"type:datetime(3);not null"`
	Location    string    `gorm:"type:varchar(255);not null"`
	IsPaid      bool      `gorm:"not null;default:false"`
	FeeAmount   int       `gorm:"not null;default:0"`
	CreatedBy   string    `gorm:"type:char(36);not null;index:ix_events_created_by"`
	Approved    bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt   time.Time `gorm:"type:datetime(3);not null"`
}

func (Event) TableName() string { return "events" }

const (
	AttendeeFree = "free"
	AttendeePaid = "paid"
)

type Attendee struct {
	ID            string    `gorm:"type:char(36);primaryKey"`
	EventID       string    `gorm:"type:char(36);not null;uniqueIndex:ux_event_attendees_event_user,priority:1"`
	UserID        string    `gorm:"type:char(36);not null;uniqueIndex:ux_event_attendees_event_user,priority:2"`
	TicketID      string    `gorm:"type:char(36);not null;uniqueIndex:ux_event_attendees_ticket"`
	PaymentStatus string    `gorm:"type:varchar(16);not null"`
	RegisteredAt  time.Time `gorm:"type:datetime(3);not null"`
}

func (Attendee) TableName() string { return "event_attendees" }
