package roster

import "time"

const (
	RecordActive   = "active"
	RecordInactive = "inactive"
)

// StudentRecord is one row of the university's master roster. Registration is
// only open to people who match an active row.
type StudentRecord struct {
	ID                 string    `gorm:"type:char(36);primaryKey"`
	RegistrationNumber string    `gorm:"type:varchar(32);not null;uniqueIndex:ux_student_master_reg_no"`
	Name               string    `gorm:"type:varchar(128);not null"`
	Department         string    `gorm:"type:varchar(64);not null"`
	PassoutYear        int       `gorm:"not null"`
	Status             string    `gorm:"type:varchar(16);not null"`
	CreatedAt          time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt          time.Time `gorm:"type:datetime(3);not null"`
}

func (StudentRecord) TableName() string { return "student_master" }
