package jobs

import "time"

type Job struct {
	ID              string    `gorm:"type:char(36);primaryKey"`
	Title           string    `gorm:"type:varchar(255);not null"`
	Company         string    `gorm:"type:varchar(128);not null"`
	Description     string    `gorm:"type:text;not null"`
	Location        string    `gorm:"type:varchar(255);not null"`
	JobType         string    `gorm:"type:varchar(32);not null"` // full-time, part-time, internship, contract
	SalaryRange     *string   `gorm:"type:varchar(64)"`
	ApplicationLink *string   `gorm:"type:varchar(512)"`
	CreatedBy       string    `gorm:"type:char(36);not null;index:ix_jobs_created_by"`
	Approved        bool      `gorm:"not null;default:false"`
	CreatedAt       time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt       time.Time `gorm:"type:datetime(3);not null"`
}

func (Job) TableName() string { return "jobs" }
