package users

import "time"

const (
	RoleStudent = "student"
	RoleAlumni  = "alumni"
	RoleAdmin   = "admin"
	RoleFaculty = "faculty"
)

const (
	MembershipUnpaid = "unpaid"
	MembershipActive = "active"
)

type User struct {
	ID                 string     `gorm:"type:char(36);primaryKey"`
	Name               string     `gorm:"type:varchar(128);not null"`
	DOB                *time.Time `gorm:"type:date"`
	Department         string     `gorm:"type:varchar(64);not null"`
	Phone              string     `gorm:"type:varchar(20)"`
	Email              string     `gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	RegistrationNumber string     `gorm:"type:varchar(32);not null;uniqueIndex:ux_users_registration_number"`
	PassoutYear        int        `gorm:"not null;index:ix_users_role_passout,priority:2"`
	PasswordHash       []byte     `gorm:"type:varbinary(72);not null"`
	Role               string     `gorm:"type:varchar(16);not null;index:ix_users_role_passout,priority:1"`
	MembershipStatus   string     `gorm:"type:varchar(16);not null"`

	// Sentinel for the student->alumni promotion: set iff the account was
	// programmatically promoted (or created as alumni). Its presence, not
	// its value, is what suppresses re-processing.
	UpgradedToAlumniAt *time.Time `gorm:"type:datetime(3)"`

	FailedLoginAttempts int        `gorm:"not null;default:0"`
	LockedUntil         *time.Time `gorm:"type:datetime(3)"`

	JoinedAt  time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (User) TableName() string { return "users" }
