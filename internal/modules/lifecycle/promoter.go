package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/surojitgharami/alumni-portal/internal/mailer"
	"github.com/surojitgharami/alumni-portal/internal/modules/notifications"
	"github.com/surojitgharami/alumni-portal/internal/modules/users"
)

// UpgradeLog is the audit trail of automatic promotions.
type UpgradeLog struct {
	ID          string    `gorm:"type:char(36);primaryKey"`
	UserID      string    `gorm:"type:char(36);not null;index:ix_upgrade_logs_user_id"`
	UserName    string    `gorm:"type:varchar(128);not null"`
	Email       string    `gorm:"type:varchar(255);not null"`
	PassoutYear int       `gorm:"not null"`
	UpgradedAt  time.Time `gorm:"type:datetime(3);not null"`
}

func (UpgradeLog) TableName() string { return "upgrade_logs" }

// Promoter flips student accounts whose passout year has passed to alumni.
// Safe to run daily, concurrently with itself, or re-triggered by an admin:
// the upgraded_to_alumni_at sentinel is written in the same UPDATE as the role
// change, and its presence excludes the row from every later run.
type Promoter struct {
	db       *gorm.DB
	mail     mailer.Service
	notifs   *notifications.Service
	logger   *slog.Logger
	fromAddr string
	fromName string

	now func() time.Time // injectable for tests
}

func NewPromoter(db *gorm.DB, mail mailer.Service, notifs *notifications.Service, fromAddr, fromName string) *Promoter {
	return &Promoter{
		db:       db,
		mail:     mail,
		notifs:   notifs,
		logger:   slog.Default(),
		fromAddr: fromAddr,
		fromName: fromName,
		now:      time.Now,
	}
}

func (p *Promoter) SetLogger(logger *slog.Logger) { p.logger = logger }

// SetClock overrides the time source. Tests only.
func (p *Promoter) SetClock(now func() time.Time) { p.now = now }

// Run promotes every eligible student exactly once and returns how many rows
// it changed. Notification failures are logged and never undo a promotion.
func (p *Promoter) Run(ctx context.Context) (int, error) {
	currentYear := p.now().Year()

	var eligible []users.User
	if err := p.db.WithContext(ctx).
		Where("role = ? AND passout_year <= ? AND upgraded_to_alumni_at IS NULL", users.RoleStudent, currentYear).
		Find(&eligible).Error; err != nil {
		return 0, err
	}

	upgraded := 0
	for _, u := range eligible {
		now := p.now()

		// Role flip and sentinel land in one conditional UPDATE. The WHERE
		// re-checks eligibility so a concurrent run (or a manual re-trigger)
		// promotes each account at most once.
		res := p.db.WithContext(ctx).Model(&users.User{}).
			Where("id = ? AND role = ? AND upgraded_to_alumni_at IS NULL", u.ID, users.RoleStudent).
			Updates(map[string]any{
				"role":                  users.RoleAlumni,
				"upgraded_to_alumni_at": now,
				"updated_at":            now,
			})
		if res.Error != nil {
			p.logger.ErrorContext(ctx, "student upgrade failed", "user_id", u.ID, "err", res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			// lost the race to another run
			continue
		}
		upgraded++

		if err := p.db.WithContext(ctx).Create(&UpgradeLog{
			ID:          uuid.NewString(),
			UserID:      u.ID,
			UserName:    u.Name,
			Email:       u.Email,
			PassoutYear: u.PassoutYear,
			UpgradedAt:  now,
		}).Error; err != nil {
			p.logger.ErrorContext(ctx, "upgrade log write failed", "user_id", u.ID, "err", err)
		}

		p.notify(ctx, u)
	}

	p.logger.InfoContext(ctx, "student upgrade run finished",
		"current_year", currentYear, "eligible", len(eligible), "upgraded", upgraded)
	return upgraded, nil
}

// notify sends the welcome email and the in-app notification. Best effort on
// both channels; promotion correctness does not depend on delivery.
func (p *Promoter) notify(ctx context.Context, u users.User) {
	if p.mail != nil {
		err := p.mail.Send(ctx, mailer.Email{
			From:     p.fromAddr,
			FromName: p.fromName,
			To:       []string{u.Email},
			Subject:  "Welcome to the Alumni Network",
			TextBody: "You have been upgraded to Alumni. Log in to explore alumni features.",
			HTMLBody: fmt.Sprintf(`<p>Congratulations %s!</p>
<p>You have been automatically upgraded to Alumni status.</p>
<p>Access exclusive alumni features, jobs, and events.</p>`, u.Name),
		})
		if err != nil {
			p.logger.WarnContext(ctx, "upgrade email failed", "user_id", u.ID, "email", u.Email, "err", err)
		}
	}

	if p.notifs != nil {
		if err := p.notifs.Create(ctx, u.ID, "Alumni Status", "You've been upgraded to Alumni!"); err != nil {
			p.logger.WarnContext(ctx, "upgrade notification failed", "user_id", u.ID, "err", err)
		}
	}
}
