package users

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

// DB returns the underlying database connection for direct queries.
func (r *Repo) DB() *gorm.DB { return r.db }

func (r *Repo) GetByID(ctx context.Context, id string) (User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	return u, err
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error
	return u, err
}

func (r *Repo) ExistsByRegistrationNumber(ctx context.Context, regNo string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&User{}).
		Where("registration_number = ?", regNo).Count(&cnt).Error
	return cnt > 0, err
}

func (r *Repo) Create(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// UpdateProfile applies only the mutable profile fields. Registration number,
// passout year, role and membership status never change through this path.
func (r *Repo) UpdateProfile(ctx context.Context, id string, fields map[string]any) (User, error) {
	delete(fields, "registration_number")
	delete(fields, "passout_year")
	delete(fields, "role")
	delete(fields, "membership_status")
	delete(fields, "password_hash")
	delete(fields, "id")

	fields["updated_at"] = time.Now()
	if err := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return User{}, err
	}
	return r.GetByID(ctx, id)
}

// IsDup reports whether err is a unique-key violation (mysql 1062, or the
// translated gorm error under other drivers).
func IsDup(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
