package donations

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Donation, error) {
	var out []Donation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

type ListAllResult struct {
	Items       []Donation
	Total       int64
	TotalAmount int64
}

func (r *Repo) ListAll(ctx context.Context, page, pageSize int) (ListAllResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var res ListAllResult
	if err := r.db.WithContext(ctx).Model(&Donation{}).Count(&res.Total).Error; err != nil {
		return ListAllResult{}, err
	}
	if err := r.db.WithContext(ctx).Model(&Donation{}).
		Select("COALESCE(SUM(amount), 0)").Scan(&res.TotalAmount).Error; err != nil {
		return ListAllResult{}, err
	}
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&res.Items).Error
	return res, err
}
