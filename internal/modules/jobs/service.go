package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("job not found")

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

type CreateInput struct {
	Title           string
	Company         string
	Description     string
	Location        string
	JobType         string
	SalaryRange     *string
	ApplicationLink *string
	CreatedBy       string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Job, error) {
	if in.JobType == "" {
		in.JobType = "full-time"
	}
	now := time.Now()
	j := Job{
		ID:              uuid.NewString(),
		Title:           in.Title,
		Company:         in.Company,
		Description:     in.Description,
		Location:        in.Location,
		JobType:         in.JobType,
		SalaryRange:     in.SalaryRange,
		ApplicationLink: in.ApplicationLink,
		CreatedBy:       in.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.db.WithContext(ctx).Create(&j).Error; err != nil {
		return Job{}, err
	}
	return j, nil
}

func (s *Service) List(ctx context.Context, approvedOnly bool) ([]Job, error) {
	q := s.db.WithContext(ctx).Model(&Job{})
	if approvedOnly {
		q = q.Where("approved = ?", true)
	}
	var out []Job
	err := q.Order("created_at DESC").Limit(100).Find(&out).Error
	return out, err
}

func (s *Service) Approve(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{"approved": true, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
