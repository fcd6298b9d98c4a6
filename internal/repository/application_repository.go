package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reelwork/marketplace/internal/models"
)

// ApplicationUniqueConstraint backs the one-application-per-user rule.
const ApplicationUniqueConstraint = "uq_job_applications_post_user"

type ApplicationRepository interface {
	BaseRepository[models.JobApplication]
	Exists(ctx context.Context, jobPostID, userID uuid.UUID) (bool, error)
	// GetWithApplicant loads an application with the applicant summary.
	GetWithApplicant(ctx context.Context, id uuid.UUID, dest *models.JobApplication) error
	ListByJobPost(ctx context.Context, jobPostID uuid.UUID) ([]models.JobApplication, error)
}

type applicationRepository struct {
	BaseRepository[models.JobApplication]
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{BaseRepository: NewBaseRepository[models.JobApplication](db, "job application"), db: db}
}

func (r *applicationRepository) Exists(ctx context.Context, jobPostID, userID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.JobApplication{}).
		Where("job_post_id = ? AND user_id = ?", jobPostID, userID).
		Limit(1).Count(&n).Error
	if err != nil {
		return false, mapDBError(err, "check existing application failed")
	}
	return n > 0, nil
}

func (r *applicationRepository) GetWithApplicant(ctx context.Context, id uuid.UUID, dest *models.JobApplication) error {
	err := r.db.WithContext(ctx).
		Preload("Applicant", func(db *gorm.DB) *gorm.DB { return db.Select(models.SummaryColumns) }).
		First(dest, "id = ?", id).Error
	if err != nil {
		return mapDBError(err, "get application failed")
	}
	return nil
}

func (r *applicationRepository) ListByJobPost(ctx context.Context, jobPostID uuid.UUID) ([]models.JobApplication, error) {
	out := []models.JobApplication{}
	err := r.db.WithContext(ctx).
		Preload("Applicant", func(db *gorm.DB) *gorm.DB { return db.Select(models.SummaryColumns) }).
		Where("job_post_id = ?", jobPostID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, mapDBError(err, "list applications failed")
	}
	return out, nil
}
