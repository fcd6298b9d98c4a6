package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reelwork/marketplace/internal/models"
)

// CompletionResult reports what a succeeded payment changed.
type CompletionResult struct {
	PaymentsCompleted int64
	JobStarted        bool
}

type PaymentRepository interface {
	BaseRepository[models.Payment]
	ListByJobPost(ctx context.Context, jobPostID uuid.UUID) ([]models.Payment, error)
	// CompleteForJobPost marks the post's pending payments completed and moves
	// an open post to in-progress, in one transaction.
	CompleteForJobPost(ctx context.Context, jobPostID uuid.UUID) (CompletionResult, error)
}

type paymentRepository struct {
	BaseRepository[models.Payment]
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{BaseRepository: NewBaseRepository[models.Payment](db, "payment"), db: db}
}

func (r *paymentRepository) ListByJobPost(ctx context.Context, jobPostID uuid.UUID) ([]models.Payment, error) {
	out := []models.Payment{}
	err := r.db.WithContext(ctx).
		Where("job_post_id = ?", jobPostID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, mapDBError(err, "list payments failed")
	}
	return out, nil
}

func (r *paymentRepository) CompleteForJobPost(ctx context.Context, jobPostID uuid.UUID) (CompletionResult, error) {
	var res CompletionResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pay := tx.Model(&models.Payment{}).
			Where("job_post_id = ? AND status = ?", jobPostID, models.PaymentStatusPending).
			Update("status", models.PaymentStatusCompleted)
		if pay.Error != nil {
			return pay.Error
		}
		res.PaymentsCompleted = pay.RowsAffected

		job := tx.Model(&models.JobPost{}).
			Where("id = ? AND status = ?", jobPostID, models.JobStatusOpen).
			Update("status", models.JobStatusInProgress)
		if job.Error != nil {
			return job.Error
		}
		res.JobStarted = job.RowsAffected > 0
		return nil
	})
	if err != nil {
		return CompletionResult{}, mapDBError(err, "complete payments failed")
	}
	return res, nil
}
