package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/reelwork/marketplace/internal/models"
)

// JobPostFilter narrows a job post listing. Page is 1-based.
type JobPostFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

type JobPostRepository interface {
	BaseRepository[models.JobPost]
	// GetWithOwner loads a post with the owner's public profile.
	GetWithOwner(ctx context.Context, id uuid.UUID, dest *models.JobPost) error
	// List returns one page of posts, newest first, and the total match count.
	List(ctx context.Context, f JobPostFilter) ([]models.JobPost, int64, error)
	// TransitionStatus moves a post from one status to another and reports
	// whether a row changed. A post in any other status is left alone.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
}

type jobPostRepository struct {
	BaseRepository[models.JobPost]
	db *gorm.DB
}

func NewJobPostRepository(db *gorm.DB) JobPostRepository {
	return &jobPostRepository{BaseRepository: NewBaseRepository[models.JobPost](db, "job post"), db: db}
}

func (r *jobPostRepository) GetWithOwner(ctx context.Context, id uuid.UUID, dest *models.JobPost) error {
	err := r.db.WithContext(ctx).
		Preload("Owner", func(db *gorm.DB) *gorm.DB { return db.Select(models.ProfileColumns) }).
		First(dest, "id = ?", id).Error
	if err != nil {
		return mapDBError(err, "get job post failed")
	}
	return nil
}

func (r *jobPostRepository) List(ctx context.Context, f JobPostFilter) ([]models.JobPost, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if s := strings.TrimSpace(f.Search); s != "" {
			pattern := "%" + escapeLike(s) + "%"
			db = db.Where("(title ILIKE ? OR description ILIKE ?)", pattern, pattern)
		}
		return db
	}

	var (
		total int64
		out   []models.JobPost
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.db.WithContext(gctx).Model(&models.JobPost{}).Scopes(filter).Count(&total).Error
	})
	g.Go(func() error {
		return r.db.WithContext(gctx).Model(&models.JobPost{}).Scopes(filter).
			Preload("Owner", func(db *gorm.DB) *gorm.DB { return db.Select(models.SummaryColumns) }).
			Order("created_at DESC").
			Offset((f.Page - 1) * f.Limit).
			Limit(f.Limit).
			Find(&out).Error
	})
	if err := g.Wait(); err != nil {
		return nil, 0, mapDBError(err, "list job posts failed")
	}
	if out == nil {
		out = []models.JobPost{}
	}
	return out, total, nil
}

func (r *jobPostRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.JobPost{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, mapDBError(res.Error, "update job post status failed")
	}
	return res.RowsAffected > 0, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
