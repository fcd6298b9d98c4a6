package services

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/reelwork/marketplace/internal/models"
	"github.com/reelwork/marketplace/internal/realtime"
	"github.com/reelwork/marketplace/internal/repository"
	appErr "github.com/reelwork/marketplace/pkg/errors"
	"github.com/reelwork/marketplace/pkg/logger"
	"github.com/reelwork/marketplace/pkg/metrics"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type JobService interface {
	CreateJobPost(ctx context.Context, ownerID uuid.UUID, in CreateJobPostInput) (*models.JobPost, error)
	GetJobPost(ctx context.Context, id uuid.UUID) (*models.JobPost, error)
	ListJobPosts(ctx context.Context, in ListJobPostsInput) (*JobPostPage, error)
	DeleteJobPost(ctx context.Context, id, callerID uuid.UUID) error
	CloseJobPost(ctx context.Context, id, callerID uuid.UUID) (*models.JobPost, error)
	Apply(ctx context.Context, jobPostID, applicantID uuid.UUID, message string) (*models.JobApplication, error)
	ListApplications(ctx context.Context, jobPostID, callerID uuid.UUID) ([]models.JobApplication, error)
}

type CreateJobPostInput struct {
	Title           string
	Description     string
	FileFormat      string
	Budget          *float64
	Deadline        time.Time
	VideoAttachment []string
}

type ListJobPostsInput struct {
	Status string
	Search string
	Page   int
	Limit  int
}

type JobPostPage struct {
	JobPosts   []models.JobPost
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

type jobService struct {
	jobs         repository.JobPostRepository
	applications repository.ApplicationRepository
	events       realtime.Publisher
	metrics      *metrics.Metrics
}

func NewJobService(
	jobs repository.JobPostRepository,
	applications repository.ApplicationRepository,
	events realtime.Publisher,
	m *metrics.Metrics,
) JobService {
	return &jobService{jobs: jobs, applications: applications, events: events, metrics: m}
}

var _ JobService = (*jobService)(nil)

func (s *jobService) CreateJobPost(ctx context.Context, ownerID uuid.UUID, in CreateJobPostInput) (*models.JobPost, error) {
	logger.Ctx(ctx).Info("create job post called", zap.String("user_id", ownerID.String()))

	jp := &models.JobPost{
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		FileFormat:      in.FileFormat,
		Budget:          in.Budget,
		Deadline:        in.Deadline.UTC(),
		VideoAttachment: pq.StringArray(in.VideoAttachment),
		Status:          models.JobStatusOpen,
		UserID:          ownerID,
	}
	if err := s.jobs.Create(ctx, jp); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			// owner row vanished between auth and insert
			return nil, appErr.Wrap(err, appErr.CodeUnauthorized, "Unauthorized")
		}
		return nil, err
	}
	return jp, nil
}

func (s *jobService) GetJobPost(ctx context.Context, id uuid.UUID) (*models.JobPost, error) {
	logger.Ctx(ctx).Info("get job post called", zap.String("job_post_id", id.String()))

	var jp models.JobPost
	if err := s.jobs.GetWithOwner(ctx, id, &jp); err != nil {
		return nil, jobNotFound(err)
	}
	return &jp, nil
}

func (s *jobService) ListJobPosts(ctx context.Context, in ListJobPostsInput) (*JobPostPage, error) {
	page, limit := normalizePage(in.Page, in.Limit)
	status := strings.TrimSpace(in.Status)
	if status != "" && !isJobStatus(status) {
		return nil, appErr.New(appErr.CodeInvalid, "Invalid status filter")
	}

	posts, total, err := s.jobs.List(ctx, repository.JobPostFilter{
		Status: status,
		Search: strings.TrimSpace(in.Search),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.JobPost{}
	}
	return &JobPostPage{
		JobPosts:   posts,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

func (s *jobService) DeleteJobPost(ctx context.Context, id, callerID uuid.UUID) error {
	logger.Ctx(ctx).Info("delete job post called",
		zap.String("job_post_id", id.String()), zap.String("user_id", callerID.String()))

	if _, err := s.ownedJob(ctx, id, callerID); err != nil {
		return err
	}
	if err := s.jobs.Delete(ctx, id); err != nil {
		return jobNotFound(err)
	}
	return nil
}

func (s *jobService) CloseJobPost(ctx context.Context, id, callerID uuid.UUID) (*models.JobPost, error) {
	logger.Ctx(ctx).Info("close job post called",
		zap.String("job_post_id", id.String()), zap.String("user_id", callerID.String()))

	if _, err := s.ownedJob(ctx, id, callerID); err != nil {
		return nil, err
	}
	changed, err := s.jobs.TransitionStatus(ctx, id, models.JobStatusInProgress, models.JobStatusClosed)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, appErr.New(appErr.CodeConflict, "Only in-progress job posts can be closed")
	}

	var jp models.JobPost
	if err := s.jobs.GetByID(ctx, id, &jp); err != nil {
		return nil, jobNotFound(err)
	}
	notify(ctx, s.events, realtime.EventJobPostUpdated, &jp, jp.UserID)
	return &jp, nil
}

// Apply checks, in order: post exists, post is open, caller is not the
// owner, caller has not applied. The unique index backs the last check.
func (s *jobService) Apply(ctx context.Context, jobPostID, applicantID uuid.UUID, message string) (*models.JobApplication, error) {
	logger.Ctx(ctx).Info("apply called",
		zap.String("job_post_id", jobPostID.String()), zap.String("user_id", applicantID.String()))

	var jp models.JobPost
	if err := s.jobs.GetByID(ctx, jobPostID, &jp); err != nil {
		return nil, jobNotFound(err)
	}
	if jp.Status != models.JobStatusOpen {
		return nil, appErr.New(appErr.CodeConflict, "This job post is no longer accepting applications")
	}
	if jp.UserID == applicantID {
		return nil, appErr.New(appErr.CodeConflict, "You cannot apply to your own job post")
	}

	exists, err := s.applications.Exists(ctx, jobPostID, applicantID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errAlreadyApplied(nil)
	}

	ja := &models.JobApplication{JobPostID: jobPostID, UserID: applicantID, Message: message}
	if err := s.applications.Create(ctx, ja); err != nil {
		switch {
		case appErr.IsCode(err, appErr.CodeAlreadyExists):
			return nil, errAlreadyApplied(err)
		case appErr.IsCode(err, appErr.CodeNotFound):
			return nil, jobNotFound(err)
		}
		return nil, err
	}
	s.metrics.ApplicationSubmitted()

	var out models.JobApplication
	if err := s.applications.GetWithApplicant(ctx, ja.ID, &out); err != nil {
		logger.Ctx(ctx).Warn("reload application failed", zap.String("application_id", ja.ID.String()), zap.Error(err))
		return ja, nil
	}
	return &out, nil
}

func (s *jobService) ListApplications(ctx context.Context, jobPostID, callerID uuid.UUID) ([]models.JobApplication, error) {
	logger.Ctx(ctx).Info("list applications called",
		zap.String("job_post_id", jobPostID.String()), zap.String("user_id", callerID.String()))

	if _, err := s.ownedJob(ctx, jobPostID, callerID); err != nil {
		return nil, err
	}
	apps, err := s.applications.ListByJobPost(ctx, jobPostID)
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []models.JobApplication{}
	}
	return apps, nil
}

func (s *jobService) ownedJob(ctx context.Context, id, callerID uuid.UUID) (*models.JobPost, error) {
	var jp models.JobPost
	if err := s.jobs.GetByID(ctx, id, &jp); err != nil {
		return nil, jobNotFound(err)
	}
	if jp.UserID != callerID {
		return nil, appErr.New(appErr.CodeUnauthorized, "Unauthorized")
	}
	return &jp, nil
}

func jobNotFound(err error) error {
	if appErr.IsCode(err, appErr.CodeNotFound) {
		return appErr.Wrap(err, appErr.CodeNotFound, "Job post not found")
	}
	return err
}

func errAlreadyApplied(cause error) error {
	const msg = "You have already applied to this job post"
	if cause == nil {
		return appErr.New(appErr.CodeConflict, msg)
	}
	return appErr.Wrap(cause, appErr.CodeConflict, msg)
}

// MaxPage keeps the row offset within int32 at the largest limit.
const MaxPage = math.MaxInt32 / MaxPageLimit

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

func isJobStatus(s string) bool {
	switch s {
	case models.JobStatusOpen, models.JobStatusInProgress, models.JobStatusClosed:
		return true
	}
	return false
}
