package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/reelwork/marketplace/internal/identity"
	"github.com/reelwork/marketplace/internal/repository"
	"github.com/reelwork/marketplace/internal/services"
	appErr "github.com/reelwork/marketplace/pkg/errors"
	"github.com/reelwork/marketplace/pkg/logger"
)

const (
	TypePurgeOrphan    = "user:purge_orphan"
	TypeIdentityDelete = "identity:delete"

	maxCleanupRetry = 10
)

// UserPayload is the payload of both cleanup tasks.
type UserPayload struct {
	UserID string `json:"user_id"`
}

// TaskClient is the subset of *asynq.Client used to enqueue.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer schedules cleanup tasks. Task ids are derived from the user id so
// a second enqueue for the same user is a no-op while the first is pending.
type Enqueuer struct {
	client TaskClient
}

func NewEnqueuer(client TaskClient) *Enqueuer {
	return &Enqueuer{client: client}
}

var _ services.TaskEnqueuer = (*Enqueuer)(nil)

func (e *Enqueuer) EnqueuePurgeOrphan(ctx context.Context, userID uuid.UUID) error {
	return e.enqueue(ctx, TypePurgeOrphan, userID)
}

func (e *Enqueuer) EnqueueIdentityDelete(ctx context.Context, userID uuid.UUID) error {
	return e.enqueue(ctx, TypeIdentityDelete, userID)
}

func (e *Enqueuer) enqueue(ctx context.Context, typename string, userID uuid.UUID) error {
	pb, err := json.Marshal(UserPayload{UserID: userID.String()})
	if err != nil {
		return err
	}
	task := asynq.NewTask(typename, pb)
	info, err := e.client.EnqueueContext(ctx, task,
		asynq.TaskID(typename+":"+userID.String()),
		asynq.MaxRetry(maxCleanupRetry),
		asynq.Timeout(30*time.Second),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logger.Ctx(ctx).Info("cleanup task already queued",
			zap.String("type", typename), zap.String("user_id", userID.String()))
		return nil
	}
	if err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "enqueue "+typename+" failed")
	}
	logger.Ctx(ctx).Info("cleanup task enqueued",
		zap.String("type", typename), zap.String("task_id", info.ID), zap.String("user_id", userID.String()))
	return nil
}

// CleanupTaskHandler finishes deletes that a request could not complete.
// Both handlers are idempotent.
type CleanupTaskHandler struct {
	users      repository.UserRepository
	identities identity.Provider
}

func NewCleanupTaskHandler(users repository.UserRepository, identities identity.Provider) *CleanupTaskHandler {
	return &CleanupTaskHandler{users: users, identities: identities}
}

// Register binds the handlers to mux.
func (h *CleanupTaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypePurgeOrphan, h.HandlePurgeOrphan)
	mux.HandleFunc(TypeIdentityDelete, h.HandleIdentityDelete)
}

// HandlePurgeOrphan deletes a profile that has no identity. A profile that
// has since gained an identity is left alone.
func (h *CleanupTaskHandler) HandlePurgeOrphan(ctx context.Context, t *asynq.Task) error {
	id, err := parseUserPayload(t)
	if err != nil {
		return err
	}
	logger.L().Info("handling purge orphan task", zap.String("user_id", id.String()))

	has, err := h.identities.ExistsForUser(ctx, id)
	if err != nil {
		logger.L().Error("identity lookup failed", zap.String("user_id", id.String()), zap.Error(err))
		return err
	}
	if has {
		logger.L().Info("profile has an identity, skipping purge", zap.String("user_id", id.String()))
		return nil
	}

	if err := h.users.Delete(ctx, id); err != nil && !appErr.IsCode(err, appErr.CodeNotFound) {
		logger.L().Error("purge profile failed", zap.String("user_id", id.String()), zap.Error(err))
		return err
	}
	logger.L().Info("orphan profile purged", zap.String("user_id", id.String()))
	return nil
}

func (h *CleanupTaskHandler) HandleIdentityDelete(ctx context.Context, t *asynq.Task) error {
	id, err := parseUserPayload(t)
	if err != nil {
		return err
	}
	logger.L().Info("handling identity delete task", zap.String("user_id", id.String()))

	if err := h.identities.Delete(ctx, id); err != nil && !appErr.IsCode(err, appErr.CodeNotFound) {
		logger.L().Error("identity delete failed", zap.String("user_id", id.String()), zap.Error(err))
		return err
	}
	return nil
}

func parseUserPayload(t *asynq.Task) (uuid.UUID, error) {
	var p UserPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid cleanup task payload", zap.String("type", t.Type()), zap.Error(err))
		return uuid.Nil, fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	id, err := uuid.Parse(p.UserID)
	if err != nil {
		logger.L().Error("invalid user id in task", zap.String("type", t.Type()), zap.Error(err))
		return uuid.Nil, fmt.Errorf("parse user id: %v: %w", err, asynq.SkipRetry)
	}
	return id, nil
}
