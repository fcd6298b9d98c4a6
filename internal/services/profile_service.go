package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/reelwork/marketplace/internal/identity"
	"github.com/reelwork/marketplace/internal/models"
	"github.com/reelwork/marketplace/internal/repository"
	"github.com/reelwork/marketplace/internal/session"
	appErr "github.com/reelwork/marketplace/pkg/errors"
	"github.com/reelwork/marketplace/pkg/logger"
)

type ProfileService interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, callerID, targetID uuid.UUID, in UpdateProfileInput) (*models.User, error)
	DeleteProfile(ctx context.Context, callerID, targetID uuid.UUID) error
}

// UpdateProfileInput is a partial update; nil fields are left unchanged.
type UpdateProfileInput struct {
	Name           *string
	Bio            *string
	ProfilePic     *string
	PortfolioURL   *string
	Skills         *[]string
	ContactDisplay *bool
}

func (in UpdateProfileInput) fields() map[string]any {
	f := make(map[string]any)
	if in.Name != nil {
		f["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Bio != nil {
		f["bio"] = *in.Bio
	}
	if in.ProfilePic != nil {
		f["profile_pic"] = *in.ProfilePic
	}
	if in.PortfolioURL != nil {
		f["portfolio_url"] = *in.PortfolioURL
	}
	if in.Skills != nil {
		f["skills"] = pq.StringArray(*in.Skills)
	}
	if in.ContactDisplay != nil {
		f["contact_display"] = *in.ContactDisplay
	}
	return f
}

type profileService struct {
	users      repository.UserRepository
	identities identity.Provider
	sessions   session.Store
	tasks      TaskEnqueuer
}

func NewProfileService(users repository.UserRepository, identities identity.Provider, sessions session.Store, tasks TaskEnqueuer) ProfileService {
	return &profileService{users: users, identities: identities, sessions: sessions, tasks: tasks}
}

var _ ProfileService = (*profileService)(nil)

func (s *profileService) GetProfile(ctx context.Context, id uuid.UUID) (*models.User, error) {
	logger.Ctx(ctx).Info("get profile called", zap.String("user_id", id.String()))

	var u models.User
	if err := s.users.GetByID(ctx, id, &u); err != nil {
		return nil, userNotFound(err)
	}
	return &u, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, callerID, targetID uuid.UUID, in UpdateProfileInput) (*models.User, error) {
	logger.Ctx(ctx).Info("update profile called",
		zap.String("caller_id", callerID.String()), zap.String("user_id", targetID.String()))

	if err := authorizeSelf(callerID, targetID); err != nil {
		return nil, err
	}

	var u models.User
	fields := in.fields()
	if len(fields) == 0 {
		if err := s.users.GetByID(ctx, targetID, &u); err != nil {
			return nil, userNotFound(err)
		}
		return &u, nil
	}
	if err := s.users.UpdateFields(ctx, targetID, fields, &u); err != nil {
		return nil, userNotFound(err)
	}
	return &u, nil
}

// DeleteProfile removes the profile, then the identity. A failed identity
// delete is queued for the worker; the call fails only if queuing fails.
func (s *profileService) DeleteProfile(ctx context.Context, callerID, targetID uuid.UUID) error {
	logger.Ctx(ctx).Info("delete profile called",
		zap.String("caller_id", callerID.String()), zap.String("user_id", targetID.String()))

	if err := authorizeSelf(callerID, targetID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, targetID); err != nil {
		return userNotFound(err)
	}

	if err := s.sessions.DeleteByUser(ctx, targetID); err != nil {
		logger.Ctx(ctx).Warn("revoke sessions failed", zap.String("user_id", targetID.String()), zap.Error(err))
	}

	err := s.identities.Delete(ctx, targetID)
	if err == nil || appErr.IsCode(err, appErr.CodeNotFound) {
		return nil
	}
	logger.Ctx(ctx).Warn("identity delete failed, enqueuing",
		zap.String("user_id", targetID.String()), zap.Error(err))
	if enqErr := s.tasks.EnqueueIdentityDelete(ctx, targetID); enqErr != nil {
		return appErr.Wrap(enqErr, appErr.CodeInternal, "Failed to delete auth user")
	}
	return nil
}

func authorizeSelf(callerID, targetID uuid.UUID) error {
	if callerID == uuid.Nil || callerID != targetID {
		return appErr.New(appErr.CodeUnauthorized, "Unauthorized")
	}
	return nil
}

func userNotFound(err error) error {
	if appErr.IsCode(err, appErr.CodeNotFound) {
		return appErr.Wrap(err, appErr.CodeNotFound, "User not found")
	}
	return err
}
