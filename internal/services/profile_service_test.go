package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reelwork/marketplace/internal/models"
	appErr "github.com/reelwork/marketplace/pkg/errors"
)

type profileFixture struct {
	users      *mockUserRepository
	identities *mockIdentityProvider
	sessions   *mockSessionStore
	tasks      *mockTaskEnqueuer
	svc        ProfileService
}

func newProfileFixture() *profileFixture {
	f := &profileFixture{
		users:      new(mockUserRepository),
		identities: new(mockIdentityProvider),
		sessions:   new(mockSessionStore),
		tasks:      new(mockTaskEnqueuer),
	}
	f.svc = NewProfileService(f.users, f.identities, f.sessions, f.tasks)
	return f
}

func (f *profileFixture) assert(t *testing.T) {
	mock.AssertExpectationsForObjects(t, f.users, f.identities, f.sessions, f.tasks)
}

func strPtr(s string) *string { return &s }

func TestUpdateProfile_SelfOnly(t *testing.T) {
	self, other := uuid.New(), uuid.New()
	in := UpdateProfileInput{Bio: strPtr("Colorist"), Skills: &[]string{"grading", "editing"}}

	t.Run("self", func(t *testing.T) {
		f := newProfileFixture()
		f.users.On("UpdateFields", mock.Anything, self, map[string]any{
			"bio":    "Colorist",
			"skills": pq.StringArray{"grading", "editing"},
		}, mock.Anything).Return(nil, &models.User{ID: self, Bio: "Colorist"}).Once()

		u, err := f.svc.UpdateProfile(context.Background(), self, self, in)
		require.NoError(t, err)
		require.Equal(t, "Colorist", u.Bio)
		f.assert(t)
	})

	t.Run("other", func(t *testing.T) {
		f := newProfileFixture()
		_, err := f.svc.UpdateProfile(context.Background(), other, self, in)
		requireAppError(t, err, appErr.CodeUnauthorized, "Unauthorized")
		f.assert(t)
	})

	t.Run("anonymous", func(t *testing.T) {
		f := newProfileFixture()
		_, err := f.svc.UpdateProfile(context.Background(), uuid.Nil, self, in)
		requireAppError(t, err, appErr.CodeUnauthorized, "Unauthorized")
	})

	t.Run("empty update returns current", func(t *testing.T) {
		f := newProfileFixture()
		f.users.On("GetByID", mock.Anything, self, mock.Anything).
			Return(nil, &models.User{ID: self, Name: "Ada"}).Once()
		u, err := f.svc.UpdateProfile(context.Background(), self, self, UpdateProfileInput{})
		require.NoError(t, err)
		require.Equal(t, "Ada", u.Name)
		f.assert(t)
	})
}

func TestDeleteProfile(t *testing.T) {
	self := uuid.New()

	t.Run("deletes profile, sessions and identity", func(t *testing.T) {
		f := newProfileFixture()
		f.users.On("Delete", mock.Anything, self).Return(nil).Once()
		f.sessions.On("DeleteByUser", mock.Anything, self).Return(nil).Once()
		f.identities.On("Delete", mock.Anything, self).Return(nil).Once()

		require.NoError(t, f.svc.DeleteProfile(context.Background(), self, self))
		f.assert(t)
	})

	t.Run("other user is rejected", func(t *testing.T) {
		f := newProfileFixture()
		err := f.svc.DeleteProfile(context.Background(), uuid.New(), self)
		requireAppError(t, err, appErr.CodeUnauthorized, "Unauthorized")
		f.assert(t)
	})

	t.Run("missing profile", func(t *testing.T) {
		f := newProfileFixture()
		f.users.On("Delete", mock.Anything, self).Return(appErr.New(appErr.CodeNotFound, "entity not found")).Once()
		err := f.svc.DeleteProfile(context.Background(), self, self)
		requireAppError(t, err, appErr.CodeNotFound, "User not found")
		f.assert(t)
	})

	t.Run("identity failure is queued", func(t *testing.T) {
		f := newProfileFixture()
		f.users.On("Delete", mock.Anything, self).Return(nil).Once()
		f.sessions.On("DeleteByUser", mock.Anything, self).Return(errors.New("redis down")).Once()
		f.identities.On("Delete", mock.Anything, self).Return(appErr.New(appErr.CodeUnavailable, "identity store unavailable")).Once()
		f.tasks.On("EnqueueIdentityDelete", mock.Anything, self).Return(nil).Once()

		require.NoError(t, f.svc.DeleteProfile(context.Background(), self, self))
		f.assert(t)
	})

	t.Run("queue failure surfaces", func(t *testing.T) {
		f := newProfileFixture()
		f.users.On("Delete", mock.Anything, self).Return(nil).Once()
		f.sessions.On("DeleteByUser", mock.Anything, self).Return(nil).Once()
		f.identities.On("Delete", mock.Anything, self).Return(errors.New("down")).Once()
		f.tasks.On("EnqueueIdentityDelete", mock.Anything, self).Return(errors.New("redis down")).Once()

		err := f.svc.DeleteProfile(context.Background(), self, self)
		requireAppError(t, err, appErr.CodeInternal, "Failed to delete auth user")
		f.assert(t)
	})
}
