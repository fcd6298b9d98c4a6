package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reelwork/marketplace/internal/identity"
	"github.com/reelwork/marketplace/internal/models"
	appErr "github.com/reelwork/marketplace/pkg/errors"
	"github.com/reelwork/marketplace/pkg/logger"
)

func TestMain(m *testing.M) {
	// task handlers log through the global logger
	if _, err := logger.Init("info", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockTaskClient struct {
	mock.Mock
}

func (m *mockTaskClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if v := args.Get(0); v != nil {
		return v.(*asynq.TaskInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, obj *models.User) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id any, dest *models.User) error {
	return m.Called(ctx, id, dest).Error(0)
}

func (m *mockUserRepository) Update(ctx context.Context, obj *models.User) error {
	return m.Called(ctx, obj).Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id any) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string, dest *models.User) error {
	return m.Called(ctx, email, dest).Error(0)
}

func (m *mockUserRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, dest *models.User) error {
	return m.Called(ctx, id, fields, dest).Error(0)
}

func (m *mockUserRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockIdentityProvider struct {
	mock.Mock
}

func (m *mockIdentityProvider) Create(ctx context.Context, userID uuid.UUID, email, passwordHash, name string) error {
	return m.Called(ctx, userID, email, passwordHash, name).Error(0)
}

func (m *mockIdentityProvider) Authenticate(ctx context.Context, email, password string) (*identity.Identity, error) {
	args := m.Called(ctx, email, password)
	if v := args.Get(0); v != nil {
		return v.(*identity.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIdentityProvider) Delete(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockIdentityProvider) ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func userTask(t *testing.T, typename string, id uuid.UUID) *asynq.Task {
	t.Helper()
	pb, err := json.Marshal(UserPayload{UserID: id.String()})
	require.NoError(t, err)
	return asynq.NewTask(typename, pb)
}

func TestEnqueuer(t *testing.T) {
	uid := uuid.New()

	t.Run("enqueues with a per-user task id", func(t *testing.T) {
		client := new(mockTaskClient)
		client.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
			var p UserPayload
			_ = json.Unmarshal(task.Payload(), &p)
			return task.Type() == TypePurgeOrphan && p.UserID == uid.String()
		}), mock.Anything).Return(&asynq.TaskInfo{ID: TypePurgeOrphan + ":" + uid.String()}, nil).Once()

		require.NoError(t, NewEnqueuer(client).EnqueuePurgeOrphan(context.Background(), uid))
		client.AssertExpectations(t)
	})

	t.Run("duplicate is not an error", func(t *testing.T) {
		client := new(mockTaskClient)
		client.On("EnqueueContext", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, asynq.ErrTaskIDConflict).Once()

		require.NoError(t, NewEnqueuer(client).EnqueueIdentityDelete(context.Background(), uid))
		client.AssertExpectations(t)
	})

	t.Run("broker failure", func(t *testing.T) {
		client := new(mockTaskClient)
		client.On("EnqueueContext", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("dial tcp: connection refused")).Once()

		err := NewEnqueuer(client).EnqueueIdentityDelete(context.Background(), uid)
		require.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
	})
}

func TestHandlePurgeOrphan(t *testing.T) {
	uid := uuid.New()

	t.Run("deletes profile without identity", func(t *testing.T) {
		users, ids := new(mockUserRepository), new(mockIdentityProvider)
		ids.On("ExistsForUser", mock.Anything, uid).Return(false, nil).Once()
		users.On("Delete", mock.Anything, uid).Return(nil).Once()

		h := NewCleanupTaskHandler(users, ids)
		require.NoError(t, h.HandlePurgeOrphan(context.Background(), userTask(t, TypePurgeOrphan, uid)))
		mock.AssertExpectationsForObjects(t, users, ids)
	})

	t.Run("already gone", func(t *testing.T) {
		users, ids := new(mockUserRepository), new(mockIdentityProvider)
		ids.On("ExistsForUser", mock.Anything, uid).Return(false, nil).Once()
		users.On("Delete", mock.Anything, uid).Return(appErr.New(appErr.CodeNotFound, "entity not found")).Once()

		h := NewCleanupTaskHandler(users, ids)
		require.NoError(t, h.HandlePurgeOrphan(context.Background(), userTask(t, TypePurgeOrphan, uid)))
	})

	t.Run("keeps profile with identity", func(t *testing.T) {
		users, ids := new(mockUserRepository), new(mockIdentityProvider)
		ids.On("ExistsForUser", mock.Anything, uid).Return(true, nil).Once()

		h := NewCleanupTaskHandler(users, ids)
		require.NoError(t, h.HandlePurgeOrphan(context.Background(), userTask(t, TypePurgeOrphan, uid)))
		users.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("store error is retried", func(t *testing.T) {
		users, ids := new(mockUserRepository), new(mockIdentityProvider)
		ids.On("ExistsForUser", mock.Anything, uid).Return(false, nil).Once()
		users.On("Delete", mock.Anything, uid).Return(appErr.New(appErr.CodeInternal, "db down")).Once()

		h := NewCleanupTaskHandler(users, ids)
		err := h.HandlePurgeOrphan(context.Background(), userTask(t, TypePurgeOrphan, uid))
		require.Error(t, err)
		require.False(t, errors.Is(err, asynq.SkipRetry))
	})

	t.Run("bad payload is not retried", func(t *testing.T) {
		h := NewCleanupTaskHandler(new(mockUserRepository), new(mockIdentityProvider))
		err := h.HandlePurgeOrphan(context.Background(), asynq.NewTask(TypePurgeOrphan, []byte(`{"user_id":"nope"}`)))
		require.ErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestHandleIdentityDelete(t *testing.T) {
	uid := uuid.New()

	ids := new(mockIdentityProvider)
	ids.On("Delete", mock.Anything, uid).Return(appErr.New(appErr.CodeNotFound, "identity not found")).Once()
	h := NewCleanupTaskHandler(new(mockUserRepository), ids)
	require.NoError(t, h.HandleIdentityDelete(context.Background(), userTask(t, TypeIdentityDelete, uid)))

	ids.On("Delete", mock.Anything, uid).Return(errors.New("connection reset")).Once()
	require.Error(t, h.HandleIdentityDelete(context.Background(), userTask(t, TypeIdentityDelete, uid)))
	ids.AssertExpectations(t)
}
