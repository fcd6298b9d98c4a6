package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/reelwork/marketplace/internal/identity"
	"github.com/reelwork/marketplace/internal/models"
	"github.com/reelwork/marketplace/internal/payments"
	"github.com/reelwork/marketplace/internal/realtime"
	"github.com/reelwork/marketplace/internal/repository"
	"github.com/reelwork/marketplace/internal/session"
	"github.com/reelwork/marketplace/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

// mockBase implements BaseRepository[T]. GetByID copies the second return
// value into dest when the call succeeds.
type mockBase[T any] struct {
	mock.Mock
}

func (m *mockBase[T]) Create(ctx context.Context, obj *T) error {
	args := m.MethodCalled("Create", ctx, obj)
	return args.Error(0)
}

func (m *mockBase[T]) GetByID(ctx context.Context, id any, dest *T) error {
	args := m.MethodCalled("GetByID", ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*T)
	}
	return args.Error(0)
}

func (m *mockBase[T]) Update(ctx context.Context, obj *T) error {
	args := m.MethodCalled("Update", ctx, obj)
	return args.Error(0)
}

func (m *mockBase[T]) Delete(ctx context.Context, id any) error {
	args := m.MethodCalled("Delete", ctx, id)
	return args.Error(0)
}

type mockUserRepository struct {
	mockBase[models.User]
}

var _ repository.UserRepository = (*mockUserRepository)(nil)

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string, dest *models.User) error {
	args := m.Called(ctx, email, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.User)
	}
	return args.Error(0)
}

func (m *mockUserRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, dest *models.User) error {
	args := m.Called(ctx, id, fields, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.User)
	}
	return args.Error(0)
}

func (m *mockUserRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockJobPostRepository struct {
	mockBase[models.JobPost]
}

var _ repository.JobPostRepository = (*mockJobPostRepository)(nil)

func (m *mockJobPostRepository) GetWithOwner(ctx context.Context, id uuid.UUID, dest *models.JobPost) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.JobPost)
	}
	return args.Error(0)
}

func (m *mockJobPostRepository) List(ctx context.Context, f repository.JobPostFilter) ([]models.JobPost, int64, error) {
	args := m.Called(ctx, f)
	var posts []models.JobPost
	if v := args.Get(0); v != nil {
		posts = v.([]models.JobPost)
	}
	return posts, args.Get(1).(int64), args.Error(2)
}

func (m *mockJobPostRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

type mockApplicationRepository struct {
	mockBase[models.JobApplication]
}

var _ repository.ApplicationRepository = (*mockApplicationRepository)(nil)

func (m *mockApplicationRepository) Exists(ctx context.Context, jobPostID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, jobPostID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockApplicationRepository) GetWithApplicant(ctx context.Context, id uuid.UUID, dest *models.JobApplication) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.JobApplication)
	}
	return args.Error(0)
}

func (m *mockApplicationRepository) ListByJobPost(ctx context.Context, jobPostID uuid.UUID) ([]models.JobApplication, error) {
	args := m.Called(ctx, jobPostID)
	if v := args.Get(0); v != nil {
		return v.([]models.JobApplication), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMessageRepository struct {
	mockBase[models.Message]
}

var _ repository.MessageRepository = (*mockMessageRepository)(nil)

func (m *mockMessageRepository) Conversation(ctx context.Context, a, b uuid.UUID) ([]models.Message, error) {
	args := m.Called(ctx, a, b)
	if v := args.Get(0); v != nil {
		return v.([]models.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessageRepository) MarkRead(ctx context.Context, senderID, receiverID uuid.UUID) (int64, error) {
	args := m.Called(ctx, senderID, receiverID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockMessageRepository) GetWithParties(ctx context.Context, id uuid.UUID, dest *models.Message) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		*dest = *args.Get(1).(*models.Message)
	}
	return args.Error(0)
}

type mockPaymentRepository struct {
	mockBase[models.Payment]
}

var _ repository.PaymentRepository = (*mockPaymentRepository)(nil)

func (m *mockPaymentRepository) ListByJobPost(ctx context.Context, jobPostID uuid.UUID) ([]models.Payment, error) {
	args := m.Called(ctx, jobPostID)
	if v := args.Get(0); v != nil {
		return v.([]models.Payment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentRepository) CompleteForJobPost(ctx context.Context, jobPostID uuid.UUID) (repository.CompletionResult, error) {
	args := m.Called(ctx, jobPostID)
	return args.Get(0).(repository.CompletionResult), args.Error(1)
}

type mockIdentityProvider struct {
	mock.Mock
}

var _ identity.Provider = (*mockIdentityProvider)(nil)

func (m *mockIdentityProvider) Create(ctx context.Context, userID uuid.UUID, email, passwordHash, name string) error {
	args := m.Called(ctx, userID, email, passwordHash, name)
	return args.Error(0)
}

func (m *mockIdentityProvider) Authenticate(ctx context.Context, email, password string) (*identity.Identity, error) {
	args := m.Called(ctx, email, password)
	if v := args.Get(0); v != nil {
		return v.(*identity.Identity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockIdentityProvider) Delete(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockIdentityProvider) ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type mockSessionStore struct {
	mock.Mock
}

var _ session.Store = (*mockSessionStore)(nil)

func (m *mockSessionStore) Create(ctx context.Context, userID uuid.UUID, ttl time.Duration) (session.Session, error) {
	args := m.Called(ctx, userID, ttl)
	return args.Get(0).(session.Session), args.Error(1)
}

func (m *mockSessionStore) Get(ctx context.Context, id string) (session.Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(session.Session), args.Error(1)
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSessionStore) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockTaskEnqueuer struct {
	mock.Mock
}

var _ TaskEnqueuer = (*mockTaskEnqueuer)(nil)

func (m *mockTaskEnqueuer) EnqueuePurgeOrphan(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockTaskEnqueuer) EnqueueIdentityDelete(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockPublisher struct {
	mock.Mock
}

var _ realtime.Publisher = (*mockPublisher)(nil)

func (m *mockPublisher) Publish(ctx context.Context, userID uuid.UUID, ev realtime.Event) error {
	args := m.Called(ctx, userID, ev)
	return args.Error(0)
}

type mockGateway struct {
	mock.Mock
}

var _ payments.Gateway = (*mockGateway)(nil)

func (m *mockGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (payments.Intent, error) {
	args := m.Called(ctx, amount, currency, metadata)
	return args.Get(0).(payments.Intent), args.Error(1)
}

func (m *mockGateway) ParseWebhook(payload []byte, signature string) (payments.Event, error) {
	args := m.Called(payload, signature)
	return args.Get(0).(payments.Event), args.Error(1)
}

// eventOfType matches a realtime.Event by its Type.
func eventOfType(t string) any {
	return mock.MatchedBy(func(ev realtime.Event) bool { return ev.Type == t })
}
