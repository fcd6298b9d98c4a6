package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reelwork/marketplace/internal/api/handlers"
	mw "github.com/reelwork/marketplace/internal/api/middleware"
	"github.com/reelwork/marketplace/internal/auth"
	"github.com/reelwork/marketplace/internal/models"
	"github.com/reelwork/marketplace/internal/services"
	"github.com/reelwork/marketplace/internal/session"
	"github.com/reelwork/marketplace/pkg/logger"
	"github.com/reelwork/marketplace/pkg/metrics"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) Create(ctx context.Context, userID uuid.UUID, ttl time.Duration) (session.Session, error) {
	args := m.Called(ctx, userID, ttl)
	return args.Get(0).(session.Session), args.Error(1)
}

func (m *mockSessions) Get(ctx context.Context, id string) (session.Session, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(session.Session), args.Error(1)
}

func (m *mockSessions) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSessions) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

type mockJobs struct {
	mock.Mock
	services.JobService
}

func (m *mockJobs) ListJobPosts(ctx context.Context, in services.ListJobPostsInput) (*services.JobPostPage, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(*services.JobPostPage), args.Error(1)
}

func (m *mockJobs) Apply(ctx context.Context, jobPostID, applicantID uuid.UUID, message string) (*models.JobApplication, error) {
	args := m.Called(ctx, jobPostID, applicantID, message)
	return args.Get(0).(*models.JobApplication), args.Error(1)
}

type routerFixture struct {
	handler  http.Handler
	tokens   *auth.TokenIssuer
	sessions *mockSessions
	jobs     *mockJobs
	metrics  *metrics.Metrics
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{
		tokens:   auth.NewTokenIssuer([]byte("router-test-secret-0123456789"), time.Hour),
		sessions: new(mockSessions),
		jobs:     new(mockJobs),
		metrics:  metrics.New(),
	}
	f.handler = NewRouter(Dependencies{
		Authenticator:   mw.NewAuthenticator(f.tokens, f.sessions, "reelwork_session"),
		Metrics:         f.metrics,
		Limiter:         mw.NewKeyLimiter(100, 100, time.Minute),
		HealthHandler:   handlers.NewHealthHandler(nil),
		AuthHandler:     handlers.NewAuthHandler(nil, handlers.CookieConfig{Name: "reelwork_session"}),
		JobsHandler:     handlers.NewJobsHandler(f.jobs),
		MessagesHandler: handlers.NewMessagesHandler(nil),
		UsersHandler:    handlers.NewUsersHandler(nil),
		PaymentsHandler: handlers.NewPaymentsHandler(nil),
		EventsHandler:   handlers.NewEventsHandler(nil, 0),
	})
	return f
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthRoutes(t *testing.T) {
	f := newRouterFixture()

	rr := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, rr.Header().Get(mw.RequestIDHeader))

	rr = f.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	f := newRouterFixture()
	id := uuid.NewString()

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/jobs"},
		{http.MethodDelete, "/api/v1/jobs/" + id},
		{http.MethodPost, "/api/v1/jobs/" + id + "/apply"},
		{http.MethodPost, "/api/v1/jobs/" + id + "/close"},
		{http.MethodGet, "/api/v1/jobs/" + id + "/applications"},
		{http.MethodGet, "/api/v1/messages"},
		{http.MethodPost, "/api/v1/messages"},
		{http.MethodPatch, "/api/v1/users/profile"},
		{http.MethodPut, "/api/v1/users/" + id},
		{http.MethodDelete, "/api/v1/users/" + id},
		{http.MethodPost, "/api/v1/payments"},
		{http.MethodGet, "/api/v1/payments"},
		{http.MethodGet, "/api/v1/events/stream"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			req := httptest.NewRequest(rt.method, rt.path, nil)
			// a client-supplied user id is not a credential
			req.Header.Set("X-User-ID", id)
			rr := f.do(req)
			require.Equal(t, http.StatusUnauthorized, rr.Code)
			require.JSONEq(t, `{"error":"Unauthorized"}`, rr.Body.String())
		})
	}
}

func TestPublicJobListing(t *testing.T) {
	f := newRouterFixture()
	f.jobs.On("ListJobPosts", mock.Anything, services.ListJobPostsInput{Status: "open"}).
		Return(&services.JobPostPage{JobPosts: []models.JobPost{}, Page: 1, Limit: 10}, nil).Once()

	rr := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/jobs?status=open", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"job_posts":[]`)
	f.jobs.AssertExpectations(t)
}

func TestApplyResolvesCallerFromToken(t *testing.T) {
	f := newRouterFixture()
	applicant, jobID := uuid.New(), uuid.New()
	tok, err := f.tokens.Issue(applicant)
	require.NoError(t, err)

	f.jobs.On("Apply", mock.Anything, jobID, applicant, "").
		Return(&models.JobApplication{ID: uuid.New(), JobPostID: jobID, UserID: applicant}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+jobID.String()+"/apply", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("X-User-ID", uuid.NewString())
	rr := f.do(req)

	require.Equal(t, http.StatusCreated, rr.Code)
	f.jobs.AssertExpectations(t)
}

func TestApplyResolvesCallerFromSessionCookie(t *testing.T) {
	f := newRouterFixture()
	applicant, jobID := uuid.New(), uuid.New()
	f.sessions.On("Get", mock.Anything, "sess-1").Return(session.Session{ID: "sess-1", UserID: applicant}, nil).Once()
	f.jobs.On("Apply", mock.Anything, jobID, applicant, "").
		Return(&models.JobApplication{ID: uuid.New(), JobPostID: jobID, UserID: applicant}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+jobID.String()+"/apply", nil)
	req.AddCookie(&http.Cookie{Name: "reelwork_session", Value: "sess-1"})
	rr := f.do(req)

	require.Equal(t, http.StatusCreated, rr.Code)
	f.sessions.AssertExpectations(t)
}

func TestWebhookIsNotSessionGated(t *testing.T) {
	f := newRouterFixture()
	rr := f.do(httptest.NewRequest(http.MethodPut, "/api/v1/payments", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.JSONEq(t, `{"error":"Missing stripe signature"}`, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	f := newRouterFixture()
	f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}
