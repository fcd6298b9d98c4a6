package services

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/reelwork/marketplace/internal/auth"
	"github.com/reelwork/marketplace/internal/identity"
	"github.com/reelwork/marketplace/internal/models"
	"github.com/reelwork/marketplace/internal/repository"
	"github.com/reelwork/marketplace/internal/session"
	appErr "github.com/reelwork/marketplace/pkg/errors"
	"github.com/reelwork/marketplace/pkg/logger"
	"github.com/reelwork/marketplace/pkg/metrics"
)

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginResult carries both credentials handed out on login.
type LoginResult struct {
	User        *models.User
	Session     session.Session
	AccessToken string
	ExpiresIn   time.Duration
}

type authService struct {
	users      repository.UserRepository
	identities identity.Provider
	sessions   session.Store
	tokens     *auth.TokenIssuer
	tasks      TaskEnqueuer
	metrics    *metrics.Metrics
	sessionTTL time.Duration
	bcryptCost int
	// retryPolicy builds the backoff for the compensating profile delete.
	retryPolicy func() backoff.BackOff
}

func NewAuthService(
	users repository.UserRepository,
	identities identity.Provider,
	sessions session.Store,
	tokens *auth.TokenIssuer,
	tasks TaskEnqueuer,
	m *metrics.Metrics,
	sessionTTL time.Duration,
) AuthService {
	return &authService{
		users:       users,
		identities:  identities,
		sessions:    sessions,
		tokens:      tokens,
		tasks:       tasks,
		metrics:     m,
		sessionTTL:  sessionTTL,
		bcryptCost:  bcrypt.DefaultCost,
		retryPolicy: defaultCompensationPolicy,
	}
}

var _ AuthService = (*authService)(nil)

func defaultCompensationPolicy() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 100 * time.Millisecond
	eb.MaxInterval = time.Second
	eb.MaxElapsedTime = 5 * time.Second
	return backoff.WithMaxRetries(eb, 4)
}

// Register creates the profile, then the identity. If the identity cannot be
// created the profile is removed again, by retry or by a queued task.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	logger.Ctx(ctx).Info("register called", zap.String("email", email))

	ph, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "hash password failed")
	}

	u := &models.User{
		Name:           strings.TrimSpace(in.Name),
		Email:          email,
		PasswordHash:   string(ph),
		ContactDisplay: true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if appErr.IsCode(err, appErr.CodeAlreadyExists) {
			return nil, appErr.Wrap(err, appErr.CodeAlreadyExists, "Email already registered")
		}
		return nil, err
	}

	if err := s.identities.Create(ctx, u.ID, u.Email, string(ph), u.Name); err != nil {
		logger.Ctx(ctx).Warn("identity creation failed, rolling back profile",
			zap.String("user_id", u.ID.String()), zap.Error(err))
		s.compensate(ctx, u.ID)

		reason := err.Error()
		if ae, ok := appErr.As(err); ok {
			reason = ae.Message
		}
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "Auth error: "+reason)
	}

	logger.Ctx(ctx).Info("user registered", zap.String("user_id", u.ID.String()))
	return u, nil
}

// compensate deletes an orphaned profile. It outlives the request context.
func (s *authService) compensate(ctx context.Context, userID uuid.UUID) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	op := func() error {
		err := s.users.Delete(cctx, userID)
		if err == nil || appErr.IsCode(err, appErr.CodeNotFound) {
			return nil
		}
		return err
	}
	err := backoff.Retry(op, backoff.WithContext(s.retryPolicy(), cctx))
	if err == nil {
		s.metrics.Compensation("deleted")
		return
	}

	logger.Ctx(ctx).Error("profile rollback failed, enqueuing purge",
		zap.String("user_id", userID.String()), zap.Error(err))
	if enqErr := s.tasks.EnqueuePurgeOrphan(cctx, userID); enqErr != nil {
		s.metrics.Compensation("failed")
		logger.Ctx(ctx).Error("enqueue purge failed; orphaned profile remains",
			zap.String("user_id", userID.String()), zap.Error(enqErr))
		return
	}
	s.metrics.Compensation("enqueued")
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	logger.Ctx(ctx).Info("login called", zap.String("email", strings.ToLower(strings.TrimSpace(email))))

	id, err := s.identities.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	var u models.User
	if err := s.users.GetByID(ctx, id.UserID, &u); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeUnauthorized, "Invalid credentials")
		}
		return nil, err
	}

	sess, err := s.sessions.Create(ctx, u.ID, s.sessionTTL)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "session store unavailable")
	}
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "issue token failed")
	}

	logger.Ctx(ctx).Info("user logged in", zap.String("user_id", u.ID.String()))
	return &LoginResult{User: &u, Session: sess, AccessToken: token, ExpiresIn: s.tokens.TTL()}, nil
}

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "session store unavailable")
	}
	return nil
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.users.GetByID(ctx, userID, &u); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.Wrap(err, appErr.CodeNotFound, "User not found")
		}
		return nil, err
	}
	return &u, nil
}
