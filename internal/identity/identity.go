// Package identity is the credential store behind login. It runs on its own
// database handle, so writes here never join a profile transaction.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	appErr "github.com/reelwork/marketplace/pkg/errors"
	"github.com/reelwork/marketplace/pkg/logger"
)

// Identity is a login credential bound to exactly one profile.
type Identity struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_auth_identities_user"`
	Email        string    `gorm:"not null;uniqueIndex:uq_auth_identities_email"`
	PasswordHash string    `gorm:"not null"`
	Name         string    `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Identity) TableName() string { return "auth_identities" }

// Provider manages identities. Implementations return *errors.AppError.
type Provider interface {
	// Create stores a credential for userID. passwordHash is a bcrypt hash.
	Create(ctx context.Context, userID uuid.UUID, email, passwordHash, name string) error
	// Authenticate returns the identity when email and password match.
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
	// Delete removes the identity of userID; not_found when there is none.
	Delete(ctx context.Context, userID uuid.UUID) error
	ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error)
}

type gormProvider struct {
	db *gorm.DB
}

// NewGormProvider returns a Provider backed by the auth_identities table.
func NewGormProvider(db *gorm.DB) Provider {
	return &gormProvider{db: db}
}

var _ Provider = (*gormProvider)(nil)

// Migrate creates the identity table.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		return err
	}
	return db.AutoMigrate(&Identity{})
}

func (p *gormProvider) Create(ctx context.Context, userID uuid.UUID, email, passwordHash, name string) error {
	logger.Ctx(ctx).Info("create identity", zap.String("user_id", userID.String()))
	if passwordHash == "" {
		return appErr.New(appErr.CodeInvalid, "password hash is required")
	}
	id := &Identity{
		UserID:       userID,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		Name:         name,
	}
	if err := p.db.WithContext(ctx).Create(id).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return appErr.Wrap(err, appErr.CodeAlreadyExists, "User already registered")
		}
		return appErr.Wrap(err, appErr.CodeUnavailable, "identity store unavailable")
	}
	return nil
}

// dummyHash is compared against when no identity matches, so unknown and
// known emails cost the same bcrypt work.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("no-such-identity"), bcrypt.DefaultCost)
	if err != nil {
		panic("identity: generate dummy hash: " + err.Error())
	}
	return h
})

func (p *gormProvider) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	var id Identity
	err := p.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			return nil, appErr.New(appErr.CodeUnauthorized, "Invalid credentials")
		}
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "identity store unavailable")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(id.PasswordHash), []byte(password)); err != nil {
		return nil, appErr.New(appErr.CodeUnauthorized, "Invalid credentials")
	}
	return &id, nil
}

func (p *gormProvider) Delete(ctx context.Context, userID uuid.UUID) error {
	logger.Ctx(ctx).Info("delete identity", zap.String("user_id", userID.String()))
	res := p.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&Identity{})
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeUnavailable, "identity store unavailable")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "identity not found")
	}
	return nil
}

func (p *gormProvider) ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	var n int64
	if err := p.db.WithContext(ctx).Model(&Identity{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return false, appErr.Wrap(err, appErr.CodeUnavailable, "identity store unavailable")
	}
	return n > 0, nil
}
