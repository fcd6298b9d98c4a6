package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reelwork/marketplace/internal/models"
	appErr "github.com/reelwork/marketplace/pkg/errors"
)

type UserRepository interface {
	BaseRepository[models.User]
	GetByEmail(ctx context.Context, email string, dest *models.User) error
	// UpdateFields applies a partial column update and reloads dest.
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, dest *models.User) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type userRepository struct {
	BaseRepository[models.User]
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository[models.User](db, "user"), db: db}
}

func (r *userRepository) GetByEmail(ctx context.Context, email string, dest *models.User) error {
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(dest).Error; err != nil {
		return mapDBError(err, "get user by email failed")
	}
	return nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, dest *models.User) error {
	tx := r.db.WithContext(ctx)
	if len(fields) > 0 {
		res := tx.Model(&models.User{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return mapDBError(res.Error, "update user failed")
		}
		if res.RowsAffected == 0 {
			return appErr.New(appErr.CodeNotFound, "user not found")
		}
	}
	if err := tx.First(dest, "id = ?", id).Error; err != nil {
		return mapDBError(err, "reload user failed")
	}
	return nil
}

func (r *userRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, mapDBError(err, "count users failed")
	}
	return n > 0, nil
}
