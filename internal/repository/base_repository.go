package repository

import (
	"context"

	"gorm.io/gorm"

	appErr "github.com/reelwork/marketplace/pkg/errors"
)

// BaseRepository is the CRUD surface shared by every marketplace table.
type BaseRepository[T any] interface {
	Create(ctx context.Context, obj *T) error
	GetByID(ctx context.Context, id any, dest *T) error
	Update(ctx context.Context, obj *T) error
	// Delete removes the row with the given id; a missing row is CodeNotFound.
	Delete(ctx context.Context, id any) error
}

type baseRepository[T any] struct {
	db     *gorm.DB
	entity string
}

// NewBaseRepository binds CRUD for T. entity names the row kind in errors,
// e.g. "job post".
func NewBaseRepository[T any](db *gorm.DB, entity string) BaseRepository[T] {
	return &baseRepository[T]{db: db, entity: entity}
}

func (r *baseRepository[T]) Create(ctx context.Context, obj *T) error {
	return mapDBError(r.db.WithContext(ctx).Create(obj).Error, "insert "+r.entity)
}

func (r *baseRepository[T]) GetByID(ctx context.Context, id any, dest *T) error {
	return mapDBError(r.db.WithContext(ctx).Take(dest, "id = ?", id).Error, "load "+r.entity)
}

func (r *baseRepository[T]) Update(ctx context.Context, obj *T) error {
	return mapDBError(r.db.WithContext(ctx).Save(obj).Error, "save "+r.entity)
}

func (r *baseRepository[T]) Delete(ctx context.Context, id any) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return mapDBError(res.Error, "delete "+r.entity)
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, r.entity+" not found")
	}
	return nil
}
