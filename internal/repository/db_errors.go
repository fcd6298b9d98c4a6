package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	appErr "github.com/reelwork/marketplace/pkg/errors"
)

// mapDBError converts a store error into an AppError. op names the failed
// operation and becomes the message of internal errors.
//
//   - gorm.ErrRecordNotFound         -> not_found
//   - unique_violation (23505)       -> already_exists, meta "constraint"
//   - foreign_key_violation (23503)  -> not_found, meta "constraint"
//   - context deadline               -> deadline_exceeded
func mapDBError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return appErr.Wrap(err, appErr.CodeNotFound, op+": not found")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return appErr.Wrap(err, appErr.CodeDeadline, op+": timed out")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return appErr.Wrap(err, appErr.CodeAlreadyExists, op+": duplicate").
				WithMeta("constraint", pgErr.ConstraintName)
		case pgerrcode.ForeignKeyViolation:
			return appErr.Wrap(err, appErr.CodeNotFound, op+": referenced row missing").
				WithMeta("constraint", pgErr.ConstraintName)
		}
	}
	return appErr.Wrap(err, appErr.CodeInternal, op)
}

// Constraint returns the constraint name recorded by mapDBError, if any.
func Constraint(err error) string {
	ae, ok := appErr.As(err)
	if !ok || ae.Meta == nil {
		return ""
	}
	s, _ := ae.Meta["constraint"].(string)
	return s
}
