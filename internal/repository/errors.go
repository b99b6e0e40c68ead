package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrStalePassword  = errors.New("password hash changed since it was read")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrCodeNotFound   = errors.New("one-time code not found")
	ErrDuplicateCode  = errors.New("one-time code already in use")
	ErrAlreadyRevoked = errors.New("token already revoked")
)

// isUniqueViolation recognises unique-index failures from postgres, from
// sqlite, and from gorm's translated form.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate key value")
}
