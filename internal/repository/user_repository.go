package repository

//go:generate mockgen -source=user_repository.go -destination=gomock/mock_user_repository.go -package=repogomock

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/sandeepkv93/account-lifecycle-service/internal/domain"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	MarkVerified(ctx context.Context, id string, now time.Time) (bool, error)
	UpdatePassword(ctx context.Context, id, currentHash, newHash string, now time.Time) error
	Save(ctx context.Context, user *domain.User) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("email = ?", domain.NormalizeEmail(email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create relies on the unique email index; the loser of a concurrent insert
// gets ErrDuplicateEmail.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	user.Email = domain.NormalizeEmail(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// MarkVerified reports whether this call flipped the flag. A user that was
// already verified yields false with no error.
func (r *GormUserRepository) MarkVerified(ctx context.Context, id string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND is_verified = ?", id, false).
		Updates(map[string]any{"is_verified": true, "verified_at": now, "updated_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdatePassword swaps the hash only while it still equals currentHash, so of
// several writers holding the same stale read exactly one succeeds.
func (r *GormUserRepository) UpdatePassword(ctx context.Context, id, currentHash, newHash string, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND password_hash = ?", id, currentHash).
		Updates(map[string]any{"password_hash": newHash, "password_changed_at": now, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return ErrStalePassword
}

// Save persists the profile fields of an existing user. Verification state and
// the password hash only change through MarkVerified and UpdatePassword.
func (r *GormUserRepository) Save(ctx context.Context, user *domain.User) error {
	user.Email = domain.NormalizeEmail(user.Email)
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"email":      user.Email,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicateEmail
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
