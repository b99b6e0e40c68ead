package repository

//go:generate mockgen -source=one_time_code_repository.go -destination=gomock/mock_one_time_code_repository.go -package=repogomock

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandeepkv93/account-lifecycle-service/internal/domain"
)

type OneTimeCodeRepository interface {
	Create(ctx context.Context, otp *domain.OneTimePassword) error
	FindActive(ctx context.Context, code string, now time.Time) (*domain.OneTimePassword, error)
	Consume(ctx context.Context, code string, now time.Time) (string, error)
	Redeem(ctx context.Context, code string, now time.Time) (Redemption, error)
	Replace(ctx context.Context, otp *domain.OneTimePassword) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Redemption is the outcome of a successful Redeem. Verified is false when the
// owner had already been verified.
type Redemption struct {
	UserID   string
	Verified bool
}

type GormOneTimeCodeRepository struct {
	db *gorm.DB
}

func NewOneTimeCodeRepository(db *gorm.DB) OneTimeCodeRepository {
	return &GormOneTimeCodeRepository{db: db}
}

func (r *GormOneTimeCodeRepository) Create(ctx context.Context, otp *domain.OneTimePassword) error {
	if err := r.db.WithContext(ctx).Create(otp).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (r *GormOneTimeCodeRepository) FindActive(ctx context.Context, code string, now time.Time) (*domain.OneTimePassword, error) {
	var otp domain.OneTimePassword
	err := r.db.WithContext(ctx).Where("code = ? AND expires_at > ?", code, now).First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &otp, nil
}

// Consume deletes the code and returns its owner. Among concurrent callers only
// the one whose delete removes the row succeeds; the rest see ErrCodeNotFound.
func (r *GormOneTimeCodeRepository) Consume(ctx context.Context, code string, now time.Time) (string, error) {
	otp, err := r.FindActive(ctx, code, now)
	if err != nil {
		return "", err
	}
	res := r.db.WithContext(ctx).
		Where("id = ? AND code = ?", otp.ID, code).
		Delete(&domain.OneTimePassword{})
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", ErrCodeNotFound
	}
	return otp.UserID, nil
}

// Replace drops every code the user holds and stores otp in one transaction.
// The user row is locked first so concurrent replacements for the same user
// run one after another and leave a single live code.
func (r *GormOneTimeCodeRepository) Replace(ctx context.Context, otp *domain.OneTimePassword) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner domain.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", otp.UserID).
			Limit(1).
			Find(&owner).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", otp.UserID).Delete(&domain.OneTimePassword{}).Error; err != nil {
			return err
		}
		return tx.Create(otp).Error
	})
	if isUniqueViolation(err) {
		return ErrDuplicateCode
	}
	return err
}

// Redeem consumes the code and marks its owner verified in one transaction. A
// failed update leaves the code in place.
func (r *GormOneTimeCodeRepository) Redeem(ctx context.Context, code string, now time.Time) (Redemption, error) {
	var out Redemption
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userID, err := NewOneTimeCodeRepository(tx).Consume(ctx, code, now)
		if err != nil {
			return err
		}
		verified, err := NewUserRepository(tx).MarkVerified(ctx, userID, now)
		if err != nil {
			return err
		}
		out = Redemption{UserID: userID, Verified: verified}
		return nil
	})
	if err != nil {
		return Redemption{}, err
	}
	return out, nil
}

func (r *GormOneTimeCodeRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.OneTimePassword{})
	return res.RowsAffected, res.Error
}
