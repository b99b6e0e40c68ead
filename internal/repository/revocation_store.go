package repository

//go:generate mockgen -source=revocation_store.go -destination=gomock/mock_revocation_store.go -package=repogomock

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sandeepkv93/account-lifecycle-service/internal/domain"
)

// RevocationStore is the deny-list for refresh token IDs. Reads always go to the
// backing store so a revocation is visible to the next check.
type RevocationStore interface {
	Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type GormRevocationStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormRevocationStore(db *gorm.DB) *GormRevocationStore {
	return &GormRevocationStore{db: db, now: time.Now}
}

func (s *GormRevocationStore) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	row := &domain.RevokedToken{
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		RevokedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyRevoked
		}
		return err
	}
	return nil
}

func (s *GormRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.RevokedToken{}).Where("jti = ?", jti).Count(&count).Error
	return count > 0, err
}

// PurgeExpired drops entries whose tokens would fail expiry checks anyway.
func (s *GormRevocationStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.RevokedToken{})
	return res.RowsAffected, res.Error
}
