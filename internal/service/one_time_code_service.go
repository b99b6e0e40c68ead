package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/sandeepkv93/account-lifecycle-service/internal/domain"
	"github.com/sandeepkv93/account-lifecycle-service/internal/repository"
	"github.com/sandeepkv93/account-lifecycle-service/internal/security"
)

const codeRetryDelay = 5 * time.Millisecond

type CodeGenerator func(length int) (string, error)

type OneTimeCodeService struct {
	repo         repository.OneTimeCodeRepository
	length       int
	ttl          time.Duration
	maxAttempts  int
	storeTimeout time.Duration
	generate     CodeGenerator
	now          func() time.Time
}

func NewOneTimeCodeService(repo repository.OneTimeCodeRepository, length int, ttl time.Duration, maxAttempts int, storeTimeout time.Duration) *OneTimeCodeService {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &OneTimeCodeService{
		repo:         repo,
		length:       length,
		ttl:          ttl,
		maxAttempts:  maxAttempts,
		storeTimeout: storeTimeout,
		generate:     security.NewNumericCode,
		now:          time.Now,
	}
}

// Issue replaces any outstanding code for the user with a fresh one. Collisions
// with another user's live code are retried with a new candidate.
func (s *OneTimeCodeService) Issue(ctx context.Context, userID string) (string, error) {
	var code string
	// #nosec G115 -- maxAttempts is validated positive.
	backoff := retry.WithMaxRetries(uint64(s.maxAttempts-1), retry.NewConstant(codeRetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		candidate, err := s.generate(s.length)
		if err != nil {
			return err
		}
		sctx, cancel := storeContext(ctx, s.storeTimeout)
		defer cancel()
		err = s.repo.Replace(sctx, &domain.OneTimePassword{
			UserID:    userID,
			Code:      candidate,
			ExpiresAt: s.now().UTC().Add(s.ttl),
		})
		if errors.Is(err, repository.ErrDuplicateCode) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		code = candidate
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateCode) {
			return "", unavailable("issue code", fmt.Errorf("no free code after %d attempts: %w", s.maxAttempts, err))
		}
		return "", unavailable("issue code", err)
	}
	return code, nil
}

func (s *OneTimeCodeService) Lookup(ctx context.Context, code string) (*domain.OneTimePassword, error) {
	sctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()
	return s.repo.FindActive(sctx, code, s.now().UTC())
}

// Redeem consumes the code and verifies its owner atomically. Losing a
// concurrent race reports repository.ErrCodeNotFound.
func (s *OneTimeCodeService) Redeem(ctx context.Context, code string) (repository.Redemption, error) {
	sctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()
	return s.repo.Redeem(sctx, code, s.now().UTC())
}

func (s *OneTimeCodeService) Length() int { return s.length }
