package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/account-lifecycle-service/internal/observability"
	"github.com/sandeepkv93/account-lifecycle-service/internal/repository"
	"github.com/sandeepkv93/account-lifecycle-service/internal/security"
)

type SessionTokens struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type TokenService struct {
	jwtMgr       *security.JWTManager
	revocations  repository.RevocationStore
	accessTTL    time.Duration
	refreshTTL   time.Duration
	storeTimeout time.Duration
}

func NewTokenService(jwtMgr *security.JWTManager, revocations repository.RevocationStore, accessTTL, refreshTTL, storeTimeout time.Duration) *TokenService {
	return &TokenService{
		jwtMgr:       jwtMgr,
		revocations:  revocations,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		storeTimeout: storeTimeout,
	}
}

func (s *TokenService) IssuePair(ctx context.Context, userID string) (*SessionTokens, error) {
	access, accessClaims, err := s.jwtMgr.SignAccessToken(userID, s.accessTTL)
	if err != nil {
		observability.RecordTokenEvent(ctx, "issue", "error")
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshClaims, err := s.jwtMgr.SignRefreshToken(userID, s.refreshTTL)
	if err != nil {
		observability.RecordTokenEvent(ctx, "issue", "error")
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	observability.RecordTokenEvent(ctx, "issue", "success")
	return &SessionTokens{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

// ValidateAccess checks signature and expiry only; access tokens are not
// tracked by the revocation list.
func (s *TokenService) ValidateAccess(raw string) (*security.Claims, error) {
	claims, err := s.jwtMgr.ParseAccessToken(raw)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseRefresh validates a refresh token and checks it against the revocation
// list on every call.
func (s *TokenService) ParseRefresh(ctx context.Context, raw string) (*security.Claims, error) {
	claims, err := s.jwtMgr.ParseRefreshToken(raw)
	if err != nil {
		return nil, ErrInvalidToken
	}
	sctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()
	revoked, err := s.revocations.IsRevoked(sctx, claims.ID)
	if err != nil {
		return nil, unavailable("check revocation", err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Revoke adds the token to the revocation list. Only the first of several
// concurrent revocations of one token succeeds.
func (s *TokenService) Revoke(ctx context.Context, claims *security.Claims) error {
	sctx, cancel := storeContext(ctx, s.storeTimeout)
	defer cancel()
	err := s.revocations.Revoke(sctx, claims.ID, claims.Subject, claims.ExpiresAt.Time)
	if errors.Is(err, repository.ErrAlreadyRevoked) {
		observability.RecordTokenEvent(ctx, "revoke", "replayed")
		return ErrInvalidToken
	}
	if err != nil {
		observability.RecordTokenEvent(ctx, "revoke", "error")
		return unavailable("revoke token", err)
	}
	observability.RecordTokenEvent(ctx, "revoke", "success")
	return nil
}

// Rotate revokes the presented refresh token and issues a fresh pair.
func (s *TokenService) Rotate(ctx context.Context, claims *security.Claims) (*SessionTokens, error) {
	if err := s.Revoke(ctx, claims); err != nil {
		return nil, err
	}
	return s.IssuePair(ctx, claims.Subject)
}
