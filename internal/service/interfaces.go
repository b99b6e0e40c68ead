package service

//go:generate mockgen -destination=mock_interfaces_test.go -package=service . PasswordHasher

import (
	"context"

	"github.com/sandeepkv93/account-lifecycle-service/internal/domain"
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
}

type ResetTokenCodec interface {
	Make(user *domain.User) (string, error)
	Check(user *domain.User, token string) bool
}

// Dispatcher hands notifications off for delivery. It never reports delivery
// failures to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification)
}

type AccountServiceInterface interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	VerifyEmail(ctx context.Context, code string) (VerifyOutcome, error)
	ResendVerification(ctx context.Context, email string) error
	Authenticate(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*SessionTokens, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ValidateResetLink(ctx context.Context, uidb64, token string) (ResetLinkStatus, error)
	SetNewPassword(ctx context.Context, req SetNewPasswordRequest) error
	Logout(ctx context.Context, principalID, refreshToken string) error
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
}
