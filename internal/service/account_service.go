package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/account-lifecycle-service/internal/domain"
	"github.com/sandeepkv93/account-lifecycle-service/internal/repository"
	"github.com/sandeepkv93/account-lifecycle-service/internal/security"
)

const (
	minCodeInputLen = 4
	maxCodeInputLen = 10
	dummyPassword   = "account-lifecycle-timing-equalizer"
)

type VerifyOutcome int

const (
	VerifyNotFound VerifyOutcome = iota
	VerifyVerified
	VerifyAlreadyVerified
)

func (o VerifyOutcome) String() string {
	switch o {
	case VerifyVerified:
		return "verified"
	case VerifyAlreadyVerified:
		return "already_verified"
	default:
		return "not_found"
	}
}

type ResetLinkStatus int

const (
	ResetLinkInvalid ResetLinkStatus = iota
	ResetLinkValid
)

type LoginResult struct {
	Email           string    `json:"email"`
	FullName        string    `json:"full_name"`
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

type AccountOptions struct {
	ResetBaseURL             string
	ConcealUnknownResetEmail bool
	StoreTimeout             time.Duration
}

type AccountService struct {
	users      repository.UserRepository
	codes      *OneTimeCodeService
	tokens     *TokenService
	hasher     PasswordHasher
	resetCodec ResetTokenCodec
	dispatcher Dispatcher
	opts       AccountOptions
	logger     *slog.Logger
	now        func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(
	users repository.UserRepository,
	codes *OneTimeCodeService,
	tokens *TokenService,
	hasher PasswordHasher,
	resetCodec ResetTokenCodec,
	dispatcher Dispatcher,
	opts AccountOptions,
	logger *slog.Logger,
) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		users:      users,
		codes:      codes,
		tokens:     tokens,
		hasher:     hasher,
		resetCodec: resetCodec,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Register creates an unverified account and sends it a verification code.
// Failing to issue or deliver the code does not fail registration; the user
// can ask for a new code.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	req = req.normalized()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
	}

	sctx, cancel := storeContext(ctx, s.opts.StoreTimeout)
	err = s.users.Create(sctx, user)
	cancel()
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, unavailable("create user", err)
	}

	code, err := s.codes.Issue(ctx, user.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "verification code not issued", "user_id", user.ID, "error", err)
		return user, nil
	}
	s.dispatcher.Dispatch(ctx, verificationNotification(user.ID, user.Email, user.FirstName, code))
	return user, nil
}

// VerifyEmail redeems a one-time code. Expected failures are reported through
// the outcome; errors are reserved for storage problems.
func (s *AccountService) VerifyEmail(ctx context.Context, code string) (VerifyOutcome, error) {
	code = strings.TrimSpace(code)
	if !isNumericCode(code, minCodeInputLen, maxCodeInputLen) {
		return VerifyNotFound, nil
	}
	if _, err := s.codes.Lookup(ctx, code); err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return VerifyNotFound, nil
		}
		return VerifyNotFound, unavailable("lookup code", err)
	}
	redeemed, err := s.codes.Redeem(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return VerifyNotFound, nil
		}
		return VerifyNotFound, unavailable("redeem code", err)
	}
	if !redeemed.Verified {
		return VerifyAlreadyVerified, nil
	}
	return VerifyVerified, nil
}

// ResendVerification issues a fresh code for an unverified account. Unknown
// and already verified addresses succeed silently.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	user, err := s.findByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.IsVerified {
		return nil
	}
	code, err := s.codes.Issue(ctx, user.ID)
	if err != nil {
		return err
	}
	s.dispatcher.Dispatch(ctx, verificationNotification(user.ID, user.Email, user.FirstName, code))
	return nil
}

func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, validationError("email", "email is required")
	}
	if password == "" {
		return nil, validationError("password", "password is required")
	}

	user, err := s.findByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		s.equalizeTiming(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password for user %s: %w", user.ID, err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, ErrAccountNotVerified
	}

	pair, err := s.tokens.IssuePair(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Email:           user.Email,
		FullName:        user.FullName(),
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		AccessExpiresAt: pair.AccessExpiresAt,
	}, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued for the same user.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*SessionTokens, error) {
	claims, err := s.tokens.ParseRefresh(ctx, strings.TrimSpace(refreshToken))
	if err != nil {
		return nil, err
	}
	if _, err := s.findByID(ctx, claims.Subject); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return s.tokens.Rotate(ctx, claims)
}

func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	user, err := s.findByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		if s.opts.ConcealUnknownResetEmail {
			return nil
		}
		return ErrUnknownResetEmail
	}
	if err != nil {
		return err
	}

	token, err := s.resetCodec.Make(user)
	if err != nil {
		return fmt.Errorf("make reset token: %w", err)
	}
	link, err := url.JoinPath(s.opts.ResetBaseURL, security.EncodeUID(user.ID), token)
	if err != nil {
		return fmt.Errorf("build reset link: %w", err)
	}
	s.dispatcher.Dispatch(ctx, passwordResetNotification(user.ID, user.Email, user.FirstName, link))
	return nil
}

func (s *AccountService) ValidateResetLink(ctx context.Context, uidb64, token string) (ResetLinkStatus, error) {
	user, err := s.resetLinkUser(ctx, uidb64, token)
	if errors.Is(err, ErrInvalidResetLink) {
		return ResetLinkInvalid, nil
	}
	if err != nil {
		return ResetLinkInvalid, err
	}
	s.logger.DebugContext(ctx, "reset link validated", "user_id", user.ID)
	return ResetLinkValid, nil
}

// SetNewPassword replaces the password of the user named by a valid reset
// link. Changing the hash invalidates every reset token issued before.
func (s *AccountService) SetNewPassword(ctx context.Context, req SetNewPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	user, err := s.resetLinkUser(ctx, req.UIDB64, req.Token)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	sctx, cancel := storeContext(ctx, s.opts.StoreTimeout)
	defer cancel()
	if err := s.users.UpdatePassword(sctx, user.ID, user.PasswordHash, hash, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, repository.ErrStalePassword) {
			return ErrInvalidResetLink
		}
		return unavailable("update password", err)
	}
	return nil
}

// Logout revokes a refresh token owned by the authenticated principal.
func (s *AccountService) Logout(ctx context.Context, principalID, refreshToken string) error {
	claims, err := s.tokens.ParseRefresh(ctx, strings.TrimSpace(refreshToken))
	if err != nil {
		return err
	}
	if claims.Subject != principalID {
		return ErrInvalidToken
	}
	return s.tokens.Revoke(ctx, claims)
}

func (s *AccountService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.findByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrAccountNotFound
	}
	return user, err
}

// resetLinkUser resolves the user a reset link was issued for, reporting
// every kind of bad link as ErrInvalidResetLink.
func (s *AccountService) resetLinkUser(ctx context.Context, uidb64, token string) (*domain.User, error) {
	id, err := security.DecodeUID(strings.TrimSpace(uidb64))
	if err != nil {
		return nil, ErrInvalidResetLink
	}
	user, err := s.findByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidResetLink
	}
	if err != nil {
		return nil, err
	}
	if !s.resetCodec.Check(user, strings.TrimSpace(token)) {
		return nil, ErrInvalidResetLink
	}
	return user, nil
}

func (s *AccountService) findByEmail(ctx context.Context, email string) (*domain.User, error) {
	sctx, cancel := storeContext(ctx, s.opts.StoreTimeout)
	defer cancel()
	user, err := s.users.FindByEmail(sctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, unavailable("find user by email", err)
	}
	return user, err
}

func (s *AccountService) findByID(ctx context.Context, id string) (*domain.User, error) {
	sctx, cancel := storeContext(ctx, s.opts.StoreTimeout)
	defer cancel()
	user, err := s.users.FindByID(sctx, id)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, unavailable("find user by id", err)
	}
	return user, err
}

// equalizeTiming runs a verification against a throwaway hash so that an
// unknown email costs as much as a wrong password.
func (s *AccountService) equalizeTiming(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err == nil {
			s.dummyHash = hash
		}
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}
