package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/account-lifecycle-service/internal/domain"
	"github.com/sandeepkv93/account-lifecycle-service/internal/repository"
	"github.com/sandeepkv93/account-lifecycle-service/internal/security"
)

const (
	testResetBaseURL = "http://localhost:3000/password-reset-confirm"
	testPassword     = "correct-horse"
)

type accountFixture struct {
	svc         *AccountService
	db          *gorm.DB
	users       repository.UserRepository
	codeRepo    repository.OneTimeCodeRepository
	codes       *OneTimeCodeService
	tokens      *TokenService
	jwtMgr      *security.JWTManager
	revocations *repository.GormRevocationStore
	hasher      *security.Argon2Hasher
	dispatcher  *recordingDispatcher
}

type fixtureOption func(*AccountOptions)

func withConcealedResetEmail() fixtureOption {
	return func(o *AccountOptions) { o.ConcealUnknownResetEmail = true }
}

func newAccountFixture(t *testing.T, opts ...fixtureOption) *accountFixture {
	t.Helper()
	db := newServiceDBForTest(t)
	users := repository.NewUserRepository(db)
	codeRepo := repository.NewOneTimeCodeRepository(db)
	revocations := repository.NewGormRevocationStore(db)
	jwtMgr := security.NewJWTManager("test-issuer", "test-audience", "access-secret-0123456789abcdef", "refresh-secret-0123456789abcdef")
	tokens := NewTokenService(jwtMgr, revocations, 15*time.Minute, 24*time.Hour, time.Second)
	codes := NewOneTimeCodeService(codeRepo, 6, 10*time.Minute, 5, time.Second)
	hasher := newTestHasher()
	dispatcher := &recordingDispatcher{}

	options := AccountOptions{ResetBaseURL: testResetBaseURL, StoreTimeout: time.Second}
	for _, opt := range opts {
		opt(&options)
	}
	svc := NewAccountService(users, codes, tokens, hasher, security.NewResetTokenCodec("reset-secret-0123456789abcdef", time.Hour), dispatcher, options, discardLogger())
	return &accountFixture{
		svc:         svc,
		db:          db,
		users:       users,
		codeRepo:    codeRepo,
		codes:       codes,
		tokens:      tokens,
		jwtMgr:      jwtMgr,
		revocations: revocations,
		hasher:      hasher,
		dispatcher:  dispatcher,
	}
}

func newServiceDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&domain.User{}, &domain.OneTimePassword{}, &domain.RevokedToken{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestHasher() *security.Argon2Hasher {
	return security.NewArgon2Hasher(security.Argon2Params{Time: 1, Memory: 1024, Threads: 1})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func registerRequest(email string) RegisterRequest {
	return RegisterRequest{
		Email:     email,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Password:  testPassword,
		Password2: testPassword,
	}
}

// registerVerified registers and verifies an account, returning it.
func (fx *accountFixture) registerVerified(t *testing.T, email string) *domain.User {
	t.Helper()
	user, err := fx.svc.Register(context.Background(), registerRequest(email))
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	outcome, err := fx.svc.VerifyEmail(context.Background(), fx.dispatcher.lastCode(t, user.Email))
	if err != nil || outcome != VerifyVerified {
		t.Fatalf("verify %s: outcome=%v err=%v", email, outcome, err)
	}
	return user
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []Notification
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
}

func (d *recordingDispatcher) count(kind NotificationKind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.sent {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

func (d *recordingDispatcher) last(t *testing.T, kind NotificationKind, to string) Notification {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.sent) - 1; i >= 0; i-- {
		if d.sent[i].Kind == kind && d.sent[i].To == to {
			return d.sent[i]
		}
	}
	t.Fatalf("no %s notification for %s", kind, to)
	return Notification{}
}

func (d *recordingDispatcher) lastCode(t *testing.T, to string) string {
	t.Helper()
	fields := strings.Fields(d.last(t, NotificationEmailVerification, to).Body)
	return fields[len(fields)-1]
}

// lastResetLink returns the uidb64 and token of the newest reset link sent to an address.
func (d *recordingDispatcher) lastResetLink(t *testing.T, to string) (string, string) {
	t.Helper()
	body := d.last(t, NotificationPasswordReset, to).Body
	lines := strings.Split(body, "\n")
	link := lines[len(lines)-1]
	rest, ok := strings.CutPrefix(link, testResetBaseURL+"/")
	if !ok {
		t.Fatalf("unexpected reset link %q", link)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		t.Fatalf("unexpected reset link path %q", rest)
	}
	return parts[0], parts[1]
}

type tNop struct{}

func (tNop) Errorf(string, ...any) {}
func (tNop) Fatalf(string, ...any) {}
func (tNop) Helper()               {}
