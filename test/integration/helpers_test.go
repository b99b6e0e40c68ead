package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/account-lifecycle-service/internal/database"
	"github.com/sandeepkv93/account-lifecycle-service/internal/health"
	"github.com/sandeepkv93/account-lifecycle-service/internal/http/handler"
	"github.com/sandeepkv93/account-lifecycle-service/internal/http/router"
	"github.com/sandeepkv93/account-lifecycle-service/internal/observability"
	"github.com/sandeepkv93/account-lifecycle-service/internal/repository"
	"github.com/sandeepkv93/account-lifecycle-service/internal/security"
	"github.com/sandeepkv93/account-lifecycle-service/internal/service"
)

const testPassword = "Valid#Pass1234"

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// captureNotifier keeps the last notification per recipient and kind.
type captureNotifier struct {
	mu   sync.Mutex
	last map[string]service.Notification
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{last: map[string]service.Notification{}}
}

func (n *captureNotifier) Send(_ context.Context, notification service.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last[notification.To+"|"+string(notification.Kind)] = notification
	return nil
}

func (n *captureNotifier) lastFor(t *testing.T, email string, kind service.NotificationKind) service.Notification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	notification, ok := n.last[email+"|"+string(kind)]
	if !ok {
		t.Fatalf("no %s notification for %s", kind, email)
	}
	return notification
}

func (n *captureNotifier) verificationCode(t *testing.T, email string) string {
	t.Helper()
	body := n.lastFor(t, email, service.NotificationEmailVerification).Body
	const marker = "verification code is "
	idx := strings.LastIndex(body, marker)
	if idx < 0 {
		t.Fatalf("verification body has no code: %q", body)
	}
	return strings.TrimSpace(body[idx+len(marker):])
}

// resetLink returns the uidb64 and token segments of the last reset link.
func (n *captureNotifier) resetLink(t *testing.T, email string) (string, string) {
	t.Helper()
	body := n.lastFor(t, email, service.NotificationPasswordReset).Body
	lines := strings.Split(strings.TrimSpace(body), "\n")
	link := strings.TrimSuffix(lines[len(lines)-1], "/")
	parts := strings.Split(link, "/")
	if len(parts) < 2 {
		t.Fatalf("malformed reset link: %q", link)
	}
	return parts[len(parts)-2], parts[len(parts)-1]
}

type testServerOptions struct {
	authRateLimitPerMin int
	concealUnknownReset bool
	accessTTL           time.Duration
}

type testServer struct {
	baseURL  string
	client   *http.Client
	notifier *captureNotifier
	db       *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithOptions(t, testServerOptions{})
}

func newTestServerWithOptions(t *testing.T, opts testServerOptions) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return newTestServerOnDB(t, db, opts)
}

func newTestServerOnDB(t *testing.T, db *gorm.DB, opts testServerOptions) *testServer {
	t.Helper()
	accessTTL := opts.accessTTL
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	authRPM := opts.authRateLimitPerMin
	if authRPM == 0 {
		authRPM = 1000
	}

	log := observability.NewLogger()
	jwtMgr := security.NewJWTManager(
		"iss",
		"aud",
		"abcdefghijklmnopqrstuvwxyz123456",
		"abcdefghijklmnopqrstuvwxyz654321",
	)
	codes := service.NewOneTimeCodeService(repository.NewOneTimeCodeRepository(db), 6, 15*time.Minute, 5, 2*time.Second)
	tokens := service.NewTokenService(jwtMgr, repository.NewGormRevocationStore(db), accessTTL, 24*time.Hour, 2*time.Second)
	hasher := security.NewArgon2Hasher(security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1})
	resetCodec := security.NewResetTokenCodec("reset-secret-abcdefghijklmnopqrstuvwxyz", time.Hour)
	notifier := newCaptureNotifier()
	dispatcher := service.NewInlineDispatcher(notifier, time.Second, log)
	accounts := service.NewAccountService(
		repository.NewUserRepository(db),
		codes,
		tokens,
		hasher,
		resetCodec,
		dispatcher,
		service.AccountOptions{
			ResetBaseURL:             "http://localhost:3000/password-reset-confirm",
			ConcealUnknownResetEmail: opts.concealUnknownReset,
			StoreTimeout:             2 * time.Second,
		},
		log,
	)

	h := router.NewRouter(router.Dependencies{
		AccountHandler:   handler.NewAccountHandler(accounts, log),
		AccessTokens:     jwtMgr,
		AuthRateLimitRPM: authRPM,
		APIRateLimitRPM:  10000,
		Readiness:        health.NewProbeRunner(time.Second, 0, health.NewDBChecker(db)),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testServer{baseURL: srv.URL, client: srv.Client(), notifier: notifier, db: db}
}

func (s *testServer) do(t *testing.T, method, path string, body any, bearer string) (*http.Response, apiEnvelope) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode %s %s (status %d): %v", method, path, resp.StatusCode, err)
		}
	}
	return resp, env
}

func (s *testServer) register(t *testing.T, email string) {
	t.Helper()
	resp, env := s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":      email,
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"password":   testPassword,
		"password2":  testPassword,
	}, "")
	if resp.StatusCode != http.StatusCreated || !env.Success {
		t.Fatalf("register %s: status=%d env=%+v", email, resp.StatusCode, env)
	}
}

func (s *testServer) registerVerified(t *testing.T, email string) {
	t.Helper()
	s.register(t, email)
	code := s.notifier.verificationCode(t, email)
	resp, _ := s.do(t, http.MethodPost, "/api/v1/auth/verify-email", map[string]string{"otp_code": code}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify %s: status=%d", email, resp.StatusCode)
	}
}

func (s *testServer) login(t *testing.T, email, password string) service.LoginResult {
	t.Helper()
	resp, env := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("login %s: status=%d env=%+v", email, resp.StatusCode, env)
	}
	var result service.LoginResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode login result: %v", err)
	}
	return result
}
