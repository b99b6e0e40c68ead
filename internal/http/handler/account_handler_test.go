package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/account-lifecycle-service/internal/domain"
	"github.com/sandeepkv93/account-lifecycle-service/internal/http/middleware"
	"github.com/sandeepkv93/account-lifecycle-service/internal/security"
	"github.com/sandeepkv93/account-lifecycle-service/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type stubAccountService struct {
	registerFn     func(req service.RegisterRequest) (*domain.User, error)
	verifyFn       func(code string) (service.VerifyOutcome, error)
	resendFn       func(email string) error
	authenticateFn func(email, password string) (*service.LoginResult, error)
	refreshFn      func(token string) (*service.SessionTokens, error)
	resetFn        func(email string) error
	validateFn     func(uidb64, token string) (service.ResetLinkStatus, error)
	setPasswordFn  func(req service.SetNewPasswordRequest) error
	logoutFn       func(principalID, token string) error
	currentUserFn  func(userID string) (*domain.User, error)
}

func (s *stubAccountService) Register(_ context.Context, req service.RegisterRequest) (*domain.User, error) {
	if s.registerFn != nil {
		return s.registerFn(req)
	}
	return nil, errors.New("not implemented")
}

func (s *stubAccountService) VerifyEmail(_ context.Context, code string) (service.VerifyOutcome, error) {
	if s.verifyFn != nil {
		return s.verifyFn(code)
	}
	return service.VerifyNotFound, nil
}

func (s *stubAccountService) ResendVerification(_ context.Context, email string) error {
	if s.resendFn != nil {
		return s.resendFn(email)
	}
	return nil
}

func (s *stubAccountService) Authenticate(_ context.Context, email, password string) (*service.LoginResult, error) {
	if s.authenticateFn != nil {
		return s.authenticateFn(email, password)
	}
	return nil, errors.New("not implemented")
}

func (s *stubAccountService) Refresh(_ context.Context, token string) (*service.SessionTokens, error) {
	if s.refreshFn != nil {
		return s.refreshFn(token)
	}
	return nil, errors.New("not implemented")
}

func (s *stubAccountService) RequestPasswordReset(_ context.Context, email string) error {
	if s.resetFn != nil {
		return s.resetFn(email)
	}
	return nil
}

func (s *stubAccountService) ValidateResetLink(_ context.Context, uidb64, token string) (service.ResetLinkStatus, error) {
	if s.validateFn != nil {
		return s.validateFn(uidb64, token)
	}
	return service.ResetLinkInvalid, nil
}

func (s *stubAccountService) SetNewPassword(_ context.Context, req service.SetNewPasswordRequest) error {
	if s.setPasswordFn != nil {
		return s.setPasswordFn(req)
	}
	return nil
}

func (s *stubAccountService) Logout(_ context.Context, principalID, token string) error {
	if s.logoutFn != nil {
		return s.logoutFn(principalID, token)
	}
	return nil
}

func (s *stubAccountService) CurrentUser(_ context.Context, userID string) (*domain.User, error) {
	if s.currentUserFn != nil {
		return s.currentUserFn(userID)
	}
	return nil, service.ErrAccountNotFound
}

func doJSON(t *testing.T, h http.HandlerFunc, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr, decodeEnvelope(t, rr)
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if rr.Body.Len() == 0 {
		return env
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %q: %v", rr.Body.String(), err)
	}
	return env
}

func withClaims(req *http.Request, subject string) *http.Request {
	claims := &security.Claims{TokenType: "access"}
	claims.Subject = subject
	return req.WithContext(context.WithValue(req.Context(), middleware.ClaimsContextKey, claims))
}

func TestAccountHandlerRegister(t *testing.T) {
	var got service.RegisterRequest
	h := NewAccountHandler(&stubAccountService{
		registerFn: func(req service.RegisterRequest) (*domain.User, error) {
			got = req
			return &domain.User{ID: "u-1", Email: req.Email, FirstName: req.FirstName, LastName: req.LastName, PasswordHash: "secret-hash"}, nil
		},
	}, nil)

	rr, env := doJSON(t, h.Register, http.MethodPost, "/api/v1/auth/register",
		`{"email":"a@example.com","first_name":"Ada","last_name":"Lovelace","password":"secret1","password2":"secret1"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	if env.Message != msgRegistered || !env.Success {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if got.Password2 != "secret1" || got.FirstName != "Ada" {
		t.Fatalf("request not decoded: %+v", got)
	}
	if strings.Contains(rr.Body.String(), "secret-hash") {
		t.Fatal("password hash leaked into response")
	}
	var user map[string]any
	if err := json.Unmarshal(env.Data, &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user["id"] != "u-1" || user["is_verified"] != false {
		t.Fatalf("unexpected user payload %v", user)
	}
}

func TestAccountHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
		wantMsg  string
	}{
		{"validation", service.ErrPasswordMismatch, http.StatusBadRequest, "VALIDATION_ERROR", "Passwords do not match"},
		{"conflict", service.ErrEmailTaken, http.StatusConflict, "CONFLICT", "user with this email already exists"},
		{"authentication", service.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials, try again"},
		{"not verified", service.ErrAccountNotVerified, http.StatusUnauthorized, "UNAUTHORIZED", "Account is not verified"},
		{"not found", service.ErrAccountNotFound, http.StatusNotFound, "NOT_FOUND", "user not found"},
		{"token", service.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"},
		{"unavailable", fmt.Errorf("find user: %w: %w", service.ErrUnavailable, context.DeadlineExceeded), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service temporarily unavailable"},
		{"internal", errors.New("boom: dial tcp 10.0.0.5"), http.StatusInternalServerError, "INTERNAL", "internal server error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAccountHandler(&stubAccountService{
				authenticateFn: func(string, string) (*service.LoginResult, error) { return nil, tc.err },
			}, nil)
			rr, env := doJSON(t, h.Login, http.MethodPost, "/api/v1/auth/login", `{"email":"a@example.com","password":"x"}`)
			if rr.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rr.Code)
			}
			if env.Error == nil || env.Error.Code != tc.wantErr || env.Error.Message != tc.wantMsg {
				t.Fatalf("unexpected error envelope %+v", env.Error)
			}
			if strings.Contains(rr.Body.String(), "10.0.0.5") {
				t.Fatal("internal error text leaked")
			}
		})
	}
}

func TestAccountHandlerValidationErrorCarriesField(t *testing.T) {
	h := NewAccountHandler(&stubAccountService{
		resetFn: func(string) error { return service.ErrUnknownResetEmail },
	}, nil)
	rr, env := doJSON(t, h.RequestPasswordReset, http.MethodPost, "/api/v1/auth/password-reset", `{"email":"nobody@example.com"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if env.Error == nil || env.Error.Details["field"] != "email" {
		t.Fatalf("expected field detail, got %+v", env.Error)
	}
}

func TestAccountHandlerMalformedJSON(t *testing.T) {
	called := false
	h := NewAccountHandler(&stubAccountService{
		registerFn: func(service.RegisterRequest) (*domain.User, error) {
			called = true
			return nil, nil
		},
	}, nil)
	rr, env := doJSON(t, h.Register, http.MethodPost, "/api/v1/auth/register", `{"email":`)
	if rr.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "BAD_REQUEST" {
		t.Fatalf("expected bad request, got %d %+v", rr.Code, env.Error)
	}
	if called {
		t.Fatal("service must not be called for malformed body")
	}
}

func TestAccountHandlerVerifyEmailOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		outcome  service.VerifyOutcome
		wantCode int
		wantMsg  string
	}{
		{"verified", service.VerifyVerified, http.StatusOK, msgEmailVerified},
		{"already verified", service.VerifyAlreadyVerified, http.StatusNoContent, ""},
		{"not found", service.VerifyNotFound, http.StatusNotFound, msgInvalidCode},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			h := NewAccountHandler(&stubAccountService{
				verifyFn: func(code string) (service.VerifyOutcome, error) {
					seen = code
					return tc.outcome, nil
				},
			}, nil)
			rr, env := doJSON(t, h.VerifyEmail, http.MethodPost, "/api/v1/auth/verify-email", `{"otp_code":"123456"}`)
			if rr.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rr.Code)
			}
			if seen != "123456" {
				t.Fatalf("expected code forwarded, got %q", seen)
			}
			switch {
			case tc.wantCode == http.StatusNoContent:
				if rr.Body.Len() != 0 {
					t.Fatalf("expected empty body, got %q", rr.Body.String())
				}
			case env.Error != nil:
				if env.Error.Message != tc.wantMsg {
					t.Fatalf("expected %q, got %q", tc.wantMsg, env.Error.Message)
				}
			default:
				if env.Message != tc.wantMsg {
					t.Fatalf("expected %q, got %q", tc.wantMsg, env.Message)
				}
			}
		})
	}
}

func TestAccountHandlerVerifyEmailStoreFailure(t *testing.T) {
	h := NewAccountHandler(&stubAccountService{
		verifyFn: func(string) (service.VerifyOutcome, error) {
			return service.VerifyNotFound, fmt.Errorf("consume: %w", service.ErrUnavailable)
		},
	}, nil)
	rr, _ := doJSON(t, h.VerifyEmail, http.MethodPost, "/api/v1/auth/verify-email", `{"otp_code":"123456"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestAccountHandlerLoginReturnsTokens(t *testing.T) {
	h := NewAccountHandler(&stubAccountService{
		authenticateFn: func(email, password string) (*service.LoginResult, error) {
			if email != "a@example.com" || password != "secret1" {
				t.Fatalf("unexpected credentials %q %q", email, password)
			}
			return &service.LoginResult{Email: email, FullName: "Ada Lovelace", AccessToken: "acc", RefreshToken: "ref", AccessExpiresAt: time.Now().Add(time.Minute)}, nil
		},
	}, nil)
	rr, env := doJSON(t, h.Login, http.MethodPost, "/api/v1/auth/login", `{"email":"a@example.com","password":"secret1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var data map[string]any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["access_token"] != "acc" || data["refresh_token"] != "ref" || data["full_name"] != "Ada Lovelace" {
		t.Fatalf("unexpected login payload %v", data)
	}
}

func TestAccountHandlerRefresh(t *testing.T) {
	h := NewAccountHandler(&stubAccountService{
		refreshFn: func(token string) (*service.SessionTokens, error) {
			if token != "old" {
				return nil, service.ErrInvalidToken
			}
			return &service.SessionTokens{AccessToken: "a2", RefreshToken: "r2"}, nil
		},
	}, nil)
	rr, env := doJSON(t, h.Refresh, http.MethodPost, "/api/v1/auth/token/refresh", `{"refresh":"old"}`)
	if rr.Code != http.StatusOK || !strings.Contains(string(env.Data), `"refresh_token":"r2"`) {
		t.Fatalf("unexpected refresh response %d %s", rr.Code, rr.Body.String())
	}
	rr, _ = doJSON(t, h.Refresh, http.MethodPost, "/api/v1/auth/token/refresh", `{"refresh":"other"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for rejected refresh, got %d", rr.Code)
	}
}

func TestAccountHandlerValidateResetLinkUsesPathParams(t *testing.T) {
	h := NewAccountHandler(&stubAccountService{
		validateFn: func(uidb64, token string) (service.ResetLinkStatus, error) {
			if uidb64 == "dWlk" && token == "good" {
				return service.ResetLinkValid, nil
			}
			return service.ResetLinkInvalid, nil
		},
	}, nil)
	r := chi.NewRouter()
	r.Get("/password-reset-confirm/{uidb64}/{token}", h.ValidateResetLink)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/password-reset-confirm/dWlk/good", nil))
	env := decodeEnvelope(t, rr)
	if rr.Code != http.StatusOK || env.Message != msgResetLinkValid {
		t.Fatalf("expected valid link, got %d %s", rr.Code, rr.Body.String())
	}
	var data map[string]string
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["uid64"] != "dWlk" || data["token"] != "good" {
		t.Fatalf("unexpected link payload %v", data)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/password-reset-confirm/dWlk/bad", nil))
	env = decodeEnvelope(t, rr)
	if rr.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "INVALID_RESET_LINK" {
		t.Fatalf("expected invalid link, got %d %s", rr.Code, rr.Body.String())
	}
	if env.Error.Message != "Token is invalid or expired" {
		t.Fatalf("unexpected invalid link message %q", env.Error.Message)
	}
}

func TestAccountHandlerSetNewPassword(t *testing.T) {
	var got service.SetNewPasswordRequest
	h := NewAccountHandler(&stubAccountService{
		setPasswordFn: func(req service.SetNewPasswordRequest) error {
			got = req
			if req.Token == "stale" {
				return service.ErrInvalidResetLink
			}
			return nil
		},
	}, nil)
	rr, env := doJSON(t, h.SetNewPassword, http.MethodPatch, "/api/v1/auth/set-new-password",
		`{"password":"newpass1","confirm_password":"newpass1","uidb64":"dWlk","token":"good"}`)
	if rr.Code != http.StatusOK || env.Message != msgPasswordReset {
		t.Fatalf("expected success, got %d %s", rr.Code, rr.Body.String())
	}
	if got.ConfirmPassword != "newpass1" || got.UIDB64 != "dWlk" {
		t.Fatalf("request not decoded: %+v", got)
	}
	rr, env = doJSON(t, h.SetNewPassword, http.MethodPatch, "/api/v1/auth/set-new-password",
		`{"password":"newpass1","confirm_password":"newpass1","uidb64":"dWlk","token":"stale"}`)
	if rr.Code != http.StatusBadRequest || env.Error == nil || env.Error.Message != "Invalid reset link" {
		t.Fatalf("expected invalid reset link, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestAccountHandlerLogout(t *testing.T) {
	var principal, token string
	h := NewAccountHandler(&stubAccountService{
		logoutFn: func(p, tok string) error {
			principal, token = p, tok
			return nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", bytes.NewBufferString(`{"refresh_token":"ref"}`))
	rr := httptest.NewRecorder()
	h.Logout(rr, withClaims(req, "u-1"))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if principal != "u-1" || token != "ref" {
		t.Fatalf("unexpected logout args %q %q", principal, token)
	}

	rr = httptest.NewRecorder()
	h.Logout(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", bytes.NewBufferString(`{}`)))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without claims, got %d", rr.Code)
	}
}

func TestAccountHandlerMe(t *testing.T) {
	h := NewAccountHandler(&stubAccountService{
		currentUserFn: func(userID string) (*domain.User, error) {
			if userID != "u-1" {
				return nil, service.ErrAccountNotFound
			}
			return &domain.User{ID: "u-1", Email: "a@example.com"}, nil
		},
	}, nil)

	rr := httptest.NewRecorder()
	h.Me(rr, withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), "u-1"))
	env := decodeEnvelope(t, rr)
	if rr.Code != http.StatusOK || !strings.Contains(string(env.Data), `"msg":"Authenticated"`) {
		t.Fatalf("unexpected me response %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.Me(rr, withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), "gone"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted user, got %d", rr.Code)
	}
}
