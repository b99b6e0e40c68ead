package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/account-lifecycle-service/internal/http/middleware"
	"github.com/sandeepkv93/account-lifecycle-service/internal/http/response"
	"github.com/sandeepkv93/account-lifecycle-service/internal/observability"
	"github.com/sandeepkv93/account-lifecycle-service/internal/service"
)

const (
	msgRegistered       = "User Created Successfully. Check your email to verify your account"
	msgEmailVerified    = "Email Verified Successfully"
	msgInvalidCode      = "Invalid code"
	msgCodeResent       = "If the account exists and is not verified, a new code has been sent"
	msgResetLinkSent    = "We have sent you a link to reset your password"
	msgResetLinkValid   = "Token is valid"
	msgResetLinkInvalid = "Token is invalid or expired"
	msgPasswordReset    = "Password reset successfully"
)

type AccountHandler struct {
	accounts service.AccountServiceInterface
	logger   *slog.Logger
}

func NewAccountHandler(accounts service.AccountServiceInterface, logger *slog.Logger) *AccountHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountHandler{accounts: accounts, logger: logger}
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() { h.finish(r, "register", outcome, start) }()

	var body service.RegisterRequest
	if !decodeJSON(w, r, &body) {
		outcome = "bad_request"
		return
	}
	user, err := h.accounts.Register(r.Context(), body)
	if err != nil {
		outcome = outcomeFor(err)
		h.audit(r, "auth.register", "", outcome, service.FieldOf(err))
		h.writeError(w, r, err)
		return
	}
	h.audit(r, "auth.register", user.ID, outcome, "")
	response.Message(w, r, http.StatusCreated, msgRegistered, user)
}

func (h *AccountHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() { h.finish(r, "verify_email", outcome, start) }()

	var body struct {
		OTPCode string `json:"otp_code"`
	}
	if !decodeJSON(w, r, &body) {
		outcome = "bad_request"
		return
	}
	result, err := h.accounts.VerifyEmail(r.Context(), body.OTPCode)
	if err != nil {
		outcome = outcomeFor(err)
		h.writeError(w, r, err)
		return
	}
	outcome = result.String()
	h.audit(r, "auth.email.verify", "", outcome, "")
	switch result {
	case service.VerifyVerified:
		response.Message(w, r, http.StatusOK, msgEmailVerified, nil)
	case service.VerifyAlreadyVerified:
		response.NoContent(w)
	default:
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", msgInvalidCode, nil)
	}
}

func (h *AccountHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() { h.finish(r, "resend_verification", outcome, start) }()

	var body struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &body) {
		outcome = "bad_request"
		return
	}
	if err := h.accounts.ResendVerification(r.Context(), body.Email); err != nil {
		outcome = outcomeFor(err)
		h.writeError(w, r, err)
		return
	}
	response.Message(w, r, http.StatusOK, msgCodeResent, nil)
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() { h.finish(r, "login", outcome, start) }()

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &body) {
		outcome = "bad_request"
		return
	}
	result, err := h.accounts.Authenticate(r.Context(), body.Email, body.Password)
	if err != nil {
		outcome = outcomeFor(err)
		reason := ""
		if errors.Is(err, service.ErrAccountNotVerified) {
			reason = "not_verified"
		}
		h.audit(r, "auth.login", "", outcome, reason)
		h.writeError(w, r, err)
		return
	}
	h.audit(r, "auth.login", "", outcome, "")
	response.JSON(w, r, http.StatusOK, result)
}

func (h *AccountHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() { h.finish(r, "refresh", outcome, start) }()

	var body struct {
		Refresh string `json:"refresh"`
	}
	if !decodeJSON(w, r, &body) {
		outcome = "bad_request"
		return
	}
	pair, err := h.accounts.Refresh(r.Context(), body.Refresh)
	if err != nil {
		outcome = outcomeFor(err)
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, pair)
}

func (h *AccountHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() { h.finish(r, "password_reset_request", outcome, start) }()

	var body struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &body) {
		outcome = "bad_request"
		return
	}
	if err := h.accounts.RequestPasswordReset(r.Context(), body.Email); err != nil {
		outcome = outcomeFor(err)
		h.audit(r, "auth.password.reset.request", "", outcome, "")
		h.writeError(w, r, err)
		return
	}
	h.audit(r, "auth.password.reset.request", "", outcome, "")
	response.Message(w, r, http.StatusOK, msgResetLinkSent, nil)
}

func (h *AccountHandler) ValidateResetLink(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() { h.finish(r, "password_reset_validate", outcome, start) }()

	uidb64 := chi.URLParam(r, "uidb64")
	token := chi.URLParam(r, "token")
	status, err := h.accounts.ValidateResetLink(r.Context(), uidb64, token)
	if err != nil {
		outcome = outcomeFor(err)
		h.writeError(w, r, err)
		return
	}
	if status != service.ResetLinkValid {
		outcome = "invalid"
		response.Error(w, r, http.StatusBadRequest, "INVALID_RESET_LINK", msgResetLinkInvalid, nil)
		return
	}
	response.Message(w, r, http.StatusOK, msgResetLinkValid, map[string]string{"uid64": uidb64, "token": token})
}

func (h *AccountHandler) SetNewPassword(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() { h.finish(r, "set_new_password", outcome, start) }()

	var body service.SetNewPasswordRequest
	if !decodeJSON(w, r, &body) {
		outcome = "bad_request"
		return
	}
	if err := h.accounts.SetNewPassword(r.Context(), body); err != nil {
		outcome = outcomeFor(err)
		h.audit(r, "auth.password.reset", "", outcome, "")
		h.writeError(w, r, err)
		return
	}
	h.audit(r, "auth.password.reset", "", outcome, "")
	response.Message(w, r, http.StatusOK, msgPasswordReset, nil)
}

func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "success"
	defer func() { h.finish(r, "logout", outcome, start) }()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		outcome = "unauthenticated"
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication credentials were not provided", nil)
		return
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeJSON(w, r, &body) {
		outcome = "bad_request"
		return
	}
	if err := h.accounts.Logout(r.Context(), claims.Subject, body.RefreshToken); err != nil {
		outcome = outcomeFor(err)
		h.audit(r, "auth.logout", claims.Subject, outcome, "")
		h.writeError(w, r, err)
		return
	}
	h.audit(r, "auth.logout", claims.Subject, outcome, "")
	response.NoContent(w)
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication credentials were not provided", nil)
		return
	}
	user, err := h.accounts.CurrentUser(r.Context(), claims.Subject)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"msg": "Authenticated", "user": user})
}

// writeError maps a classified service error onto the response envelope.
// Unclassified errors are logged and reported as a generic 500.
func (h *AccountHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var details map[string]any
	if field := service.FieldOf(err); field != "" {
		details = map[string]any{"field": field}
	}
	switch service.KindOf(err) {
	case service.KindValidation:
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", service.PublicMessage(err), details)
	case service.KindConflict:
		response.Error(w, r, http.StatusConflict, "CONFLICT", service.PublicMessage(err), details)
	case service.KindAuthentication:
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", service.PublicMessage(err), nil)
	case service.KindNotFound:
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", service.PublicMessage(err), nil)
	case service.KindToken:
		response.Error(w, r, http.StatusUnauthorized, "INVALID_TOKEN", service.PublicMessage(err), nil)
	case service.KindUnavailable:
		h.logger.WarnContext(r.Context(), "account store unavailable", "path", r.URL.Path, "error", err)
		response.Error(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service temporarily unavailable", nil)
	default:
		h.logger.ErrorContext(r.Context(), "account request failed", "path", r.URL.Path, "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}

func (h *AccountHandler) finish(r *http.Request, flow, outcome string, start time.Time) {
	status := "success"
	if !succeeded(outcome) {
		status = "failure"
	}
	observability.RecordAuthRequestDuration(r.Context(), flow, status, time.Since(start))
	observability.RecordAccountFlowEvent(r.Context(), flow, outcome)
}

func (h *AccountHandler) audit(r *http.Request, event, actorID, outcome, reason string) {
	suffix := ".success"
	if !succeeded(outcome) {
		suffix = ".failed"
	}
	observability.Audit(r, observability.AuditInput{
		EventName:   event + suffix,
		ActorUserID: actorID,
		TargetType:  "user",
		Action:      event,
		Outcome:     outcome,
		Reason:      reason,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return false
	}
	return true
}

func succeeded(outcome string) bool {
	switch outcome {
	case "success", service.VerifyVerified.String(), service.VerifyAlreadyVerified.String():
		return true
	}
	return false
}

func outcomeFor(err error) string {
	if kind := service.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
