package integration

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)
	const email = "reset@example.com"
	s.registerVerified(t, email)

	resp, env := s.do(t, http.MethodPost, "/api/v1/auth/password-reset", map[string]string{"email": email}, "")
	if resp.StatusCode != http.StatusOK || env.Message != "We have sent you a link to reset your password" {
		t.Fatalf("reset request failed: status=%d env=%+v", resp.StatusCode, env)
	}
	uidb64, token := s.notifier.resetLink(t, email)

	resp, env = s.do(t, http.MethodGet, "/api/v1/auth/password-reset-confirm/"+uidb64+"/"+token, nil, "")
	if resp.StatusCode != http.StatusOK || env.Message != "Token is valid" {
		t.Fatalf("validate link failed: status=%d env=%+v", resp.StatusCode, env)
	}
	var link map[string]string
	if err := json.Unmarshal(env.Data, &link); err != nil {
		t.Fatalf("decode link: %v", err)
	}
	if link["uid64"] != uidb64 || link["token"] != token {
		t.Fatalf("unexpected link echo: %+v", link)
	}

	const newPassword = "N3w#Password!"
	resp, env = s.do(t, http.MethodPatch, "/api/v1/auth/set-new-password", map[string]string{
		"password":         newPassword,
		"confirm_password": newPassword,
		"uidb64":           uidb64,
		"token":            token,
	}, "")
	if resp.StatusCode != http.StatusOK || env.Message != "Password reset successfully" {
		t.Fatalf("set new password failed: status=%d env=%+v", resp.StatusCode, env)
	}

	resp, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": email, "password": testPassword}, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected old password to fail, got %d", resp.StatusCode)
	}
	s.login(t, email, newPassword)

	resp, env = s.do(t, http.MethodGet, "/api/v1/auth/password-reset-confirm/"+uidb64+"/"+token, nil, "")
	if resp.StatusCode != http.StatusBadRequest || env.Error == nil || env.Error.Code != "INVALID_RESET_LINK" {
		t.Fatalf("expected used link to be invalid, got status=%d env=%+v", resp.StatusCode, env)
	}
	resp, _ = s.do(t, http.MethodPatch, "/api/v1/auth/set-new-password", map[string]string{
		"password":         "An0ther#Password",
		"confirm_password": "An0ther#Password",
		"uidb64":           uidb64,
		"token":            token,
	}, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected reused reset token to be rejected, got %d", resp.StatusCode)
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	s := newTestServer(t)
	resp, env := s.do(t, http.MethodPost, "/api/v1/auth/password-reset", map[string]string{"email": "ghost@example.com"}, "")
	if resp.StatusCode != http.StatusBadRequest || env.Error == nil || env.Error.Details["field"] != "email" {
		t.Fatalf("expected unknown email validation error, got status=%d env=%+v", resp.StatusCode, env)
	}

	concealed := newTestServerWithOptions(t, testServerOptions{concealUnknownReset: true})
	resp, _ = concealed.do(t, http.MethodPost, "/api/v1/auth/password-reset", map[string]string{"email": "ghost@example.com"}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected concealed unknown email to succeed, got %d", resp.StatusCode)
	}
}

func TestResetLinkRejectsTamperedParts(t *testing.T) {
	s := newTestServer(t)
	const email = "tamper@example.com"
	s.registerVerified(t, email)
	if resp, _ := s.do(t, http.MethodPost, "/api/v1/auth/password-reset", map[string]string{"email": email}, ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("reset request failed: %d", resp.StatusCode)
	}
	uidb64, token := s.notifier.resetLink(t, email)

	for name, path := range map[string]string{
		"bad uid":   "/api/v1/auth/password-reset-confirm/bm90LWEtdXNlcg/" + token,
		"bad token": "/api/v1/auth/password-reset-confirm/" + uidb64 + "/garbage-token",
	} {
		resp, env := s.do(t, http.MethodGet, path, nil, "")
		if resp.StatusCode != http.StatusBadRequest || env.Error == nil || env.Error.Code != "INVALID_RESET_LINK" {
			t.Fatalf("%s: expected invalid link, got status=%d env=%+v", name, resp.StatusCode, env)
		}
	}

	resp, env := s.do(t, http.MethodPatch, "/api/v1/auth/set-new-password", map[string]string{
		"password":         "N3w#Password!",
		"confirm_password": "Different#1",
		"uidb64":           uidb64,
		"token":            token,
	}, "")
	if resp.StatusCode != http.StatusBadRequest || env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected mismatch validation error, got status=%d env=%+v", resp.StatusCode, env)
	}
}
