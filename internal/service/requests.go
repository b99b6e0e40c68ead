package service

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/sandeepkv93/account-lifecycle-service/internal/domain"
)

const (
	minPasswordLen         = 6
	maxRegisterPasswordLen = 68
	maxResetPasswordLen    = 100
	maxNameLen             = 255
)

type RegisterRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

func (r RegisterRequest) normalized() RegisterRequest {
	r.Email = domain.NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	return r
}

// Validate checks shape only; uniqueness is decided by the store.
func (r RegisterRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.FirstName == "" || utf8.RuneCountInString(r.FirstName) > maxNameLen {
		return validationError("first_name", "first name is required")
	}
	if r.LastName == "" || utf8.RuneCountInString(r.LastName) > maxNameLen {
		return validationError("last_name", "last name is required")
	}
	if err := validatePasswordLength(r.Password, maxRegisterPasswordLen); err != nil {
		return err
	}
	if r.Password != r.Password2 {
		return ErrPasswordMismatch
	}
	return nil
}

type SetNewPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	UIDB64          string `json:"uidb64"`
	Token           string `json:"token"`
}

func (r SetNewPasswordRequest) Validate() error {
	if err := validatePasswordLength(r.Password, maxResetPasswordLen); err != nil {
		return err
	}
	if r.Password != r.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if strings.TrimSpace(r.UIDB64) == "" || strings.TrimSpace(r.Token) == "" {
		return ErrInvalidResetLink
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return validationError("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || utf8.RuneCountInString(email) > 255 {
		return validationError("email", "invalid email")
	}
	return nil
}

func validatePasswordLength(password string, maxLen int) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLen || n > maxLen {
		return validationError("password", fmt.Sprintf("password must be between %d and %d characters", minPasswordLen, maxLen))
	}
	return nil
}

func isNumericCode(code string, minLen, maxLen int) bool {
	if len(code) < minLen || len(code) > maxLen {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
