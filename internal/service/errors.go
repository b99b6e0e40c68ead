package service

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindConflict       ErrorKind = "conflict"
	KindAuthentication ErrorKind = "authentication"
	KindNotFound       ErrorKind = "not_found"
	KindToken          ErrorKind = "token"
	KindUnavailable    ErrorKind = "unavailable"
	KindDelivery       ErrorKind = "delivery"
)

// Error is the classified failure returned by account operations. Message is
// safe to show to clients; Err carries the underlying cause, if any.
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrPasswordMismatch   = &Error{Kind: KindValidation, Field: "password", Message: "Passwords do not match"}
	ErrUnknownResetEmail  = &Error{Kind: KindValidation, Field: "email", Message: "User with this email does not exist"}
	ErrInvalidResetLink   = &Error{Kind: KindValidation, Message: "Invalid reset link"}
	ErrEmailTaken         = &Error{Kind: KindConflict, Field: "email", Message: "user with this email already exists"}
	ErrInvalidCredentials = &Error{Kind: KindAuthentication, Message: "Invalid credentials, try again"}
	ErrAccountNotVerified = &Error{Kind: KindAuthentication, Message: "Account is not verified"}
	ErrAccountNotFound    = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrInvalidToken       = &Error{Kind: KindToken, Message: "Token is invalid or expired"}
	ErrUnavailable        = &Error{Kind: KindUnavailable, Message: "service temporarily unavailable"}
)

func validationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// unavailable wraps an infrastructure failure so it classifies as
// KindUnavailable while keeping the cause for logs.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// KindOf classifies err. Unclassified errors report an empty kind.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// PublicMessage returns the client-safe message for a classified error.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// FieldOf returns the request field a validation error refers to.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
