package service

//go:generate mockgen -source=notifier.go -destination=mock_notifier_test.go -package=service -self_package=github.com/sandeepkv93/account-lifecycle-service/internal/service

import (
	"context"
	"log/slog"
)

type NotificationKind string

const (
	NotificationEmailVerification NotificationKind = "email_verification"
	NotificationPasswordReset     NotificationKind = "password_reset"
)

type Notification struct {
	UserID  string
	To      string
	Subject string
	Body    string
	Kind    NotificationKind
}

type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log instead of delivering them.
// Bodies carry codes and reset links, so it is meant for local development.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, notification Notification) error {
	n.logger.InfoContext(ctx, "notification issued",
		"kind", string(notification.Kind),
		"user_id", notification.UserID,
		"email", notification.To,
		"subject", notification.Subject,
		"body", notification.Body,
	)
	return nil
}

func verificationNotification(userID, email, firstName, code string) Notification {
	return Notification{
		UserID:  userID,
		To:      email,
		Subject: "Verify your email",
		Body:    "Hello " + firstName + ",\nYour verification code is " + code,
		Kind:    NotificationEmailVerification,
	}
}

func passwordResetNotification(userID, email, firstName, link string) Notification {
	return Notification{
		UserID:  userID,
		To:      email,
		Subject: "Reset your password",
		Body:    "Hello " + firstName + ",\nUse the link below to reset your password:\n" + link,
		Kind:    NotificationPasswordReset,
	}
}
