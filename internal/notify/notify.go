// Package notify sends account emails: the verification prompt after
// registration, the approval decision, and suspension notices. Delivery is
// best-effort and asynchronous; account state never depends on it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
)

// Kind classifies a notification for senders that route by template.
type Kind string

const (
	KindVerifyEmail      Kind = "verify_email"
	KindAccountApproved  Kind = "account_approved"
	KindAccountSuspended Kind = "account_suspended"
	KindWelcome          Kind = "welcome"
)

// Message is one outbound notification.
type Message struct {
	To      string
	Kind    Kind
	Subject string
	Body    string
}

// Sender delivers a message. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes notifications to the structured log instead of delivering
// them. The default in dev mode and tests.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender builds a log-backed sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("notification",
		"to", msg.To, "kind", string(msg.Kind), "subject", msg.Subject)
	return nil
}

// VerifyEmail builds the post-registration verification prompt.
func VerifyEmail(to, displayName string) Message {
	return Message{
		To:      to,
		Kind:    KindVerifyEmail,
		Subject: "Verify your email address",
		Body:    fmt.Sprintf("Hi %s, please verify your email address to continue setting up your account.", displayName),
	}
}

// AccountApproved builds the provider approval notice.
func AccountApproved(to, businessName string) Message {
	return Message{
		To:      to,
		Kind:    KindAccountApproved,
		Subject: "Your provider account has been approved",
		Body:    fmt.Sprintf("Good news: %s has been approved and can now sign in.", businessName),
	}
}

// AccountSuspended builds the suspension notice.
func AccountSuspended(to string) Message {
	return Message{
		To:      to,
		Kind:    KindAccountSuspended,
		Subject: "Your account has been suspended",
		Body:    "Your account has been suspended. Contact support if you believe this is a mistake.",
	}
}

// Welcome builds the post-verification welcome for end users.
func Welcome(to, displayName string) Message {
	return Message{
		To:      to,
		Kind:    KindWelcome,
		Subject: "Welcome to CareHub",
		Body:    fmt.Sprintf("Hi %s, your account is ready.", displayName),
	}
}
