package email

import (
	"context"
	"log/slog"
)

// Notifier sends the workflow notifications. Delivery is best-effort: callers log
// failures and carry on.
type Notifier interface {
	// SendWelcome greets a newly registered user.
	SendWelcome(ctx context.Context, to, name string) error

	// SendMembershipRequested tells an organization's admins that someone asked to join.
	SendMembershipRequested(ctx context.Context, to []string, orgName, applicantName, applicantEmail string) error

	// SendMembershipResolved tells the applicant whether the request was approved.
	SendMembershipResolved(ctx context.Context, to, name, orgName string, approved bool) error
}

// Config holds email service configuration
type Config struct {
	APIKey    string
	FromEmail string
	FromName  string
	// AppURL is linked from every message.
	AppURL string
}

// NoopNotifier is used when email is disabled. It only logs.
type NoopNotifier struct {
	log *slog.Logger
}

func NewNoopNotifier(log *slog.Logger) *NoopNotifier {
	return &NoopNotifier{log: log}
}

func (n *NoopNotifier) SendWelcome(_ context.Context, to, _ string) error {
	n.log.Debug("email disabled, skipping welcome", "to", to)
	return nil
}

func (n *NoopNotifier) SendMembershipRequested(_ context.Context, to []string, orgName, _, applicantEmail string) error {
	n.log.Debug("email disabled, skipping membership request notice", "recipients", len(to), "organization", orgName, "applicant", applicantEmail)
	return nil
}

func (n *NoopNotifier) SendMembershipResolved(_ context.Context, to, _, orgName string, approved bool) error {
	n.log.Debug("email disabled, skipping membership decision", "to", to, "organization", orgName, "approved", approved)
	return nil
}
