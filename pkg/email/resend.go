package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// sender is the slice of the Resend Emails API this package uses.
type sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendNotifier implements Notifier using Resend
type ResendNotifier struct {
	emails sender
	config Config
	log    *slog.Logger
}

// NewResendNotifier creates a new Resend notifier
func NewResendNotifier(config Config, log *slog.Logger) (*ResendNotifier, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	if config.FromEmail == "" {
		return nil, fmt.Errorf("from email is required")
	}

	client := resend.NewClient(config.APIKey)

	return &ResendNotifier{
		emails: client.Emails,
		config: config,
		log:    log,
	}, nil
}

func (s *ResendNotifier) from() string {
	return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
}

func (s *ResendNotifier) send(ctx context.Context, kind string, to []string, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    s.from(),
		To:      to,
		Subject: subject,
		Html:    html,
	}

	sent, err := s.emails.SendWithContext(ctx, params)
	if err != nil {
		s.log.Error("failed to send email", "kind", kind, "recipients", len(to), "err", err)
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}

	s.log.Info("email sent", "kind", kind, "recipients", len(to), "id", sent.Id)
	return nil
}

func (s *ResendNotifier) SendWelcome(ctx context.Context, to, name string) error {
	return s.send(ctx, "welcome", []string{to}, "Welcome to Transac", WelcomeEmailTemplate(name, s.config.AppURL))
}

func (s *ResendNotifier) SendMembershipRequested(ctx context.Context, to []string, orgName, applicantName, applicantEmail string) error {
	if len(to) == 0 {
		return nil
	}
	return s.send(ctx, "membership_requested", to,
		fmt.Sprintf("New request to join %s", orgName),
		MembershipRequestedTemplate(orgName, applicantName, applicantEmail, s.config.AppURL),
	)
}

func (s *ResendNotifier) SendMembershipResolved(ctx context.Context, to, name, orgName string, approved bool) error {
	subject := fmt.Sprintf("Your request to join %s was declined", orgName)
	if approved {
		subject = fmt.Sprintf("You are now a member of %s", orgName)
	}
	return s.send(ctx, "membership_resolved", []string{to}, subject,
		MembershipResolvedTemplate(name, orgName, approved, s.config.AppURL),
	)
}
