package notify

import (
	"context"
	"log/slog"
)

// EmailSender delivers the token-bearing notifications the gateway's
// lifecycle use cases issue (internal/token meta kinds): email
// confirmation, password change, and guest connection-string invites.
type EmailSender interface {
	SendEmailConfirmation(ctx context.Context, to string, token string, appURL string) error
	SendPasswordChange(ctx context.Context, to string, token string, appURL string) error
	SendGuestInvitation(ctx context.Context, to string, token string, appURL string) error
}

// DevMailer logs emails instead of sending them. Safe for local
// development; never wire this in a deployed environment.
type DevMailer struct {
	Logger *slog.Logger
}

func (m *DevMailer) SendEmailConfirmation(ctx context.Context, to string, token string, appURL string) error {
	link := appURL + "/confirm?token=" + token
	m.Logger.InfoContext(ctx, "email_sent", "to", to, "type", "email_confirmation", "link", link)
	return nil
}

func (m *DevMailer) SendPasswordChange(ctx context.Context, to string, token string, appURL string) error {
	link := appURL + "/reset?token=" + token
	m.Logger.InfoContext(ctx, "email_sent", "to", to, "type", "password_change", "link", link)
	return nil
}

func (m *DevMailer) SendGuestInvitation(ctx context.Context, to string, token string, appURL string) error {
	link := appURL + "/invite?token=" + token
	m.Logger.InfoContext(ctx, "email_sent", "to", to, "type", "guest_invitation", "link", link)
	return nil
}
