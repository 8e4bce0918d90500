package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsmycelium/gateway/internal/mailer"
)

// ProductionMailer implements EmailSender by enqueueing to the outbox
// table; a background worker sends the message and records the result.
type ProductionMailer struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

func NewProductionMailer(pool *pgxpool.Pool, logger *slog.Logger) *ProductionMailer {
	return &ProductionMailer{Pool: pool, Logger: logger}
}

func (m *ProductionMailer) SendEmailConfirmation(ctx context.Context, to string, token string, appURL string) error {
	return m.enqueue(ctx, to, mailer.TemplateEmailConfirmation, appURL+"/confirm?token="+token)
}

func (m *ProductionMailer) SendPasswordChange(ctx context.Context, to string, token string, appURL string) error {
	return m.enqueue(ctx, to, mailer.TemplatePasswordChange, appURL+"/reset?token="+token)
}

func (m *ProductionMailer) SendGuestInvitation(ctx context.Context, to string, token string, appURL string) error {
	return m.enqueue(ctx, to, mailer.TemplateGuestInvitation, appURL+"/invite?token="+token)
}

func (m *ProductionMailer) enqueue(ctx context.Context, to string, template mailer.EmailTemplate, link string) error {
	payload := mailer.EmailPayload{
		To:        to,
		Template:  template,
		Data:      map[string]any{"link": link},
		RequestID: mailer.NewRequestID(),
	}

	if err := mailer.EnqueueEmail(ctx, m.Pool, payload); err != nil {
		m.Logger.Error("email_enqueue_failed", "to_hash", mailer.HashRecipient(to), "template", template, "error", err)
		return fmt.Errorf("notify: enqueueing %s: %w", template, err)
	}

	m.Logger.Info("email_enqueued", "to_hash", mailer.HashRecipient(to), "template", template)
	return nil
}
