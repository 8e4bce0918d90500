// Package mailer implements an async outbox queue for the token-bearing
// notifications the gateway's lifecycle use cases send: email
// confirmation, password change, and guest invitation links.
package mailer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EmailTemplate restricts outbox entries to a fixed whitelist, preventing
// an arbitrary template name from ever reaching the rendering worker.
type EmailTemplate string

const (
	TemplateEmailConfirmation EmailTemplate = "email_confirmation"
	TemplatePasswordChange    EmailTemplate = "password_change"
	TemplateGuestInvitation   EmailTemplate = "guest_invitation"
)

var validTemplates = map[EmailTemplate]bool{
	TemplateEmailConfirmation: true,
	TemplatePasswordChange:    true,
	TemplateGuestInvitation:   true,
}

// EmailPayload is a single queued send.
type EmailPayload struct {
	To        string         `json:"to"`
	Template  EmailTemplate  `json:"template"`
	Data      map[string]any `json:"data"`
	RequestID string         `json:"request_id"`
}

// EnqueueEmail writes payload to the outbox table for async delivery by
// a background worker. Fast and non-blocking relative to an inline SMTP
// send; the caller's request does not wait on mail delivery.
func EnqueueEmail(ctx context.Context, pool *pgxpool.Pool, payload EmailPayload) error {
	if !validTemplates[payload.Template] {
		return fmt.Errorf("mailer: invalid template: %s", payload.Template)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mailer: serializing payload: %w", err)
	}

	_, err = pool.Exec(ctx, `
		insert into email_outbox (payload, status, next_retry_at)
		values ($1, 'pending', now())`,
		payloadJSON,
	)
	if err != nil {
		return fmt.Errorf("mailer: enqueueing email: %w", err)
	}
	return nil
}

// HashRecipient returns a deterministic, non-reversible digest of an
// email address for use in logs where the raw address shouldn't appear.
func HashRecipient(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}

// NewRequestID mints an id for correlating an enqueued send with the
// request that issued it.
func NewRequestID() string {
	return uuid.New().String()
}
