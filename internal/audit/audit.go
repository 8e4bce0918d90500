// Package audit records the gateway's security-relevant events:
// authorization decisions, connection-string issuance/consumption,
// route-table and webhook-registration changes.
package audit

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// EventType categorizes an audit entry.
type EventType string

const (
	EventAuthzDenied        EventType = "AUTHZ_DENIED"
	EventAuthzGranted       EventType = "AUTHZ_GRANTED"
	EventTokenIssued        EventType = "TOKEN_ISSUED"
	EventTokenConsumed      EventType = "TOKEN_CONSUMED"
	EventTokenRejected      EventType = "TOKEN_REJECTED"
	EventRouteTableChanged  EventType = "ROUTE_TABLE_CHANGED"
	EventWebhookRegistered  EventType = "WEBHOOK_REGISTERED"
	EventAccountCreated     EventType = "ACCOUNT_CREATED"
	EventGuestUserRegistered EventType = "GUEST_USER_REGISTERED"
	EventWebhookDeliveryFailed EventType = "WEBHOOK_DELIVERY_FAILED"
)

// Severity levels an Event's Metadata["severity"] carries. Most events
// are "info"; an event that should page or be triaged is "warning".
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// Event is one audit entry.
type Event struct {
	Action   EventType
	ActorID  uuid.UUID
	TargetID uuid.UUID
	TenantID uuid.UUID
	Resource string
	Metadata map[string]string
}

// Logger defines the contract for immutable audit logging.
type Logger interface {
	Log(ctx context.Context, e Event)
}

// JSONLogger writes structured logs to stdout under a dedicated
// "audit_event" message so log aggregators can route them to a separate,
// longer-retention index.
type JSONLogger struct {
	logger *slog.Logger
}

func NewJSONLogger() *JSONLogger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &JSONLogger{logger: slog.New(handler)}
}

func (l *JSONLogger) Log(ctx context.Context, e Event) {
	fields := []interface{}{
		slog.String("log_type", "AUDIT_TRAIL"),
		slog.String("action", string(e.Action)),
		slog.String("actor_id", e.ActorID.String()),
		slog.String("target_id", e.TargetID.String()),
		slog.String("tenant_id", e.TenantID.String()),
		slog.String("resource", e.Resource),
		slog.Time("timestamp_utc", time.Now().UTC()),
	}
	for k, v := range e.Metadata {
		fields = append(fields, slog.String("meta_"+k, v))
	}
	l.logger.InfoContext(ctx, "audit_event", fields...)
}

// NoopLogger discards every event. Used by callers that haven't wired a
// real sink yet (tests, local dev without a database).
type NoopLogger struct{}

func (NoopLogger) Log(context.Context, Event) {}
