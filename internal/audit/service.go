package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsmycelium/gateway/internal/storage"
)

// DBLogger implements Logger by persisting every event to Postgres.
// Writes go through storage.WithoutRLS: an audit record must be written
// regardless of the tenant context the triggering request was scoped to.
type DBLogger struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewDBLogger(pool *pgxpool.Pool, logger *slog.Logger) *DBLogger {
	return &DBLogger{pool: pool, logger: logger}
}

// Log records an event. Failures are swallowed after being logged to the
// structured logger: a lost audit row must never fail the request that
// triggered it.
func (s *DBLogger) Log(ctx context.Context, e Event) {
	metadataBytes, err := json.Marshal(e.Metadata)
	if err != nil {
		s.logger.Error("audit_metadata_marshal_failed", "error", err)
		metadataBytes = []byte("{}")
	}

	err = storage.WithoutRLS(ctx, s.pool, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, `
			insert into audit_log
				(actor_id, tenant_id, target_id, action, resource, metadata)
			values ($1, $2, $3, $4, $5, $6)`,
			nullableUUID(e.ActorID), nullableUUID(e.TenantID), nullableUUID(e.TargetID),
			string(e.Action), e.Resource, metadataBytes,
		)
		return execErr
	})
	if err != nil {
		s.logger.Error("audit_db_insert_failed", "action", e.Action, "error", err, "actor", e.ActorID)
	}
}

func nullableUUID(u uuid.UUID) interface{} {
	if u == uuid.Nil {
		return nil
	}
	return u
}
