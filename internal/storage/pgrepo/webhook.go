package pgrepo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsmycelium/gateway/internal/httpsecret"
	"github.com/opsmycelium/gateway/internal/webhook"
)

// uniqueViolation is the Postgres error code for a unique-index clash.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// WebhookRepository implements webhook.Registry plus the CRUD the
// admin API exposes over registered webhooks.
type WebhookRepository struct {
	pool *pgxpool.Pool
}

func NewWebhookRepository(pool *pgxpool.Pool) *WebhookRepository {
	return &WebhookRepository{pool: pool}
}

func (r *WebhookRepository) ActiveByTrigger(ctx context.Context, trigger webhook.Trigger) ([]webhook.WebHook, error) {
	rows, err := r.pool.Query(ctx, `
		select id, name, url, trigger, secret_kind, secret_name, secret_prefix, secret_token, is_active
		from webhook where trigger = $1 and is_active = true`, string(trigger))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []webhook.WebHook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WebhookRepository) Insert(ctx context.Context, w webhook.WebHook) error {
	kind, name, prefix, token := secretColumns(w.Secret)
	_, err := r.pool.Exec(ctx, `
		insert into webhook (id, name, url, trigger, secret_kind, secret_name, secret_prefix, secret_token, is_active)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		w.ID, w.Name, w.URL, string(w.Trigger), kind, name, prefix, token, w.IsActive,
	)
	return err
}

func (r *WebhookRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `delete from webhook where id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *WebhookRepository) List(ctx context.Context) ([]webhook.WebHook, error) {
	rows, err := r.pool.Query(ctx, `
		select id, name, url, trigger, secret_kind, secret_name, secret_prefix, secret_token, is_active
		from webhook order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []webhook.WebHook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanWebhook(row scanner) (webhook.WebHook, error) {
	var w webhook.WebHook
	var trigger string
	var secretKind, secretName, secretPrefix, secretToken *string
	if err := row.Scan(&w.ID, &w.Name, &w.URL, &trigger, &secretKind, &secretName, &secretPrefix, &secretToken, &w.IsActive); err != nil {
		return webhook.WebHook{}, err
	}
	w.Trigger = webhook.Trigger(trigger)
	if secretKind != nil {
		secret := httpsecret.HttpSecret{
			Kind: httpsecret.Kind(*secretKind),
		}
		if secretName != nil {
			secret.Name = *secretName
		}
		if secretPrefix != nil {
			secret.Prefix = *secretPrefix
		}
		if secretToken != nil {
			secret.Token = *secretToken
		}
		w.Secret = &secret
	}
	return w, nil
}

func secretColumns(s *httpsecret.HttpSecret) (kind, name, prefix, token *string) {
	if s == nil {
		return nil, nil, nil, nil
	}
	k := string(s.Kind)
	return &k, &s.Name, &s.Prefix, &s.Token
}
