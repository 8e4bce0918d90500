package webhook

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/audit"
)

// Registry looks up active webhook registrations for a trigger. The
// pgx-backed implementation lives in internal/storage/pgrepo.
type Registry interface {
	ActiveByTrigger(ctx context.Context, trigger Trigger) ([]WebHook, error)
}

// job is one hook's delivery of one event, queued onto the worker pool.
type job struct {
	hook  WebHook
	event Event
}

// Dispatcher is the bounded worker pool from spec.md §4.8/§5: a fixed
// number of goroutines drain the job queue so a trigger with many
// registered hooks cannot spawn unbounded concurrency. Dispatch itself
// never blocks on delivery -- it enqueues and returns, matching the
// "dispatching is best-effort async" contract.
type Dispatcher struct {
	registry        Registry
	lifecycleSecret string
	jobs            chan job
	maxAttempts     int
	backoff         time.Duration
	audit           audit.Logger
}

// DefaultMaxAttempts and DefaultBackoff are spec.md §4.8's retry policy
// defaults, used when NewDispatcher is given a non-positive value.
const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 3 * time.Second
)

// NewDispatcher starts workers goroutines reading off an internally
// buffered queue. lifecycleSecret decrypts each hook's at-rest secret
// before injection. maxAttempts and backoff configure the per-hook
// retry policy (spec.md §4.8); auditLogger records the incident event
// on final failure. A nil auditLogger falls back to audit.NoopLogger.
func NewDispatcher(registry Registry, lifecycleSecret string, workers, queueDepth int, maxAttempts int, backoff time.Duration, auditLogger audit.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueDepth < 1 {
		queueDepth = workers * 4
	}
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	if auditLogger == nil {
		auditLogger = audit.NoopLogger{}
	}
	d := &Dispatcher{
		registry:        registry,
		lifecycleSecret: lifecycleSecret,
		jobs:            make(chan job, queueDepth),
		maxAttempts:     maxAttempts,
		backoff:         backoff,
		audit:           auditLogger,
	}
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	for j := range d.jobs {
		d.deliver(j)
	}
}

// Dispatch enumerates active webhooks for trigger and enqueues one
// delivery per hook, all sharing correspondenceID (spec.md §4.8: "The
// correspondence UUID is generated once per use-case invocation and
// reused across all webhooks dispatched by that invocation"). The
// caller (a use case) generates correspondenceID once and passes it in.
func (d *Dispatcher) Dispatch(ctx context.Context, trigger Trigger, correspondenceID uuid.UUID, entity interface{}) {
	hooks, err := d.registry.ActiveByTrigger(ctx, trigger)
	if err != nil {
		slog.Error("webhook: failed to enumerate hooks for trigger", "trigger", trigger, "error", err)
		return
	}

	event := Event{
		Type:             trigger,
		CorrespondenceID: correspondenceID,
		Timestamp:        time.Now(),
		Entity:           entity,
	}

	for _, h := range hooks {
		if !h.IsActive {
			continue
		}
		select {
		case d.jobs <- job{hook: h, event: event}:
		default:
			// Queue saturated: drop rather than block the use case that
			// triggered this dispatch. Best-effort means best-effort.
			slog.Warn("webhook: queue saturated, dropping dispatch", "webhook", h.Name, "trigger", trigger)
		}
	}
}

func (d *Dispatcher) deliver(j job) {
	secret, headers, query, err := d.materializeSecret(j.hook)
	if err != nil {
		slog.Error("webhook: failed to decrypt secret", "webhook", j.hook.Name, "error", err)
		return
	}

	client, err := NewClient(Config{
		Name:          j.hook.Name,
		URL:           d.urlWithQuery(j.hook.URL, query),
		FailurePolicy: FailurePolicyFail,
	}, secret)
	if err != nil {
		slog.Error("webhook: invalid config", "webhook", j.hook.Name, "error", err)
		return
	}

	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		lastErr = client.Send(context.Background(), j.event, headers)
		if lastErr == nil {
			return
		}
		if _, isTimeout := lastErr.(*TimeoutError); !isTimeout {
			if _, isNetwork := lastErr.(*NetworkError); !isNetwork {
				break
			}
		}
		if attempt < d.maxAttempts {
			time.Sleep(d.backoff)
		}
	}

	slog.Warn("webhook: delivery failed", "webhook", j.hook.Name, "trigger", j.event.Type, "error", lastErr)
	d.audit.Log(context.Background(), audit.Event{
		Action:   audit.EventWebhookDeliveryFailed,
		TargetID: j.hook.ID,
		Resource: "webhook",
		Metadata: map[string]string{
			"severity": audit.SeverityWarning,
			"webhook":  j.hook.Name,
			"trigger":  string(j.event.Type),
			"error":    lastErr.Error(),
		},
	})
}

// materializeSecret decrypts the hook's HttpSecret (if any) and returns
// the HMAC key plus the header/query injection to apply to the outbound
// request.
func (d *Dispatcher) materializeSecret(h WebHook) (hmacSecret []byte, headers map[string]string, query map[string]string, err error) {
	if h.Secret == nil {
		return nil, nil, nil, nil
	}
	decrypted, err := h.Secret.DecryptMe(d.lifecycleSecret)
	if err != nil {
		return nil, nil, nil, err
	}

	headers = map[string]string{}
	query = map[string]string{}
	if name, value, ok := decrypted.HeaderValue(); ok {
		headers[name] = value
	}
	if name, value, ok := decrypted.QueryValue(); ok {
		query[name] = value
	}
	return []byte(decrypted.Token), headers, query, nil
}

func (d *Dispatcher) urlWithQuery(base string, query map[string]string) string {
	if len(query) == 0 {
		return base
	}
	sep := "?"
	if containsQuery(base) {
		sep = "&"
	}
	out := base
	for k, v := range query {
		out += sep + k + "=" + v
		sep = "&"
	}
	return out
}

func containsQuery(rawURL string) bool {
	for _, r := range rawURL {
		if r == '?' {
			return true
		}
	}
	return false
}
