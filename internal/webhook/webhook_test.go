package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuditLogger struct {
	mu     sync.Mutex
	events []audit.Event
}

func (f *fakeAuditLogger) Log(_ context.Context, e audit.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeAuditLogger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *fakeAuditLogger) last() audit.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[len(f.events)-1]
}

func TestSignPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	secret := []byte("my-secret")
	ts := int64(1698057000)
	payload := []byte(`{"a":1}`)

	sig := SignPayload(secret, ts, payload)
	assert.Contains(t, sig, "sha256=")
	assert.True(t, VerifySignature(secret, ts, payload, sig))
	assert.False(t, VerifySignature([]byte("wrong"), ts, payload, sig))
	assert.False(t, VerifySignature(secret, ts+1, payload, sig))
}

func TestSignPayloadDeterministic(t *testing.T) {
	t.Parallel()

	secret := []byte("det")
	sig1 := SignPayload(secret, 1, []byte("p"))
	sig2 := SignPayload(secret, 1, []byte("p"))
	assert.Equal(t, sig1, sig2)
}

func TestVerifySignatureRejectsMalformed(t *testing.T) {
	t.Parallel()

	assert.False(t, VerifySignature([]byte("s"), 1, []byte("p"), ""))
	assert.False(t, VerifySignature([]byte("s"), 1, []byte("p"), "sha256="))
	assert.False(t, VerifySignature([]byte("s"), 1, []byte("p"), "not-prefixed"))
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := Config{Name: "hook", URL: "https://example.com/hook", FailurePolicy: FailurePolicyFail}
	assert.NoError(t, valid.Validate())

	missingName := valid
	missingName.Name = ""
	assert.ErrorContains(t, missingName.Validate(), "name is required")

	badURL := valid
	badURL.URL = "not a url"
	assert.ErrorContains(t, badURL.Validate(), "URL is invalid")

	badPolicy := valid
	badPolicy.FailurePolicy = "bogus"
	assert.ErrorContains(t, badPolicy.Validate(), "failure_policy")

	tooLong := valid
	tooLong.Timeout = MaxTimeout + time.Second
	assert.ErrorContains(t, tooLong.Validate(), "exceeds maximum")
}

func TestClientSendSignsWhenSecretPresent(t *testing.T) {
	t.Parallel()

	var captured http.Header
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		captured = r.Header
		body, _ = io.ReadAll(r.Body)
	}))
	defer server.Close()

	client, err := NewClient(Config{Name: "test", URL: server.URL, FailurePolicy: FailurePolicyFail}, []byte("secret"))
	require.NoError(t, err)

	event := Event{Type: TriggerSubscriptionAccountCreated, CorrespondenceID: uuid.New(), Timestamp: time.Now()}
	err = client.Send(context.Background(), event, nil)
	require.NoError(t, err)

	assert.Contains(t, captured.Get(SignatureHeader), "sha256=")
	assert.NotEmpty(t, captured.Get(TimestampHeader))

	var decoded Event
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, event.CorrespondenceID, decoded.CorrespondenceID)
}

func TestClientSendNoSignatureWithoutSecret(t *testing.T) {
	t.Parallel()

	var captured http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(Config{Name: "test", URL: server.URL, FailurePolicy: FailurePolicyFail}, nil)
	require.NoError(t, err)

	err = client.Send(context.Background(), Event{Type: TriggerGuestUserRegistered}, nil)
	require.NoError(t, err)
	assert.Empty(t, captured.Get(SignatureHeader))
}

func TestClientSendInvalidResponseOnNon2xx(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(Config{Name: "test", URL: server.URL, FailurePolicy: FailurePolicyFail}, nil)
	require.NoError(t, err)

	err = client.Send(context.Background(), Event{}, nil)
	require.Error(t, err)
	var invalidErr *InvalidResponseError
	assert.ErrorAs(t, err, &invalidErr)
}

type fakeRegistry struct {
	hooks []WebHook
}

func (f *fakeRegistry) ActiveByTrigger(_ context.Context, trigger Trigger) ([]WebHook, error) {
	var out []WebHook
	for _, h := range f.hooks {
		if h.Trigger == trigger && h.IsActive {
			out = append(out, h)
		}
	}
	return out, nil
}

func TestDispatchFansOutToEveryActiveHook(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	receivedCorrelation := map[uuid.UUID]int{}
	var wg sync.WaitGroup
	wg.Add(2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer wg.Done()
		var ev Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		mu.Lock()
		receivedCorrelation[ev.CorrespondenceID]++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := &fakeRegistry{hooks: []WebHook{
		{ID: uuid.New(), Name: "hook-a", URL: server.URL, Trigger: TriggerSubscriptionAccountCreated, IsActive: true},
		{ID: uuid.New(), Name: "hook-b", URL: server.URL, Trigger: TriggerSubscriptionAccountCreated, IsActive: true},
		{ID: uuid.New(), Name: "hook-c", URL: server.URL, Trigger: TriggerGuestUserRegistered, IsActive: true},
	}}

	d := NewDispatcher(registry, "lifecycle-secret", 2, 8, 3, 10*time.Millisecond, nil)
	correspondence := uuid.New()
	d.Dispatch(context.Background(), TriggerSubscriptionAccountCreated, correspondence, map[string]string{"id": "x"})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for webhook deliveries")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, receivedCorrelation[correspondence])
}

func TestDispatchRetriesThenRecordsIncidentOnFinalFailure(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close()) // nothing listens at addr from here on: every dial is refused

	registry := &fakeRegistry{hooks: []WebHook{
		{ID: uuid.New(), Name: "hook-down", URL: "http://" + addr, Trigger: TriggerSubscriptionAccountCreated, IsActive: true},
	}}

	auditLog := &fakeAuditLogger{}
	d := NewDispatcher(registry, "lifecycle-secret", 1, 4, 3, 5*time.Millisecond, auditLog)
	d.Dispatch(context.Background(), TriggerSubscriptionAccountCreated, uuid.New(), map[string]string{"id": "x"})

	require.Eventually(t, func() bool { return auditLog.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	evt := auditLog.last()
	assert.Equal(t, audit.EventWebhookDeliveryFailed, evt.Action)
	assert.Equal(t, audit.SeverityWarning, evt.Metadata["severity"])
	assert.Equal(t, "hook-down", evt.Metadata["webhook"])
}
