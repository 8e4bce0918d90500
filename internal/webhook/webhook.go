// Package webhook implements the dispatcher from spec.md §4.8: per-
// trigger fan-out, secret injection, HMAC request signing, and
// best-effort async delivery with bounded concurrency.
package webhook

import (
	"time"

	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/httpsecret"
)

// Trigger is an event tag a webhook is registered against. The set is
// open at the storage layer (a free-text column) but these are the
// triggers emitted by the use cases this repository implements.
type Trigger string

const (
	TriggerSubscriptionAccountCreated Trigger = "SubscriptionAccountCreated"
	TriggerGuestUserRegistered        Trigger = "GuestUserRegistered"
)

// WebHook is the persisted registration (spec.md §3: "webhook(id PK,
// name, url, trigger, secret JSON?, is_active)"). Secret is nil when
// the hook has no outbound credential to inject.
type WebHook struct {
	ID       uuid.UUID
	Name     string
	URL      string
	Trigger  Trigger
	Secret   *httpsecret.HttpSecret
	IsActive bool
}

// Event is the JSON body posted to every webhook dispatched from one
// use-case invocation. CorrespondenceID is generated once per invocation
// and shared across all webhooks it triggers (spec.md §4.8).
type Event struct {
	Type             Trigger     `json:"type"`
	CorrespondenceID uuid.UUID   `json:"correspondence_id"`
	Timestamp        time.Time   `json:"timestamp"`
	Entity           interface{} `json:"entity"`
}
