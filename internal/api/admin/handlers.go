package admin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/api/middleware"
	"github.com/opsmycelium/gateway/internal/gateway/routetable"
	"github.com/opsmycelium/gateway/internal/httpsecret"
	"github.com/opsmycelium/gateway/internal/merr"
	"github.com/opsmycelium/gateway/internal/profile"
	"github.com/opsmycelium/gateway/internal/usecase"
	"github.com/opsmycelium/gateway/internal/webhook"
)

type handlers struct {
	routes        *routetable.Table
	webhooks      WebhookStore
	accounts      AccountLister
	tenants       TenantLister
	accountWriter usecase.AccountRepository
	dispatcher    usecase.WebhookDispatcher
}

func (h *handlers) listWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.webhooks.List(r.Context())
	if err != nil {
		merr.WriteHTTP(w, r, merr.ErrInternal.Wrap(err))
		return
	}
	for i := range hooks {
		if hooks[i].Secret != nil {
			hooks[i].Secret.RedactToken()
		}
	}
	writeJSON(w, http.StatusOK, hooks)
}

type createWebhookRequest struct {
	Name    string          `json:"name"`
	URL     string          `json:"url"`
	Trigger webhook.Trigger `json:"trigger"`
	Secret  *struct {
		Kind   httpsecret.Kind `json:"kind"`
		Name   string          `json:"name"`
		Prefix string          `json:"prefix"`
		Token  string          `json:"token"`
	} `json:"secret"`
}

func (h *handlers) createWebhook(w http.ResponseWriter, r *http.Request) {
	var req createWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		merr.WriteHTTP(w, r, merr.ErrBadFormat.Wrap(err))
		return
	}
	if req.Name == "" || req.URL == "" || req.Trigger == "" {
		merr.WriteHTTP(w, r, merr.ErrBadFormat)
		return
	}

	hook := webhook.WebHook{
		ID:       uuid.New(),
		Name:     req.Name,
		URL:      req.URL,
		Trigger:  req.Trigger,
		IsActive: true,
	}
	if req.Secret != nil {
		hook.Secret = &httpsecret.HttpSecret{
			Kind: req.Secret.Kind, Name: req.Secret.Name, Prefix: req.Secret.Prefix, Token: req.Secret.Token,
		}
	}

	if err := h.webhooks.Insert(r.Context(), hook); err != nil {
		merr.WriteHTTP(w, r, merr.ErrInternal.Wrap(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uuid.UUID{"id": hook.ID})
}

func (h *handlers) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		merr.WriteHTTP(w, r, merr.ErrBadFormat.Wrap(err))
		return
	}
	deleted, err := h.webhooks.Delete(r.Context(), id)
	if err != nil {
		merr.WriteHTTP(w, r, merr.ErrInternal.Wrap(err))
		return
	}
	if !deleted {
		merr.WriteHTTP(w, r, merr.ErrUserNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.routes.Snapshot())
}

func (h *handlers) upsertRoute(w http.ResponseWriter, r *http.Request) {
	var route routetable.Route
	if err := json.NewDecoder(r.Body).Decode(&route); err != nil {
		merr.WriteHTTP(w, r, merr.ErrBadFormat.Wrap(err))
		return
	}
	if route.Prefix == "" || route.Upstream == "" || route.Service == "" {
		merr.WriteHTTP(w, r, merr.ErrBadFormat)
		return
	}
	h.routes.Upsert(route)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteRoute(w http.ResponseWriter, r *http.Request) {
	prefix := chi.URLParam(r, "prefix")
	if !h.routes.Delete(prefix) {
		merr.WriteHTTP(w, r, merr.ErrNoRouteMatch)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		merr.WriteHTTP(w, r, merr.ErrInternal.Wrap(err))
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *handlers) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenants.List(r.Context())
	if err != nil {
		merr.WriteHTTP(w, r, merr.ErrInternal.Wrap(err))
		return
	}
	writeJSON(w, http.StatusOK, tenants)
}

type createSubscriptionAccountRequest struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Name     string    `json:"name"`
}

// createSubscriptionAccount exercises usecase.CreateSubscriptionAccount
// end-to-end: the use case itself narrows the caller's Profile and maps
// failure to a Result/merr, so this handler only decodes the request,
// resolves the caller, and translates the outcome to HTTP.
func (h *handlers) createSubscriptionAccount(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		merr.WriteHTTP(w, r, merr.ErrBadFormat.Wrap(err))
		return
	}

	p, err := middleware.GetProfile(r.Context())
	if err != nil {
		merr.WriteHTTP(w, r, merr.ErrInternal.Wrap(err))
		return
	}

	result, err := usecase.CreateSubscriptionAccount(r.Context(), p, h.accountWriter, h.dispatcher, req.TenantID, req.Name)
	if err != nil {
		merr.WriteHTTP(w, r, err)
		return
	}
	w.WriteHeader(result.HTTPStatus())
}

type registerGuestUserRequest struct {
	TenantID uuid.UUID     `json:"tenant_id"`
	Guest    profile.Owner `json:"guest"`
}

// registerGuestUser exercises usecase.RegisterGuestUser end-to-end,
// targeting the account named by the {id} URL param.
func (h *handlers) registerGuestUser(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		merr.WriteHTTP(w, r, merr.ErrBadFormat.Wrap(err))
		return
	}

	var req registerGuestUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		merr.WriteHTTP(w, r, merr.ErrBadFormat.Wrap(err))
		return
	}

	p, err := middleware.GetProfile(r.Context())
	if err != nil {
		merr.WriteHTTP(w, r, merr.ErrInternal.Wrap(err))
		return
	}

	result, err := usecase.RegisterGuestUser(r.Context(), p, h.accountWriter, h.dispatcher, req.TenantID, accountID, req.Guest)
	if err != nil {
		merr.WriteHTTP(w, r, err)
		return
	}
	w.WriteHeader(result.HTTPStatus())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
