package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/gateway/identity"
	"github.com/opsmycelium/gateway/internal/gateway/resolver"
	"github.com/opsmycelium/gateway/internal/gateway/routetable"
	"github.com/opsmycelium/gateway/internal/profile"
	"github.com/opsmycelium/gateway/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct{ byEmail map[string]profile.User }

func (f fakeUsers) FindByEmail(_ context.Context, email string) (profile.User, bool, error) {
	u, ok := f.byEmail[email]
	return u, ok, nil
}

type fakeAccounts struct{ byID map[uuid.UUID]profile.Account }

func (f fakeAccounts) Find(_ context.Context, id uuid.UUID) (profile.Account, bool, error) {
	a, ok := f.byID[id]
	return a, ok, nil
}

type fakeLR struct{}

func (fakeLR) ForUser(_ context.Context, _ uuid.UUID) ([]profile.LicensedResource, error) {
	return nil, nil
}

type fakeOwnership struct{}

func (fakeOwnership) OwnedTenants(_ context.Context, _ uuid.UUID) (map[uuid.UUID]bool, error) {
	return map[uuid.UUID]bool{}, nil
}

func newTestPipeline(t *testing.T, upstream string) (*Pipeline, string) {
	t.Helper()

	accountID := uuid.New()
	owner := profile.Owner{ID: uuid.New(), Email: "alice@example.com"}
	users := fakeUsers{byEmail: map[string]profile.User{
		"alice@example.com": {ID: owner.ID, AccountID: accountID},
	}}
	accounts := fakeAccounts{byID: map[uuid.UUID]profile.Account{
		accountID: {ID: accountID, Owners: []profile.Owner{owner}, Flags: profile.AccountFlags{Active: true, Checked: true}},
	}}

	res := resolver.New(users, accounts, fakeLR{}, fakeOwnership{})

	const internalSecret = "test-internal-secret"
	verifier := identity.NewVerifier(nil, identity.InternalIssuer{
		IssuerURL: "mycelium", Audience: "gateway", Secret: internalSecret,
	}, identity.NewJWKSCache(time.Minute))

	table := routetable.NewTable()
	table.Replace([]routetable.Route{
		{
			Prefix:   "/public",
			Service:  "public",
			Upstream: upstream,
			Methods:  map[routetable.Method]bool{routetable.MethodGet: true},
			Protection: routetable.Protection{Kind: routetable.Public},
		},
		{
			Prefix:   "/protected",
			Service:  "protected",
			Upstream: upstream,
			Methods:  map[routetable.Method]bool{routetable.MethodGet: true},
			Protection: routetable.Protection{Kind: routetable.Protected},
		},
	})

	p := New(table, verifier, res, "lifecycle-secret")

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"iss": "mycelium", "aud": "gateway", "email": "alice@example.com",
	})
	signed, err := token.SignedString([]byte(internalSecret))
	require.NoError(t, err)

	return p, signed
}

func TestPipelinePublicRouteForwardsWithoutAuth(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(HeaderProfile))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	p, _ := newTestPipeline(t, upstream.URL)

	req := httptest.NewRequest(http.MethodGet, GatewayScope+"/public/ping", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestPipelineProtectedRouteInjectsProfile(t *testing.T) {
	t.Parallel()

	var gotProfile string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProfile = r.Header.Get(HeaderProfile)
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	p, signed := newTestPipeline(t, upstream.URL)

	req := httptest.NewRequest(http.MethodGet, GatewayScope+"/protected/resource", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, gotProfile)
}

func TestPipelineMissingBearerIsUnauthorized(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t, "http://unused.invalid")

	req := httptest.NewRequest(http.MethodGet, GatewayScope+"/protected/resource", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPipelineNoRouteMatchIs400(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t, "http://unused.invalid")

	req := httptest.NewRequest(http.MethodGet, GatewayScope+"/nowhere", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPipelineMethodNotAllowedIs405(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t, "http://unused.invalid")

	req := httptest.NewRequest(http.MethodPost, GatewayScope+"/public/ping", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPipelineForwardsOnlyServiceSegmentForMultiSegmentPrefix(t *testing.T) {
	t.Parallel()

	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	table := routetable.NewTable()
	table.Replace([]routetable.Route{
		{
			Prefix:     "/billing",
			Service:    "billing",
			Upstream:   upstream.URL,
			Methods:    map[routetable.Method]bool{routetable.MethodGet: true},
			Protection: routetable.Protection{Kind: routetable.Public},
		},
		{
			Prefix:     "/billing/invoices",
			Service:    "billing",
			Upstream:   upstream.URL,
			Methods:    map[routetable.Method]bool{routetable.MethodGet: true},
			Protection: routetable.Protection{Kind: routetable.Public},
		},
	})
	p := New(table, identity.NewVerifier(nil, identity.InternalIssuer{}, identity.NewJWKSCache(time.Minute)), nil, "lifecycle-secret")

	req := httptest.NewRequest(http.MethodGet, GatewayScope+"/billing/invoices/123", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/invoices/123", gotPath)
}

func TestPipelineServiceTokenScopeAuthorization(t *testing.T) {
	t.Parallel()

	var gotProfile string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProfile = r.Header.Get(HeaderProfile)
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	accountID := uuid.New()
	scope := token.Scope{token.Aid(accountID), token.Rls([]string{"worker"}), token.EdtBean(time.Now().Add(time.Hour))}
	signedScope, sig := token.SignToken(scope, "lifecycle-secret")
	_ = sig

	table := routetable.NewTable()
	table.Replace([]routetable.Route{
		{
			Prefix:   "/svc",
			Service:  "svc",
			Upstream: upstream.URL,
			Methods:  map[routetable.Method]bool{routetable.MethodGet: true},
			Protection: routetable.Protection{Kind: routetable.ProtectedByServiceTokenWithRole, Roles: []string{"worker"}},
		},
	})
	p := New(table, identity.NewVerifier(nil, identity.InternalIssuer{}, identity.NewJWKSCache(time.Minute)), nil, "lifecycle-secret")
	p.Routes = table

	req := httptest.NewRequest(http.MethodGet, GatewayScope+"/svc/do-thing", nil)
	req.Header.Set(HeaderScope, signedScope.Serialize())
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, gotProfile)
}
