// Package pipeline implements the gateway's single request path
// (spec.md §4.7): route match, method gate, authorize-and-inject,
// upstream forward, streamed response.
package pipeline

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/gateway/identity"
	"github.com/opsmycelium/gateway/internal/gateway/resolver"
	"github.com/opsmycelium/gateway/internal/gateway/routetable"
	"github.com/opsmycelium/gateway/internal/merr"
	"github.com/opsmycelium/gateway/internal/profile"
	"github.com/opsmycelium/gateway/internal/token"
)

// UpstreamTimeout is the default deadline for the forwarded request
// (spec.md §5: "Upstream forwarding uses a configured deadline
// (default 30 s)").
const UpstreamTimeout = 30 * time.Second

// GatewayScope is the path prefix every gateway request is rooted
// under (spec.md §4.4/§6): "/adm/gw/<service>/<path...>".
const GatewayScope = "/adm/gw"

// Pipeline wires route matching, identity verification, and profile
// resolution into one http.Handler.
type Pipeline struct {
	Routes     *routetable.Table
	Verifier   *identity.Verifier
	Resolver   *resolver.Resolver
	LifecycleSecret string
	Transport  http.RoundTripper
}

func New(routes *routetable.Table, verifier *identity.Verifier, res *resolver.Resolver, lifecycleSecret string) *Pipeline {
	return &Pipeline{
		Routes:          routes,
		Verifier:        verifier,
		Resolver:        res,
		LifecycleSecret: lifecycleSecret,
		Transport:       http.DefaultTransport,
	}
}

func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rawPath := strings.TrimPrefix(r.URL.Path, GatewayScope)
	parsedPath, query, err := splitPathQuery(rawPath, r.URL.RawQuery)
	if err != nil {
		merr.WriteHTTP(w, r, merr.ErrBadFormat.Wrap(err))
		return
	}

	result := p.Routes.Match(parsedPath)
	if !result.Matched {
		merr.WriteHTTP(w, r, merr.ErrNoRouteMatch)
		return
	}

	method := routetable.Method(r.Method)
	if !result.Route.AllowsMethod(method) {
		merr.WriteHTTP(w, r, merr.ErrMethodNotAllowed)
		return
	}

	extraHeaders := http.Header{}
	if err := p.authorizeAndInject(r, result.Route, extraHeaders); err != nil {
		merr.WriteHTTP(w, r, err)
		return
	}

	p.forward(w, r, result.Route, upstreamPath(parsedPath, result.Route.Service), query, extraHeaders)
}

// upstreamPath implements spec.md §4.7 step 4: the forwarded path is
// the original path, with the gateway scope and only the route's
// service segment removed -- never the full matched Prefix, which may
// span more than one segment for a more specific route.
func upstreamPath(path, service string) string {
	stripped := strings.TrimPrefix(path, "/"+service)
	if stripped == "" {
		return "/"
	}
	return stripped
}

func splitPathQuery(path, rawQuery string) (string, url.Values, error) {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", nil, err
	}
	return path, q, nil
}

// authorizeAndInject branches on the route's protection kind (spec.md
// §4.7 step 6), populating extraHeaders with whatever must be forwarded
// upstream (x-mycelium-profile for every authenticated kind).
func (p *Pipeline) authorizeAndInject(r *http.Request, route routetable.Route, extraHeaders http.Header) error {
	switch route.Protection.Kind {
	case routetable.Public:
		return nil

	case routetable.Protected:
		prof, err := p.resolveCaller(r, resolver.Hints{})
		if err != nil {
			return err
		}
		return injectProfile(extraHeaders, prof)

	case routetable.ProtectedByRoles:
		hints, err := p.tenantHints(r)
		if err != nil {
			return err
		}
		hints.RequiredRoles = route.Protection.Roles
		prof, err := p.resolveCaller(r, hints)
		if err != nil {
			return err
		}
		return injectProfile(extraHeaders, prof)

	case routetable.ProtectedByPermissionedRoles:
		hints, err := p.tenantHints(r)
		if err != nil {
			return err
		}
		hints.RequiredPermissionedRoles = route.Protection.RolesWithPermission
		prof, err := p.resolveCaller(r, hints)
		if err != nil {
			return err
		}
		return injectProfile(extraHeaders, prof)

	case routetable.ProtectedByServiceTokenWithRole:
		return p.authorizeServiceToken(r, extraHeaders, route.Protection.Roles, nil)

	case routetable.ProtectedByServiceTokenWithPermissionedRoles:
		return p.authorizeServiceToken(r, extraHeaders, nil, route.Protection.RolesWithPermission)

	default:
		return merr.ErrInternal
	}
}

func (p *Pipeline) tenantHints(r *http.Request) (resolver.Hints, error) {
	raw := r.Header.Get(HeaderTenantID)
	if raw == "" {
		return resolver.Hints{}, merr.ErrTenantRequired
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return resolver.Hints{}, merr.ErrTenantRequired.Wrap(err)
	}
	return resolver.Hints{TenantID: tenantID, HasTenant: true}, nil
}

func (p *Pipeline) resolveCaller(r *http.Request, hints resolver.Hints) (profile.Profile, error) {
	bearer, err := bearerToken(r)
	if err != nil {
		return profile.Profile{}, err
	}
	result, err := p.Verifier.Verify(r.Context(), bearer)
	if err != nil {
		return profile.Profile{}, err
	}
	return p.Resolver.Resolve(r.Context(), result.Email, hints)
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", merr.ErrMissingBearerToken
	}
	return strings.TrimPrefix(header, prefix), nil
}

// authorizeServiceToken implements spec.md §4.7's ProtectedByServiceToken
// branch: the scope string travels in x-mycelium-scope, is signature-
// checked against the lifecycle secret, must not be expired, and must
// grant a superset of the route's required roles/permissioned roles.
func (p *Pipeline) authorizeServiceToken(r *http.Request, extraHeaders http.Header, requiredRoles []string, requiredPRs []profile.RoleWithPermission) error {
	raw := r.Header.Get(HeaderScope)
	if raw == "" {
		return merr.ErrMissingBearerToken
	}

	scope, err := token.ParseScope(raw)
	if err != nil {
		return err
	}
	sigBean, ok := scope.SigBean()
	if !ok {
		return merr.ErrServiceTokenScope
	}
	if !token.CheckToken(scope, p.LifecycleSecret, sigBean.Value) {
		return merr.ErrTokenVerification
	}

	expiration, ok := expirationOf(scope)
	if !ok || time.Now().After(expiration) {
		return merr.ErrServiceTokenExpired
	}

	if !scopeCoversRequirement(scope, requiredRoles, requiredPRs) {
		return merr.ErrServiceTokenScope
	}

	minimal, err := minimalProfileFromScope(scope)
	if err != nil {
		return err
	}
	return injectProfile(extraHeaders, minimal)
}

func expirationOf(scope token.Scope) (time.Time, bool) {
	for _, b := range scope {
		if b.Tag == token.TagEdt {
			t, err := token.ParseEdt(b)
			if err != nil {
				return time.Time{}, false
			}
			return t, true
		}
	}
	return time.Time{}, false
}

func scopeCoversRequirement(scope token.Scope, requiredRoles []string, requiredPRs []profile.RoleWithPermission) bool {
	var grantedRoles []string
	var grantedPRs []profile.RoleWithPermission
	for _, b := range scope {
		switch b.Tag {
		case token.TagRls:
			grantedRoles = b.Roles()
		case token.TagPr:
			prs, err := b.PermissionedRoles()
			if err == nil {
				grantedPRs = prs
			}
		}
	}

	for _, req := range requiredRoles {
		if !containsString(grantedRoles, req) {
			return false
		}
	}
	for _, req := range requiredPRs {
		if !containsPR(grantedPRs, req) {
			return false
		}
	}
	return true
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsPR(set []profile.RoleWithPermission, v profile.RoleWithPermission) bool {
	for _, s := range set {
		if s.Role == v.Role && s.Permission == v.Permission {
			return true
		}
	}
	return false
}

// minimalProfileFromScope builds the bare-bones Profile injected for a
// service-token caller: an account id (from the scope's aid bean, if
// present) and nothing else, since service tokens authorize an
// operation directly rather than a human identity.
func minimalProfileFromScope(scope token.Scope) (profile.Profile, error) {
	var accountID uuid.UUID
	for _, b := range scope {
		if b.Tag == token.TagAid {
			id, err := uuid.Parse(b.Value)
			if err != nil {
				return profile.Profile{}, merr.ErrBadFormat.Wrap(err)
			}
			accountID = id
		}
	}
	return profile.Profile{AccountID: accountID, TenantsOwnership: map[uuid.UUID]bool{}}, nil
}

func injectProfile(headers http.Header, prof profile.Profile) error {
	encoded, err := encodeProfileHeader(prof)
	if err != nil {
		return merr.ErrInternal.Wrap(err)
	}
	headers.Set(HeaderProfile, encoded)
	return nil
}

// forward builds the upstream request and streams the response back,
// implementing spec.md §4.7 steps 4, 5, 7, 8.
func (p *Pipeline) forward(w http.ResponseWriter, r *http.Request, route routetable.Route, remainder string, query url.Values, extraHeaders http.Header) {
	upstreamURL := strings.TrimRight(route.Upstream, "/") + remainder
	if encoded := query.Encode(); encoded != "" {
		upstreamURL += "?" + encoded
	}

	ctx, cancel := context.WithTimeout(r.Context(), UpstreamTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, r.Method, upstreamURL, r.Body)
	if err != nil {
		merr.WriteHTTP(w, r, merr.ErrUpstreamUnreachable.Wrap(err))
		return
	}
	copyForwardHeaders(req.Header, r.Header)
	for k, values := range extraHeaders {
		for _, v := range values {
			req.Header.Set(k, v)
		}
	}
	if peerIP := peerIP(r); peerIP != "" {
		req.Header.Set(HeaderForwardedFor, peerIP)
	}

	resp, err := p.client().Do(req)
	if err != nil {
		merr.WriteHTTP(w, r, merr.ErrUpstreamUnreachable.Wrap(err))
		return
	}
	defer resp.Body.Close()

	copyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func (p *Pipeline) client() *http.Client {
	return &http.Client{Transport: p.Transport}
}

func peerIP(r *http.Request) string {
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx >= 0 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}
