// Package routetable implements the gateway's route matcher (spec.md
// §4.4): longest-prefix matching under the /adm/gw scope, followed by
// method gating.
package routetable

import (
	"sort"
	"strings"
	"sync"

	"github.com/opsmycelium/gateway/internal/profile"
)

// Method is one of the closed set of HTTP methods a route can allow.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// ProtectionKind discriminates the closed RouteType sum.
type ProtectionKind string

const (
	Public                            ProtectionKind = "public"
	Protected                         ProtectionKind = "protected"
	ProtectedByRoles                  ProtectionKind = "protected_by_roles"
	ProtectedByPermissionedRoles      ProtectionKind = "protected_by_permissioned_roles"
	ProtectedByServiceTokenWithRole   ProtectionKind = "protected_by_service_token_with_role"
	ProtectedByServiceTokenWithPermissionedRoles ProtectionKind = "protected_by_service_token_with_permissioned_roles"
)

// Protection carries the fields relevant to its Kind.
type Protection struct {
	Kind              ProtectionKind
	Roles             []string
	RolesWithPermission []profile.RoleWithPermission
}

// Route is a single gateway routing entry (spec.md §4.4).
type Route struct {
	Group   string
	Prefix  string // path prefix under /adm/gw used for matching, e.g. "/billing/invoices"
	Service string // first path segment, e.g. "billing" -- only this is stripped when forwarding upstream
	Methods map[Method]bool
	Upstream string // base URL of the upstream service
	Protection Protection
}

// AllowsMethod reports whether m is in Route's allowed set.
func (r Route) AllowsMethod(m Method) bool {
	return r.Methods[m]
}

// Table is the process-wide, read-mostly route table (spec.md §5:
// "read-mostly... readers never block writers visible to the hot
// path"). Updates replace the whole slice under the write lock so
// readers taking the read lock never observe a partially built table.
type Table struct {
	mu     sync.RWMutex
	routes []Route
}

func NewTable() *Table {
	return &Table{}
}

// Replace atomically swaps the table's contents, pre-sorting by prefix
// length descending so Match's linear scan finds the longest prefix
// first.
func (t *Table) Replace(routes []Route) {
	sorted := make([]Route, len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes = sorted
}

// Snapshot returns a copy of every route currently loaded, for the
// admin API's read-only listing and as the basis for Upsert/Delete.
func (t *Table) Snapshot() []Route {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Upsert replaces the route with the same Prefix, or appends r if no
// route has that prefix yet. The admin API calls this for individual
// route-table edits; Replace remains the bulk-reload path.
func (t *Table) Upsert(r Route) {
	routes := t.Snapshot()
	for i, existing := range routes {
		if existing.Prefix == r.Prefix {
			routes[i] = r
			t.Replace(routes)
			return
		}
	}
	t.Replace(append(routes, r))
}

// Delete removes the route with the given prefix, reporting whether one
// was found.
func (t *Table) Delete(prefix string) bool {
	routes := t.Snapshot()
	for i, existing := range routes {
		if existing.Prefix == prefix {
			t.Replace(append(routes[:i], routes[i+1:]...))
			return true
		}
	}
	return false
}

// MatchResult is what Match returns: either a matched route, or no
// match at all. Remainder is the path with the full matched Prefix
// stripped -- a matching diagnostic, not the forwarded upstream path:
// spec.md §4.7 step 4 strips only the route's Service segment, which
// may be shorter than Prefix for routes matched on a longer,
// more-specific prefix.
type MatchResult struct {
	Route     Route
	Remainder string
	Matched   bool
}

// Match finds the longest-prefix route for path (already stripped of
// the /adm/gw scope), per spec.md §4.4. It does not check the method --
// callers gate that separately so a prefix match with a disallowed
// method can be distinguished (405) from no match at all (400).
func (t *Table) Match(path string) MatchResult {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, r := range t.routes {
		if strings.HasPrefix(path, r.Prefix) {
			return MatchResult{
				Route:     r,
				Remainder: strings.TrimPrefix(path, r.Prefix),
				Matched:   true,
			}
		}
	}
	return MatchResult{}
}
