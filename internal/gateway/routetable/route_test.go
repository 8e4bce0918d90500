package routetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable()
	tbl.Replace([]Route{
		{
			Group:    "billing",
			Prefix:   "/billing",
			Service:  "billing",
			Upstream: "http://billing.internal",
			Methods:  map[Method]bool{MethodGet: true},
			Protection: Protection{Kind: Public},
		},
		{
			Group:    "billing-invoices",
			Prefix:   "/billing/invoices",
			Service:  "billing",
			Upstream: "http://billing.internal",
			Methods:  map[Method]bool{MethodGet: true, MethodPost: true},
			Protection: Protection{Kind: Protected},
		},
	})
	return tbl
}

func TestMatchPrefersLongestPrefix(t *testing.T) {
	t.Parallel()

	tbl := newTable(t)
	res := tbl.Match("/billing/invoices/123")
	assert.True(t, res.Matched)
	assert.Equal(t, "billing-invoices", res.Route.Group)
	assert.Equal(t, "/123", res.Remainder)
}

func TestMatchFallsBackToShorterPrefix(t *testing.T) {
	t.Parallel()

	tbl := newTable(t)
	res := tbl.Match("/billing/accounts")
	assert.True(t, res.Matched)
	assert.Equal(t, "billing", res.Route.Group)
	assert.Equal(t, "/accounts", res.Remainder)
}

func TestMatchNoneFound(t *testing.T) {
	t.Parallel()

	tbl := newTable(t)
	res := tbl.Match("/unknown/path")
	assert.False(t, res.Matched)
}

func TestAllowsMethodGatesAfterMatch(t *testing.T) {
	t.Parallel()

	tbl := newTable(t)
	res := tbl.Match("/billing/invoices/123")
	assert.True(t, res.Matched)
	assert.True(t, res.Route.AllowsMethod(MethodPost))
	assert.False(t, res.Route.AllowsMethod(MethodDelete))
}

func TestReplaceIsAtomic(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	tbl.Replace([]Route{{Prefix: "/a", Methods: map[Method]bool{MethodGet: true}}})
	assert.True(t, tbl.Match("/a/1").Matched)

	tbl.Replace([]Route{{Prefix: "/b", Methods: map[Method]bool{MethodGet: true}}})
	assert.False(t, tbl.Match("/a/1").Matched)
	assert.True(t, tbl.Match("/b/1").Matched)
}
