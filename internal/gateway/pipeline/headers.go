package pipeline

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/opsmycelium/gateway/internal/profile"
)

// Header names spec.md §6 fixes across the gateway boundary.
const (
	HeaderProfile  = "x-mycelium-profile"
	HeaderTenantID = "x-mycelium-tenant-id"
	HeaderScope    = "x-mycelium-scope"
	HeaderForwardedFor = "x-forwarded-for"
)

// hopByHop are stripped from the forwarded request per spec.md §4.7
// step 5 (RFC 7230 §6.1 connection-specific headers).
var hopByHop = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// copyForwardHeaders clones src into dst, dropping hop-by-hop headers
// and any client-supplied profile header (the gateway is the only
// party allowed to set x-mycelium-profile).
func copyForwardHeaders(dst, src http.Header) {
	for k, values := range src {
		if hopByHop[k] {
			continue
		}
		if strings.EqualFold(k, HeaderProfile) {
			continue
		}
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}

// responseHeaderDenylist excludes connection-level headers plus the
// internal profile and forwarding headers from what gets copied back to
// the client (spec.md §4.7 step 7). Keys are in canonical form.
var responseHeaderDenylist = map[string]bool{
	"Connection":         true,
	"Transfer-Encoding":  true,
	"X-Mycelium-Profile": true,
	"X-Forwarded-For":    true,
}

func copyResponseHeaders(dst, src http.Header) {
	for k, values := range src {
		if responseHeaderDenylist[k] {
			continue
		}
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}

// encodeProfileHeader base64-URL-safe-encodes the JSON profile per
// spec.md §6.
func encodeProfileHeader(p profile.Profile) (string, error) {
	body, err := json.Marshal(profileWireViewOf(p))
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(body), nil
}

// profileWireView is the JSON shape injected into x-mycelium-profile --
// deliberately narrower than the full Profile struct so filter-hint
// internals never cross the wire.
type profileWireView struct {
	AccountID         string                     `json:"account_id"`
	IsSubscription    bool                       `json:"is_subscription"`
	IsManager         bool                       `json:"is_manager"`
	IsStaff           bool                       `json:"is_staff"`
	VerboseStatus     profile.VerboseStatus      `json:"verbose_status"`
	LicensedResources []profile.LicensedResource `json:"licensed_resources"`
}

func profileWireViewOf(p profile.Profile) profileWireView {
	return profileWireView{
		AccountID:         p.AccountID.String(),
		IsSubscription:    p.IsSubscription,
		IsManager:         p.IsManager,
		IsStaff:           p.IsStaff,
		VerboseStatus:     p.VerboseStatus,
		LicensedResources: p.FilteredLicensedResources(),
	}
}
