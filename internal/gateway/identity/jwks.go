package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// JWK is a single JSON Web Key, the fields this gateway ever needs to
// read (grounded on the teacher's JWK/JWKS shape in its retired
// token.go, generalized from "the one key we issue" to "any key a
// configured issuer publishes").
type JWK struct {
	Kty string   `json:"kty"`
	Kid string   `json:"kid"`
	Use string   `json:"use"`
	Alg string   `json:"alg"`
	N   string   `json:"n"`
	E   string   `json:"e"`
	X5C []string `json:"x5c,omitempty"`
}

// JWKS is a JSON Web Key Set document.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

func (s JWKS) byKid(kid string) (JWK, bool) {
	for _, k := range s.Keys {
		if k.Kid == kid {
			return k, true
		}
	}
	return JWK{}, false
}

// JWKSFetchTimeout bounds the JWKS HTTP fetch (spec.md §5: "JWKS fetch
// has its own short deadline (5 s)").
const JWKSFetchTimeout = 5 * time.Second

type cachedJWKS struct {
	set       JWKS
	fetchedAt time.Time
}

// JWKSCache is the process-wide, read-mostly JWKS cache (spec.md §5).
// A lookup miss or an expired TTL triggers a refetch; a refetch failure
// falls back to the stale cached entry if one exists, per §5's "falls
// through to cache on failure if a cached key for kid exists."
type JWKSCache struct {
	httpClient *http.Client
	ttl        time.Duration

	mu    sync.RWMutex
	cache map[string]cachedJWKS // keyed by jwks_uri
}

func NewJWKSCache(ttl time.Duration) *JWKSCache {
	return &JWKSCache{
		httpClient: &http.Client{Timeout: JWKSFetchTimeout},
		ttl:        ttl,
		cache:      map[string]cachedJWKS{},
	}
}

// Key resolves kid against jwksURI, fetching or refreshing the set as
// needed. On fetch failure, it falls back to a stale cached set if the
// requested kid is present there.
func (c *JWKSCache) Key(ctx context.Context, jwksURI, kid string) (JWK, error) {
	c.mu.RLock()
	entry, ok := c.cache[jwksURI]
	c.mu.RUnlock()

	fresh := ok && time.Since(entry.fetchedAt) < c.ttl
	if fresh {
		if key, found := entry.set.byKid(kid); found {
			return key, nil
		}
		// Unknown kid: refresh once even though the cache is still
		// fresh, per §4.5 "refresh on unknown kid".
	}

	fetched, err := c.fetch(ctx, jwksURI)
	if err != nil {
		if ok {
			if key, found := entry.set.byKid(kid); found {
				return key, nil
			}
		}
		return JWK{}, fmt.Errorf("identity: fetching jwks from %s: %w", jwksURI, err)
	}

	c.mu.Lock()
	c.cache[jwksURI] = cachedJWKS{set: fetched, fetchedAt: time.Now()}
	c.mu.Unlock()

	if key, found := fetched.byKid(kid); found {
		return key, nil
	}
	return JWK{}, fmt.Errorf("identity: kid %q not found in jwks at %s", kid, jwksURI)
}

func (c *JWKSCache) fetch(ctx context.Context, jwksURI string) (JWKS, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, JWKSFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return JWKS{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return JWKS{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return JWKS{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var set JWKS
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return JWKS{}, fmt.Errorf("decoding jwks: %w", err)
	}
	return set, nil
}
