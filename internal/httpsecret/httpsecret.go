// Package httpsecret models a reversibly-encrypted outbound credential
// (an Authorization header or a query-string token) attached to a
// webhook or any other forwarded HTTP call.
//
// Grounded on the teacher's internal/crypto/tenant_secrets.go encryption
// scheme, generalized from "a single SMTP password field" to the two
// variants spec.md §4.2 requires, and reusing internal/cryptoutil rather
// than re-deriving a key from an env var per call.
package httpsecret

import "github.com/opsmycelium/gateway/internal/cryptoutil"

const redacted = "REDACTED"

// Kind discriminates the two ways a secret can be injected into a
// forwarded request.
type Kind string

const (
	KindAuthorizationHeader Kind = "authorization_header"
	KindQueryParameter      Kind = "query_parameter"
)

// HttpSecret is the closed sum from spec.md §4.2. Only one of the two
// shapes is meaningful for a given Kind; Name/Prefix/Token apply to
// both so callers don't need a type switch to read the token.
type HttpSecret struct {
	Kind   Kind
	Name   string // header name ("Authorization") or query parameter name
	Prefix string // e.g. "Bearer " -- only meaningful for header variant
	Token  string
}

// NewAuthorizationHeader builds the AuthorizationHeader variant.
func NewAuthorizationHeader(prefix, token string) HttpSecret {
	return HttpSecret{Kind: KindAuthorizationHeader, Name: "Authorization", Prefix: prefix, Token: token}
}

// NewQueryParameter builds the QueryParameter variant.
func NewQueryParameter(name, token string) HttpSecret {
	return HttpSecret{Kind: KindQueryParameter, Name: name, Token: token}
}

// EncryptMe returns a copy with Token sealed under the lifecycle secret.
// Name and Prefix are never touched.
func (s HttpSecret) EncryptMe(lifecycleSecret string) (HttpSecret, error) {
	ciphertext, err := cryptoutil.Encrypt(lifecycleSecret, s.Token)
	if err != nil {
		return HttpSecret{}, err
	}
	out := s
	out.Token = ciphertext
	return out, nil
}

// DecryptMe is the inverse of EncryptMe.
func (s HttpSecret) DecryptMe(lifecycleSecret string) (HttpSecret, error) {
	plaintext, err := cryptoutil.Decrypt(lifecycleSecret, s.Token)
	if err != nil {
		return HttpSecret{}, err
	}
	out := s
	out.Token = plaintext
	return out, nil
}

// RedactToken replaces Token with the literal "REDACTED" in place, for
// any read path that crosses a trust boundary (logs, audit trails, API
// responses).
func (s *HttpSecret) RedactToken() {
	s.Token = redacted
}

// HeaderValue returns the header name and value (Prefix + Token) to set
// on an outgoing request for the header variant; QueryValue returns the
// query key/value pair to append for the query-parameter variant. Each
// reports ok=false for the other variant.
func (s HttpSecret) HeaderValue() (name, value string, ok bool) {
	if s.Kind != KindAuthorizationHeader {
		return "", "", false
	}
	return s.Name, s.Prefix + s.Token, true
}

func (s HttpSecret) QueryValue() (name, value string, ok bool) {
	if s.Kind != KindQueryParameter {
		return "", "", false
	}
	return s.Name, s.Token, true
}
