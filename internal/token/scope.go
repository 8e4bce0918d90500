package token

import (
	"strings"
	"time"

	"github.com/opsmycelium/gateway/internal/cryptoutil"
	"github.com/opsmycelium/gateway/internal/merr"
)

// Scope is a Bean sequence, the thing a connection string actually
// authorizes (spec.md §4.3/GLOSSARY).
type Scope []Bean

// Serialize renders "bean1;bean2;...;beanN" with no trailing separator.
func (s Scope) Serialize() string {
	parts := make([]string, len(s))
	for i, b := range s {
		parts[i] = b.String()
	}
	return strings.Join(parts, ";")
}

// ParseScope is the inverse of Serialize. An unknown tag anywhere in the
// sequence fails the whole parse with merr.ErrBadFormat.
func ParseScope(raw string) (Scope, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ";")
	out := make(Scope, len(parts))
	for i, p := range parts {
		b, err := ParseBean(p)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// withoutSig drops any existing SIG bean, per spec.md §4.3 sign_token
// step 1.
func (s Scope) withoutSig() Scope {
	out := make(Scope, 0, len(s))
	for _, b := range s {
		if b.Tag == TagSig {
			continue
		}
		out = append(out, b)
	}
	return out
}

// WithSig appends a SIG bean, which canonical serialization always
// places last.
func (s Scope) WithSig(hexSig string) Scope {
	return append(s.withoutSig(), Sig(hexSig))
}

// SigBean returns the scope's SIG bean, if any.
func (s Scope) SigBean() (Bean, bool) {
	for _, b := range s {
		if b.Tag == TagSig {
			return b, true
		}
	}
	return Bean{}, false
}

// EdtBean formats an expiration as spec.md §4.3 requires: RFC-3339 with
// zone, truncated to seconds.
func EdtBean(expiration time.Time) Bean {
	return Edt(expiration.Truncate(time.Second).Format(time.RFC3339))
}

// ParseEdt normalizes the zone to local and truncates sub-second
// precision, per spec.md §4.3's "Datetime parse normalizes zone to
// local and truncates sub-second."
func ParseEdt(b Bean) (time.Time, error) {
	if b.Tag != TagEdt {
		return time.Time{}, merr.ErrBadFormat
	}
	t, err := time.Parse(time.RFC3339, b.Value)
	if err != nil {
		return time.Time{}, merr.ErrBadFormat.Wrap(err)
	}
	return t.Local().Truncate(time.Second), nil
}

// SignToken implements spec.md §4.3's sign_token: drop any existing SIG
// bean, compute the HMAC over the serialized remainder, append a fresh
// SIG bean, and return the hex signature. Deterministic in
// (scope-without-sig, secret): re-signing an already-signed scope
// reproduces the same signature, since the SIG bean dropped in step 1 is
// never part of what gets hashed.
func SignToken(scope Scope, secret string) (Scope, string) {
	withoutSig := scope.withoutSig()
	sig := cryptoutil.Sign(secret, withoutSig.Serialize())
	return withoutSig.WithSig(sig), sig
}

// CheckToken recomputes the signature over scope's non-SIG beans and
// compares it to candidateSig in constant time.
func CheckToken(scope Scope, secret, candidateSig string) bool {
	withoutSig := scope.withoutSig()
	return cryptoutil.Verify(secret, withoutSig.Serialize(), candidateSig)
}
