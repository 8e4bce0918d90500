package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Email is a verified local@domain pair, kept split so token Beans and
// repository lookups can filter on username/domain independently
// (spec.md §4.3 step 1: "Locate candidate tokens by (email.username,
// email.domain, user_id)").
type Email struct {
	Username string
	Domain   string
}

func ParseEmail(raw string) (Email, error) {
	at := strings.LastIndexByte(raw, '@')
	if at <= 0 || at == len(raw)-1 {
		return Email{}, fmt.Errorf("profile: %q is not a valid email", raw)
	}
	return Email{Username: raw[:at], Domain: raw[at+1:]}, nil
}

func (e Email) String() string { return e.Username + "@" + e.Domain }

// ProviderKind discriminates the closed User.Provider sum.
type ProviderKind string

const (
	ProviderInternal ProviderKind = "internal"
	ProviderExternal ProviderKind = "external"
)

// Provider carries the fields relevant to its Kind: PasswordHash for
// Internal, Name (the external IdP's identifier, e.g. an issuer slug)
// for External.
type Provider struct {
	Kind         ProviderKind
	PasswordHash string
	Name         string
}

// MFADescriptor is the optional TOTP enrollment on a User. Secret is
// always redacted (zeroed) on any read path that crosses a trust
// boundary -- see Redacted().
type MFADescriptor struct {
	Enabled      bool
	TOTPSecret   string
	BackupHashes []string
	EnrolledAt   time.Time
}

// Redacted returns a copy with secret material stripped, safe to
// serialize across a trust boundary (API responses, logs).
func (m MFADescriptor) Redacted() MFADescriptor {
	out := m
	out.TOTPSecret = ""
	out.BackupHashes = nil
	return out
}

// User is the spec.md §3 User entity.
type User struct {
	ID          uuid.UUID
	Username    string
	Email       Email
	FirstName   string
	LastName    string
	IsActive    bool
	IsPrincipal bool
	AccountID   uuid.UUID
	Provider    Provider
	MFA         *MFADescriptor
}
