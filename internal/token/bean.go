// Package token implements the connection-string token core from
// spec.md §4.3: the Bean/Scope wire format, signing, issuance, and
// single-use consumption.
package token

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/merr"
	"github.com/opsmycelium/gateway/internal/profile"
)

// Tag is one of the closed set of lowercase Bean keys from spec.md §4.3.
type Tag string

const (
	TagSig Tag = "sig"
	TagEdt Tag = "edt"
	TagTid Tag = "tid"
	TagAid Tag = "aid"
	TagSid Tag = "sid"
	TagRls Tag = "rls"
	TagPm  Tag = "pm"
	TagPr  Tag = "pr"
	TagUrl Tag = "url"
)

// Bean is a single tagged key-value pair. Value is its already-encoded
// wire form (comma-joined roles, hex signature, etc); Bean itself does
// not know how to interpret it beyond round-tripping the string.
type Bean struct {
	Tag   Tag
	Value string
}

// String renders "tag=value".
func (b Bean) String() string {
	return string(b.Tag) + "=" + b.Value
}

// ParseBean parses "tag=value", case-insensitive on the tag. Leading/
// trailing whitespace around the whole bean is tolerated (spec.md §8
// law 2 example: " sig=abc" parses to SIG("abc")).
func ParseBean(raw string) (Bean, error) {
	trimmed := strings.TrimSpace(raw)
	eq := strings.IndexByte(trimmed, '=')
	if eq < 0 {
		return Bean{}, merr.ErrBadFormat.Wrap(fmt.Errorf("bean %q has no '='", raw))
	}
	tag := Tag(strings.ToLower(strings.TrimSpace(trimmed[:eq])))
	value := trimmed[eq+1:]

	switch tag {
	case TagSig, TagEdt, TagTid, TagAid, TagSid, TagRls, TagPm, TagPr, TagUrl:
		return Bean{Tag: tag, Value: value}, nil
	default:
		return Bean{}, merr.ErrBadFormat.Wrap(fmt.Errorf("unknown bean tag %q", tag))
	}
}

// Sig builds the signature bean.
func Sig(hexSig string) Bean { return Bean{Tag: TagSig, Value: hexSig} }

// Edt builds the expiration bean from an RFC-3339 string truncated to
// seconds; callers format the timestamp before calling this (see
// scope.go's EdtBean helper for the canonical formatting).
func Edt(rfc3339 string) Bean { return Bean{Tag: TagEdt, Value: rfc3339} }

// Tid builds the tenant-id bean.
func Tid(id uuid.UUID) Bean { return Bean{Tag: TagTid, Value: id.String()} }

// Aid builds the account-id bean.
func Aid(id uuid.UUID) Bean { return Bean{Tag: TagAid, Value: id.String()} }

// Sid builds the subscription-account-id bean.
func Sid(id uuid.UUID) Bean { return Bean{Tag: TagSid, Value: id.String()} }

// Rls builds the comma-separated role-slugs bean.
func Rls(roles []string) Bean { return Bean{Tag: TagRls, Value: strings.Join(roles, ",")} }

// Roles parses an Rls bean's value back into role slugs.
func (b Bean) Roles() []string {
	if b.Value == "" {
		return nil
	}
	return strings.Split(b.Value, ",")
}

// Pm builds the single-permission bean ("Read"/"Write").
func Pm(p profile.Permission) Bean { return Bean{Tag: TagPm, Value: p.String()} }

// Pr builds the comma-separated "role:permission_int" bean, matching
// spec.md §8 law 2's example: PR([("r1",Read),("r1",Write),("r2",Read)])
// -> "pr=r1:0,r1:1,r2:0".
func Pr(prs []profile.RoleWithPermission) Bean {
	parts := make([]string, len(prs))
	for i, pr := range prs {
		parts[i] = fmt.Sprintf("%s:%d", pr.Role, permissionInt(pr.Permission))
	}
	return Bean{Tag: TagPr, Value: strings.Join(parts, ",")}
}

// PermissionedRoles parses a Pr bean's value back into role/permission
// pairs.
func (b Bean) PermissionedRoles() ([]profile.RoleWithPermission, error) {
	if b.Value == "" {
		return nil, nil
	}
	parts := strings.Split(b.Value, ",")
	out := make([]profile.RoleWithPermission, len(parts))
	for i, p := range parts {
		idx := strings.LastIndexByte(p, ':')
		if idx < 0 {
			return nil, merr.ErrBadFormat.Wrap(fmt.Errorf("malformed pr entry %q", p))
		}
		n, err := strconv.Atoi(p[idx+1:])
		if err != nil || (n != 0 && n != 1) {
			return nil, merr.ErrBadFormat.Wrap(fmt.Errorf("malformed pr permission in %q", p))
		}
		perm := profile.PermissionRead
		if n == 1 {
			perm = profile.PermissionWrite
		}
		out[i] = profile.RoleWithPermission{Role: p[:idx], Permission: perm}
	}
	return out, nil
}

func permissionInt(p profile.Permission) int {
	if p == profile.PermissionWrite {
		return 1
	}
	return 0
}

// Url builds the endpoint-URL bean.
func Url(url string) Bean { return Bean{Tag: TagUrl, Value: url} }
