package profile

import "github.com/google/uuid"

// Permission is the closed Read/Write sum used throughout the token and
// profile layers.
type Permission int

const (
	PermissionRead Permission = iota
	PermissionWrite
)

func (p Permission) String() string {
	if p == PermissionWrite {
		return "Write"
	}
	return "Read"
}

// ParsePermission parses the "Read"/"Write" wire form, also accepting
// all-lowercase "read"/"write"; any other casing is rejected.
func ParsePermission(s string) (Permission, bool) {
	switch s {
	case "Read", "read":
		return PermissionRead, true
	case "Write", "write":
		return PermissionWrite, true
	default:
		return 0, false
	}
}

// LicensedResource is a single (tenant, account, role, permission)
// grant the caller holds, per spec.md §3.
type LicensedResource struct {
	TenantID    uuid.UUID
	AccountID   uuid.UUID
	Role        string
	Permission  Permission
	SysAcc      bool
	Verified    bool
	AccountName string
}
