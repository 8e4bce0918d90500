package middleware

import (
	"context"
	"fmt"

	"github.com/opsmycelium/gateway/internal/profile"
)

// contextKey is a custom type for context keys to avoid collisions with
// other packages.
type contextKey string

// ProfileKey is the request-scoped key Authenticate stores the
// resolved caller Profile under.
const ProfileKey contextKey = "profile"

// GetProfile safely extracts the caller Profile from context. Returns
// an error if the value is missing or wrong type.
func GetProfile(ctx context.Context) (profile.Profile, error) {
	val := ctx.Value(ProfileKey)
	if val == nil {
		return profile.Profile{}, fmt.Errorf("profile not found in context")
	}
	p, ok := val.(profile.Profile)
	if !ok {
		return profile.Profile{}, fmt.Errorf("profile has wrong type: %T", val)
	}
	return p, nil
}

// MustGetProfile extracts the Profile and panics if not found. Use only
// downstream of Authenticate, which guarantees it is set.
func MustGetProfile(ctx context.Context) profile.Profile {
	p, err := GetProfile(ctx)
	if err != nil {
		panic(fmt.Sprintf("middleware: %v", err))
	}
	return p
}
