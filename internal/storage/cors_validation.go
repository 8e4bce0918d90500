package storage

import (
	"errors"
	"strings"
)

// ValidateCORSOrigins rejects wildcard origins and enforces HTTPS-only
// (except localhost), called when an admin updates a tenant's CORS
// config.
func ValidateCORSOrigins(origins []string) error {
	for _, origin := range origins {
		if origin == "*" {
			return errors.New("wildcard CORS origin not allowed")
		}
		if !strings.HasPrefix(origin, "https://") && !strings.HasPrefix(origin, "http://localhost") {
			return errors.New("only HTTPS origins allowed (except http://localhost for development)")
		}
		if origin == "" || strings.Contains(origin, " ") {
			return errors.New("invalid origin format")
		}
	}
	return nil
}
