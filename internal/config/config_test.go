package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, names ...string) {
	t.Helper()
	for _, n := range names {
		original, had := os.LookupEnv(n)
		os.Unsetenv(n)
		t.Cleanup(func() {
			if had {
				os.Setenv(n, original)
			}
		})
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t, "MYCELIUM_LISTEN_ADDR", "MYCELIUM_GATEWAY_TIMEOUT_SECONDS")
	os.Setenv("MYCELIUM_LIFECYCLE_SECRET", "secret")
	os.Setenv("MYCELIUM_DATABASE_URL", "postgres://localhost/db")
	os.Setenv("MYCELIUM_ISSUERS_JSON", `[{"issuer_url":"mycelium","audience":"gateway","secret":"internal-secret"}]`)
	t.Cleanup(func() {
		os.Unsetenv("MYCELIUM_LIFECYCLE_SECRET")
		os.Unsetenv("MYCELIUM_DATABASE_URL")
		os.Unsetenv("MYCELIUM_ISSUERS_JSON")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.GatewayTimeout)
	assert.Len(t, cfg.Issuers, 1)
	assert.Equal(t, "internal-secret", cfg.Issuers[0].Secret)
}

func TestLoadRejectsMissingLifecycleSecret(t *testing.T) {
	clearEnv(t, "MYCELIUM_LIFECYCLE_SECRET")
	os.Setenv("MYCELIUM_DATABASE_URL", "postgres://localhost/db")
	os.Setenv("MYCELIUM_ISSUERS_JSON", `[{"issuer_url":"mycelium","secret":"x"}]`)
	t.Cleanup(func() {
		os.Unsetenv("MYCELIUM_DATABASE_URL")
		os.Unsetenv("MYCELIUM_ISSUERS_JSON")
	})

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsMissingInternalIssuer(t *testing.T) {
	os.Setenv("MYCELIUM_LIFECYCLE_SECRET", "secret")
	os.Setenv("MYCELIUM_DATABASE_URL", "postgres://localhost/db")
	os.Setenv("MYCELIUM_ISSUERS_JSON", `[{"issuer_url":"https://idp.example.com","jwks_uri":"https://idp.example.com/jwks","audience":"gateway"}]`)
	t.Cleanup(func() {
		os.Unsetenv("MYCELIUM_LIFECYCLE_SECRET")
		os.Unsetenv("MYCELIUM_DATABASE_URL")
		os.Unsetenv("MYCELIUM_ISSUERS_JSON")
	})

	_, err := Load()
	require.Error(t, err)
}

func TestParseIssuersRejectsMalformedJSON(t *testing.T) {
	_, err := parseIssuers("not json")
	require.Error(t, err)
}

func TestGetEnvAsListSplitsAndTrims(t *testing.T) {
	os.Setenv("TEST_LIST", "a, b ,c")
	t.Cleanup(func() { os.Unsetenv("TEST_LIST") })

	assert.Equal(t, []string{"a", "b", "c"}, getEnvAsList("TEST_LIST"))
}
