package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DATA_STORE", "memory")
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STATE_HMAC_SECRET", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("OAUTH_PROVIDERS", "")
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")
	t.Setenv("REGISTER_COOKIE_CLIENT_DEBUG", "")
	t.Setenv("RATE_LIMIT_REQUESTS", "")
	t.Setenv("RATE_LIMIT_WINDOW", "")
}

func TestLoadDefaultsForDevelopment(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.Equal(t, "register", cfg.RegisterPath)
	assert.Equal(t, []string{"google", "microsoft", "github"}, cfg.OAuthProviders)
	assert.Equal(t, 20, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.True(t, cfg.UseInMemoryStore())
	assert.Equal(t, ":8080", cfg.HTTPAddress())
}

func TestLoadResolvesProviderCredentialsByName(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("OAUTH_PROVIDERS", "Google, github")
	t.Setenv("GOOGLE_CLIENT_ID", "google-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "google-secret")
	t.Setenv("GITHUB_CLIENT_ID", "github-id")
	t.Setenv("GITHUB_CLIENT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	creds, ok := cfg.ProviderCredentials("GOOGLE")
	require.True(t, ok)
	assert.Equal(t, "google-id", creds.ClientID)
	assert.Equal(t, "google-secret", creds.ClientSecret)

	_, ok = cfg.ProviderCredentials("github")
	assert.False(t, ok, "provider without a secret should be skipped")
}

func TestStateSecretFallsBackToJWTSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "jwt-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "jwt-secret", cfg.StateSecret())

	cfg.StateHMACSecret = "state-secret"
	assert.Equal(t, "state-secret", cfg.StateSecret())
}

func TestLoadReadsSecretFromFile(t *testing.T) {
	setBaseEnv(t)
	path := filepath.Join(t.TempDir(), "jwt")
	require.NoError(t, os.WriteFile(path, []byte("  file-secret\n"), 0o600))
	t.Setenv("JWT_SECRET_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
}

func TestLoadRequiresJWTSecretInProduction(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ALLOWED_ORIGINS", "https://setlist.example")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestLoadRejectsClientDebugCookieInProduction(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("REGISTER_COOKIE_CLIENT_DEBUG", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REGISTER_COOKIE_CLIENT_DEBUG")
}

func TestLoadRejectsWildcardOriginsInProduction(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ALLOWED_ORIGINS", "https://setlist.example,*")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot contain wildcard")
}

func TestLoadRequiresDatabaseURLForPostgres(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATA_STORE", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is not set")
}

func TestLoadRejectsInvalidRateLimitWindow(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("RATE_LIMIT_WINDOW", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_WINDOW")
}

func TestCORSOriginsDefaultsOnlyOutsideProduction(t *testing.T) {
	dev := Config{Environment: "development"}
	assert.NotEmpty(t, dev.CORSOrigins())

	prod := Config{Environment: "production"}
	assert.Empty(t, prod.CORSOrigins())

	configured := Config{Environment: "production", AllowedOrigins: []string{"https://setlist.example"}}
	assert.Equal(t, []string{"https://setlist.example"}, configured.CORSOrigins())
}
