package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ProviderCredentials holds the OAuth client registration for one provider.
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
}

// Config aggregates runtime configuration for the setlist API.
type Config struct {
	Environment    string
	HTTPPort       int
	DatabaseURL    string
	DataStore      string
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string

	JWTSecret       string
	StateHMACSecret string

	OAuthRedirectOrigin string
	OAuthRedirectPath   string
	OAuthProviders      []string
	Providers           map[string]ProviderCredentials
	MicrosoftTenant     string

	DefaultLanguage           string
	RegisterPath              string
	RegisterCookieClientDebug bool

	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads configuration from environment variables with sensible defaults for local development.
func Load() (Config, error) {
	databaseURL, err := getEnvOrFile("DATABASE_URL", "/run/secrets/setlist_database_url")
	if err != nil {
		return Config{}, err
	}

	jwtSecret, err := getEnvOrFile("JWT_SECRET", "/run/secrets/setlist_jwt_secret")
	if err != nil {
		return Config{}, err
	}

	stateSecret, err := getEnvOrFile("STATE_HMAC_SECRET", "/run/secrets/setlist_state_hmac_secret")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment:         strings.ToLower(getEnv("ENVIRONMENT", "development")),
		DatabaseURL:         databaseURL,
		DataStore:           strings.ToLower(getEnv("DATA_STORE", "memory")),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:           strings.ToLower(getEnv("LOG_FORMAT", "text")),
		AllowedOrigins:      parseCSV(os.Getenv("ALLOWED_ORIGINS")),
		JWTSecret:           strings.TrimSpace(jwtSecret),
		StateHMACSecret:     strings.TrimSpace(stateSecret),
		OAuthRedirectOrigin: strings.TrimSpace(os.Getenv("OAUTH_REDIRECT_ORIGIN")),
		OAuthRedirectPath:   strings.TrimSpace(os.Getenv("OAUTH_REDIRECT_PATH")),
		OAuthProviders:      parseCSV(strings.ToLower(getEnv("OAUTH_PROVIDERS", "google,microsoft,github"))),
		MicrosoftTenant:     getEnv("MICROSOFT_TENANT", "common"),
		DefaultLanguage:     getEnv("DEFAULT_LANGUAGE", "en"),
		RegisterPath:        strings.Trim(getEnv("REGISTER_PATH", "register"), "/"),
	}

	cfg.Providers = make(map[string]ProviderCredentials, len(cfg.OAuthProviders))
	for _, name := range cfg.OAuthProviders {
		creds := loadProviderCredentials(name)
		if creds.ClientID == "" || creds.ClientSecret == "" {
			continue
		}
		cfg.Providers[name] = creds
	}

	portValue := getEnv("PORT", getEnv("HTTP_PORT", "8080"))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", portValue, err)
	}
	cfg.HTTPPort = port

	debugValue := getEnv("REGISTER_COOKIE_CLIENT_DEBUG", "false")
	debug, err := strconv.ParseBool(debugValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid REGISTER_COOKIE_CLIENT_DEBUG %q: %w", debugValue, err)
	}
	cfg.RegisterCookieClientDebug = debug

	limitValue := getEnv("RATE_LIMIT_REQUESTS", "20")
	limit, err := strconv.Atoi(limitValue)
	if err != nil || limit <= 0 {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_REQUESTS %q", limitValue)
	}
	cfg.RateLimitRequests = limit

	windowValue := getEnv("RATE_LIMIT_WINDOW", "1m")
	window, err := time.ParseDuration(windowValue)
	if err != nil || window <= 0 {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_WINDOW %q", windowValue)
	}
	cfg.RateLimitWindow = window

	if cfg.DataStore == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATA_STORE is postgres but DATABASE_URL is not set")
	}

	if cfg.IsProduction() {
		if cfg.JWTSecret == "" {
			return Config{}, errors.New("JWT_SECRET is required in production")
		}
		if cfg.RegisterCookieClientDebug {
			return Config{}, errors.New("REGISTER_COOKIE_CLIENT_DEBUG cannot be enabled in production")
		}
		for _, origin := range cfg.AllowedOrigins {
			if origin == "*" {
				return Config{}, errors.New("ALLOWED_ORIGINS cannot contain wildcard in production")
			}
		}
	}

	return cfg, nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UseInMemoryStore returns true if the in-memory repository should be used.
func (c Config) UseInMemoryStore() bool {
	return c.DataStore == "memory"
}

// IsProduction reports whether production security defaults apply.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// StateSecret returns the key used to sign OAuth state, falling back to JWT_SECRET.
func (c Config) StateSecret() string {
	if c.StateHMACSecret != "" {
		return c.StateHMACSecret
	}
	return c.JWTSecret
}

// ProviderCredentials returns the client registration for the named provider.
func (c Config) ProviderCredentials(provider string) (ProviderCredentials, bool) {
	creds, ok := c.Providers[strings.ToLower(provider)]
	return creds, ok
}

// CORSOrigins returns the origins the CORS middleware should accept.
func (c Config) CORSOrigins() []string {
	if len(c.AllowedOrigins) > 0 {
		return c.AllowedOrigins
	}
	if c.IsProduction() {
		return nil
	}
	return []string{"http://localhost:5173", "http://localhost:3000"}
}

func loadProviderCredentials(name string) ProviderCredentials {
	prefix := strings.ToUpper(name)
	return ProviderCredentials{
		ClientID:     strings.TrimSpace(os.Getenv(prefix + "_CLIENT_ID")),
		ClientSecret: strings.TrimSpace(os.Getenv(prefix + "_CLIENT_SECRET")),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}
