package main

import (
	"context"
	"log/slog"

	"setlist/internal/auth"
	"setlist/internal/config"
)

// buildProviders constructs every enabled provider that has credentials.
// A provider that fails to initialize is skipped rather than blocking startup.
func buildProviders(ctx context.Context, cfg config.Config, logger *slog.Logger) []auth.Provider {
	var providers []auth.Provider
	for _, name := range cfg.OAuthProviders {
		creds, ok := cfg.ProviderCredentials(name)
		if !ok || creds.ClientID == "" || creds.ClientSecret == "" {
			logger.Info("oauth provider disabled: missing credentials", "provider", name)
			continue
		}

		switch name {
		case "google":
			p, err := auth.NewGoogleProvider(ctx, creds.ClientID, creds.ClientSecret)
			if err != nil {
				logger.Error("google provider unavailable", "error", err)
				continue
			}
			providers = append(providers, p)
		case "microsoft":
			providers = append(providers, auth.NewMicrosoftProvider(cfg.MicrosoftTenant, creds.ClientID, creds.ClientSecret))
		case "github":
			providers = append(providers, auth.NewGitHubProvider(creds.ClientID, creds.ClientSecret))
		default:
			logger.Warn("unsupported oauth provider", "provider", name)
			continue
		}
		logger.Info("oauth provider enabled", "provider", name)
	}
	return providers
}
