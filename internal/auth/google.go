package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleIssuer = "https://accounts.google.com"

// GoogleProvider signs users in with Google and trusts the verified ID token claims.
type GoogleProvider struct {
	oauthClient
	verifier *oidc.IDTokenVerifier
}

// googleClaims contains the relevant claims from a Google ID token.
type googleClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// NewGoogleProvider discovers Google's OIDC configuration and builds a provider.
func NewGoogleProvider(ctx context.Context, clientID, clientSecret string) (*GoogleProvider, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}
	return newGoogleProvider(clientID, clientSecret, google.Endpoint, provider.Verifier(&oidc.Config{ClientID: clientID})), nil
}

func newGoogleProvider(clientID, clientSecret string, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) *GoogleProvider {
	return &GoogleProvider{
		oauthClient: oauthClient{config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		}},
		verifier: verifier,
	}
}

// Name implements Provider.
func (g *GoogleProvider) Name() string {
	return "google"
}

// AuthURL implements Provider.
func (g *GoogleProvider) AuthURL(state, redirectURI string) string {
	return g.authURL(state, redirectURI, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange implements Provider.
func (g *GoogleProvider) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	return g.exchange(ctx, code, redirectURI)
}

// UserInfo verifies the id_token returned with token and maps its claims.
func (g *GoogleProvider) UserInfo(ctx context.Context, token *oauth2.Token) (*OAuthUserData, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("no id_token in response")
	}

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}

	return &OAuthUserData{
		Provider:      g.Name(),
		Subject:       claims.Sub,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}
