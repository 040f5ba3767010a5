package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubProvider signs users in with GitHub. GitHub speaks plain OAuth 2.0, so
// identity comes from its REST API rather than an ID token.
type GitHubProvider struct {
	oauthClient
	apiBaseURL string
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// NewGitHubProvider creates a GitHub provider.
func NewGitHubProvider(clientID, clientSecret string) *GitHubProvider {
	return newGitHubProvider(clientID, clientSecret, github.Endpoint, "https://api.github.com")
}

func newGitHubProvider(clientID, clientSecret string, endpoint oauth2.Endpoint, apiBaseURL string) *GitHubProvider {
	return &GitHubProvider{
		oauthClient: oauthClient{config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{"read:user", "user:email"},
		}},
		apiBaseURL: apiBaseURL,
	}
}

// Name implements Provider.
func (p *GitHubProvider) Name() string {
	return "github"
}

// AuthURL implements Provider.
func (p *GitHubProvider) AuthURL(state, redirectURI string) string {
	return p.authURL(state, redirectURI)
}

// Exchange implements Provider.
func (p *GitHubProvider) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	return p.exchange(ctx, code, redirectURI)
}

// UserInfo fetches the profile and, when the profile email is private, the primary verified email.
func (p *GitHubProvider) UserInfo(ctx context.Context, token *oauth2.Token) (*OAuthUserData, error) {
	var user githubUser
	if err := p.getJSON(ctx, token, p.apiBaseURL+"/user", &user); err != nil {
		return nil, fmt.Errorf("github user: %w", err)
	}

	// The profile only exposes verified emails.
	email := user.Email
	verified := email != ""
	if email == "" {
		var err error
		email, verified, err = p.primaryEmail(ctx, token)
		if err != nil {
			return nil, err
		}
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}

	return &OAuthUserData{
		Provider:      p.Name(),
		Subject:       strconv.FormatInt(user.ID, 10),
		Email:         email,
		EmailVerified: verified,
		Name:          name,
		Picture:       user.AvatarURL,
	}, nil
}

func (p *GitHubProvider) primaryEmail(ctx context.Context, token *oauth2.Token) (string, bool, error) {
	var emails []githubEmail
	if err := p.getJSON(ctx, token, p.apiBaseURL+"/user/emails", &emails); err != nil {
		return "", false, fmt.Errorf("github emails: %w", err)
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, true, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, true, nil
		}
	}
	return "", false, errors.New("github emails: no verified email found")
}
