package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// Provider is an OAuth identity provider able to complete an authorization-code flow.
type Provider interface {
	// Name returns the identifier carried in OAuth state, e.g. "google".
	Name() string
	// AuthURL builds the consent URL. redirectURI must match the one later passed to Exchange.
	AuthURL(state, redirectURI string) string
	// Exchange trades an authorization code for provider tokens.
	Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)
	// UserInfo fetches and normalizes the signed-in user's profile.
	UserInfo(ctx context.Context, token *oauth2.Token) (*OAuthUserData, error)
}

// oauthClient carries the oauth2 configuration shared by every provider.
// RedirectURL is left empty and supplied per request.
type oauthClient struct {
	config oauth2.Config
}

func (c *oauthClient) withRedirect(redirectURI string) *oauth2.Config {
	cfg := c.config
	cfg.RedirectURL = redirectURI
	return &cfg
}

func (c *oauthClient) authURL(state, redirectURI string, opts ...oauth2.AuthCodeOption) string {
	return c.withRedirect(redirectURI).AuthCodeURL(state, opts...)
}

func (c *oauthClient) exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	token, err := c.withRedirect(redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	return token, nil
}

// getJSON fetches url with an authorized client and decodes the JSON body into dst.
func (c *oauthClient) getJSON(ctx context.Context, token *oauth2.Token, url string, dst any) error {
	client := c.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("get %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
