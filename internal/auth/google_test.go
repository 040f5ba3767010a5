package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestGenerateTokenIsUnique(t *testing.T) {
	first, err := GenerateToken()
	require.NoError(t, err)
	second, err := GenerateToken()
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestGoogleAuthURLCarriesRedirectAndPrompt(t *testing.T) {
	provider := newGoogleProvider("client-id", "secret", oauth2.Endpoint{AuthURL: "https://auth.test/oauth"}, nil)

	authURL := provider.AuthURL("state123", "http://localhost:5173/api/auth/callback")
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "select_account", query.Get("prompt"))
	assert.Equal(t, "state123", query.Get("state"))
	assert.Equal(t, "http://localhost:5173/api/auth/callback", query.Get("redirect_uri"))
	assert.Equal(t, "client-id", query.Get("client_id"))
}

func TestGoogleExchangeAndVerifyIDToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	idToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":            googleIssuer,
		"aud":            "client-id",
		"sub":            "google-sub",
		"email":          "ada@example.com",
		"email_verified": true,
		"name":           "Ada",
		"picture":        "https://img.test/ada.png",
		"iat":            time.Now().Unix(),
		"exp":            time.Now().Add(time.Hour).Unix(),
	}).SignedString(key)
	require.NoError(t, err)

	var gotRedirect string
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		gotRedirect = r.PostForm.Get("redirect_uri")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idToken,
		})
	}))
	defer tokenServer.Close()

	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}}
	verifier := oidc.NewVerifier(googleIssuer, keySet, &oidc.Config{ClientID: "client-id"})
	provider := newGoogleProvider("client-id", "secret", oauth2.Endpoint{
		TokenURL:  tokenServer.URL,
		AuthStyle: oauth2.AuthStyleInParams,
	}, verifier)

	token, err := provider.Exchange(context.Background(), "code-123", "https://setlist.test/api/auth/callback")
	require.NoError(t, err)
	assert.Equal(t, "https://setlist.test/api/auth/callback", gotRedirect)

	data, err := provider.UserInfo(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &OAuthUserData{
		Provider:      "google",
		Subject:       "google-sub",
		Email:         "ada@example.com",
		EmailVerified: true,
		Name:          "Ada",
		Picture:       "https://img.test/ada.png",
	}, data)
}

func TestGoogleUserInfoRequiresIDToken(t *testing.T) {
	provider := newGoogleProvider("client-id", "secret", oauth2.Endpoint{}, nil)

	_, err := provider.UserInfo(context.Background(), &oauth2.Token{AccessToken: "access"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no id_token")
}
