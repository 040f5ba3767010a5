package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"setlist/internal/auth"
	"setlist/internal/config"
)

const (
	testJWTSecret   = "test-jwt-secret"
	testStateSecret = "test-state-secret"
	testCSRF        = "csrf-from-signin"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	return config.Config{
		Environment:     "development",
		JWTSecret:       testJWTSecret,
		StateHMACSecret: testStateSecret,
		DefaultLanguage: "en",
		RegisterPath:    "register",
	}
}

type limiterStub struct {
	allowed bool
	err     error
	calls   int
	buckets []string
}

func (l *limiterStub) Allow(_ context.Context, _ string, bucket string) (bool, error) {
	l.calls++
	l.buckets = append(l.buckets, bucket)
	return l.allowed, l.err
}

type providerStub struct {
	name string
}

func (p *providerStub) Name() string { return p.name }

func (p *providerStub) AuthURL(state, redirectURI string) string {
	return "https://idp.test/authorize?state=" + url.QueryEscape(state) + "&redirect_uri=" + url.QueryEscape(redirectURI)
}

func (p *providerStub) Exchange(context.Context, string, string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "access"}, nil
}

func (p *providerStub) UserInfo(context.Context, *oauth2.Token) (*auth.OAuthUserData, error) {
	return nil, nil
}

type serviceStub struct {
	providers map[string]auth.Provider
	fetch     func(ctx context.Context, params auth.FetchParams) (*auth.PreparedUser, error)
	resolve   func(ctx context.Context, user *auth.User) (auth.UserPublic, error)
	register  func(ctx context.Context, reg auth.RegistrationPayload, username, displayName string) (*auth.User, auth.UserPublic, error)

	fetchCalls   int
	resolveCalls int
	lastFetch    auth.FetchParams
}

func (s *serviceStub) Provider(name string) (auth.Provider, bool) {
	p, ok := s.providers[name]
	return p, ok
}

func (s *serviceStub) FetchAndPrepareUser(ctx context.Context, params auth.FetchParams) (*auth.PreparedUser, error) {
	s.fetchCalls++
	s.lastFetch = params
	if s.fetch != nil {
		return s.fetch(ctx, params)
	}
	return &auth.PreparedUser{OAuthUserData: testUserData(params.Provider)}, nil
}

func (s *serviceStub) ResolveUsername(ctx context.Context, user *auth.User) (auth.UserPublic, error) {
	s.resolveCalls++
	if s.resolve != nil {
		return s.resolve(ctx, user)
	}
	return auth.UserPublic{UserID: user.ID, Username: "ada"}, nil
}

func (s *serviceStub) RegisterUser(ctx context.Context, reg auth.RegistrationPayload, username, displayName string) (*auth.User, auth.UserPublic, error) {
	if s.register != nil {
		return s.register(ctx, reg, username, displayName)
	}
	user := testUser("google")
	return &user, auth.UserPublic{UserID: user.ID, Username: username, DisplayName: displayName}, nil
}

// stateSpy counts verifications performed by the wrapped codec.
type stateSpy struct {
	codec       *auth.StateCodec
	verifyCalls int
}

func (s *stateSpy) Sign(state auth.OAuthState) (string, error) {
	return s.codec.Sign(state)
}

func (s *stateSpy) Verify(token string) (auth.OAuthState, error) {
	s.verifyCalls++
	return s.codec.Verify(token)
}

func testUserData(provider string) auth.OAuthUserData {
	return auth.OAuthUserData{
		Provider: provider,
		Subject:  "subject-1",
		Email:    "ada@example.com",
		Name:     "Ada Lovelace",
	}
}

func testUser(providers ...string) auth.User {
	return auth.User{
		ID:              uuid.New(),
		Email:           "ada@example.com",
		Name:            "Ada Lovelace",
		LinkedProviders: providers,
	}
}

func signState(t *testing.T, state auth.OAuthState) string {
	t.Helper()
	token, err := auth.NewStateCodec(testStateSecret, "en").Sign(state)
	require.NoError(t, err)
	return token
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
