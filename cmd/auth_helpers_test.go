package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sak/internal/auth"
	"sak/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "expired"},
		{30 * time.Second, "< 1 minute"},
		{time.Minute, "1 minute"},
		{5 * time.Minute, "5 minutes"},
		{time.Hour, "1 hour"},
		{3 * time.Hour, "3 hours"},
		{24 * time.Hour, "1 day"},
		{72 * time.Hour, "3 days"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d), "duration %s", tt.d)
	}
}

func TestFormatExpiryWithDirection(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "in 2 hours", formatExpiryWithDirection(now.Add(2*time.Hour+time.Minute), now))
	assert.Contains(t, formatExpiryWithDirection(now.Add(-10*time.Minute), now), "expired 10 minutes ago")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "***", maskSecret("abc"))
	assert.Equal(t, "********6789", maskSecret("0123456789"))
}

func TestDescribeIdentity(t *testing.T) {
	assert.Empty(t, describeIdentity("not-a-jwt"))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"upn": "grace@example.com",
		"sub": "user-2",
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", describeIdentity(token))

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-3"}).SignedString([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "user-3", describeIdentity(token))
}

func TestNewProvider_GrantTypes(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	cc, err := newProvider(ctx, clientCredentialsProvider("https://api.example.com"), providerOptions{})
	require.NoError(t, err)
	assert.IsType(t, &auth.ClientCredentialsProvider{}, cc)
	assert.Equal(t, "mimecast", cc.Name())

	interactive, err := newProvider(ctx, interactiveProvider().WithDefaults(), providerOptions{quiet: true})
	require.NoError(t, err)
	assert.IsType(t, &auth.InteractiveAuthController{}, interactive)
	assert.Equal(t, "graph", interactive.Name())

	_, err = newProvider(ctx, config.ProviderConfig{Name: "x", GrantType: "implicit"}, providerOptions{})
	require.Error(t, err)
}

func TestNewProvider_Discovery(t *testing.T) {
	keyring.MockInit()

	var issuer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"issuer":                 issuer,
			"authorization_endpoint": issuer + "/authorize",
			"token_endpoint":         issuer + "/token",
			"jwks_uri":               issuer + "/keys",
		})
	}))
	defer server.Close()
	issuer = server.URL

	p := config.ProviderConfig{
		Name:      "okta",
		GrantType: config.GrantTypeAuthorizationCode,
		ClientID:  "id",
		Authority: issuer,
	}.WithDefaults()

	endpoint, err := auth.DiscoverEndpoints(context.Background(), issuer, nil)
	require.NoError(t, err)
	assert.Equal(t, issuer+"/authorize", endpoint.AuthURL)
	assert.Equal(t, issuer+"/token", endpoint.TokenURL)

	provider, err := newProvider(context.Background(), p, providerOptions{quiet: true})
	require.NoError(t, err)
	assert.Equal(t, "okta", provider.Name())
}

func TestNewProvider_DiscoveryFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	p := config.ProviderConfig{
		Name:      "okta",
		GrantType: config.GrantTypeAuthorizationCode,
		ClientID:  "id",
		Authority: server.URL,
	}.WithDefaults()

	_, err := newProvider(context.Background(), p, providerOptions{quiet: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to discover OIDC provider")
}
