package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"sak/internal/tokencache"
	"sak/pkg/logging"
)

// tokenPath is appended to the API base URL to form the token endpoint.
const tokenPath = "/oauth/token"

// ClientCredentialsConfig describes a machine-to-machine API account.
type ClientCredentialsConfig struct {
	// Name identifies the provider in logs and errors.
	Name string

	// BaseURL is the API base; the token endpoint is BaseURL + "/oauth/token".
	BaseURL string

	ClientID     string
	ClientSecret string
	Scopes       []string
}

// ClientCredentialsOption configures a ClientCredentialsProvider.
type ClientCredentialsOption func(*ClientCredentialsProvider)

// WithCredentialsHTTPClient sets the HTTP client used for token requests.
func WithCredentialsHTTPClient(c *http.Client) ClientCredentialsOption {
	return func(p *ClientCredentialsProvider) {
		p.httpClient = c
	}
}

// WithCredentialsClock overrides the clock used for expiry decisions.
func WithCredentialsClock(now func() time.Time) ClientCredentialsOption {
	return func(p *ClientCredentialsProvider) {
		p.now = now
	}
}

type memoryToken struct {
	accessToken string
	expiresAt   time.Time
}

// ClientCredentialsProvider obtains access tokens with the OAuth2 client
// credentials grant and keeps the current one in memory only. It is safe
// for concurrent use.
type ClientCredentialsProvider struct {
	name       string
	cfg        clientcredentials.Config
	httpClient *http.Client
	now        func() time.Time

	mu    sync.Mutex
	token *memoryToken
}

// NewClientCredentialsProvider validates cfg and returns a provider.
func NewClientCredentialsProvider(cfg ClientCredentialsConfig, opts ...ClientCredentialsOption) (*ClientCredentialsProvider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("client credentials provider requires a base URL")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("client credentials provider requires a client ID and secret")
	}

	p := &ClientCredentialsProvider{
		name: cfg.Name,
		cfg: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     strings.TrimRight(cfg.BaseURL, "/") + tokenPath,
			Scopes:       cfg.Scopes,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the provider name.
func (p *ClientCredentialsProvider) Name() string {
	return p.name
}

// TokenURL returns the token endpoint requests are sent to.
func (p *ClientCredentialsProvider) TokenURL() string {
	return p.cfg.TokenURL
}

// Token returns a valid access token, requesting a new one when the held
// token is missing or expires within tokencache.ExpiryMargin.
func (p *ClientCredentialsProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.token != nil && p.token.expiresAt.Sub(now) > tokencache.ExpiryMargin {
		return p.token.accessToken, nil
	}

	logging.Debug("ClientCredentials", "Requesting access token for %s from %s", p.name, p.cfg.TokenURL)

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.tokenClient())
	tok, err := p.cfg.Token(ctx)
	if err != nil {
		return "", classifyTokenError(p.name, "client credentials grant", err)
	}

	lifetime, ok := expiresIn(tok)
	if !ok {
		return "", &ProtocolError{Op: "client credentials grant", Err: errors.New("token response has no expires_in")}
	}

	p.token = &memoryToken{
		accessToken: tok.AccessToken,
		expiresAt:   now.Add(lifetime),
	}
	logging.Debug("ClientCredentials", "Obtained access token for %s, expires at %s", p.name, p.token.expiresAt.Format(time.RFC3339))
	return tok.AccessToken, nil
}

// tokenClient wraps the configured HTTP client so the token request carries
// the raw client ID and secret in its Basic credentials. oauth2 URL-encodes
// both before encoding the header.
func (p *ClientCredentialsProvider) tokenClient() *http.Client {
	client := http.Client{}
	if p.httpClient != nil {
		client = *p.httpClient
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client.Transport = &basicAuthTransport{
		clientID:     p.cfg.ClientID,
		clientSecret: p.cfg.ClientSecret,
		base:         base,
	}
	return &client
}

type basicAuthTransport struct {
	clientID     string
	clientSecret string
	base         http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.clientID, t.clientSecret)
	return t.base.RoundTrip(req)
}

// Invalidate drops the held token so the next Token call requests a new
// one, for example after the API answered 401.
func (p *ClientCredentialsProvider) Invalidate() {
	p.mu.Lock()
	p.token = nil
	p.mu.Unlock()
}

// expiresIn reads the raw expires_in field of a token response. JSON bodies
// decode numbers as float64, form bodies as int64 or string.
func expiresIn(tok *oauth2.Token) (time.Duration, bool) {
	var secs int64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		secs = int64(v)
	case int64:
		secs = v
	case int:
		secs = int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		secs = n
	default:
		return 0, false
	}
	if secs <= 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// String describes the provider for diagnostics.
func (p *ClientCredentialsProvider) String() string {
	return fmt.Sprintf("client-credentials(%s)", p.name)
}
