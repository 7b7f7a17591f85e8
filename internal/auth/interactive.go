package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"sak/internal/tokencache"
	"sak/pkg/logging"
)

// DefaultTokenLifetime is assumed when a token response omits expires_in.
const DefaultTokenLifetime = time.Hour

// AuthState is a step of the interactive login state machine.
type AuthState int

const (
	// StateIdle means no flow is running and the cache has not been consulted.
	StateIdle AuthState = iota
	// StateBuildingRequest means the session and authorization URL are being prepared.
	StateBuildingRequest
	// StateAwaitingBrowserCallback means the user is expected to finish in the browser.
	StateAwaitingBrowserCallback
	// StateExchangingCode means the authorization code is being redeemed.
	StateExchangingCode
	// StateCached means a valid token is in the cache.
	StateCached
	// StateFailed means the last flow failed.
	StateFailed
)

// String returns a human-readable representation of the auth state.
func (s AuthState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuildingRequest:
		return "building_request"
	case StateAwaitingBrowserCallback:
		return "awaiting_browser_callback"
	case StateExchangingCode:
		return "exchanging_code"
	case StateCached:
		return "cached"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TokenStore is the persistence used by the interactive controller.
// *tokencache.Cache implements it.
type TokenStore interface {
	Get() (tokencache.CachedToken, bool, error)
	GetIncludingExpiring() (tokencache.CachedToken, bool, error)
	Save(token tokencache.CachedToken) error
	Clear() error
}

// InteractiveConfig describes a user-delegated provider using the
// authorization code grant with PKCE.
type InteractiveConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string

	CallbackPort int
	CallbackPath string

	// PKCEMethod is "S256" (default) or "plain".
	PKCEMethod string

	// ExtraAuthParams are appended to the authorization URL, e.g. prompt.
	ExtraAuthParams map[string]string

	// Refresh enables redeeming the cached refresh token before falling
	// back to the browser.
	Refresh bool

	// CallbackTimeout bounds the wait for the browser. Zero waits until the
	// context is cancelled.
	CallbackTimeout time.Duration
}

// InteractiveOption configures an InteractiveAuthController.
type InteractiveOption func(*InteractiveAuthController)

// WithBrowserOpener replaces the function used to open the authorization
// URL. A nil opener only prints the URL.
func WithBrowserOpener(open BrowserOpener) InteractiveOption {
	return func(c *InteractiveAuthController) {
		c.openBrowser = open
	}
}

// WithOutput sets where user instructions are written. Defaults to stderr.
func WithOutput(w io.Writer) InteractiveOption {
	return func(c *InteractiveAuthController) {
		c.out = w
	}
}

// WithHTTPClient sets the HTTP client used for token requests.
func WithHTTPClient(client *http.Client) InteractiveOption {
	return func(c *InteractiveAuthController) {
		c.httpClient = client
	}
}

// WithClock overrides the clock used to compute token expiry.
func WithClock(now func() time.Time) InteractiveOption {
	return func(c *InteractiveAuthController) {
		c.now = now
	}
}

// WithStateObserver registers a callback invoked on every state change.
func WithStateObserver(fn func(AuthState)) InteractiveOption {
	return func(c *InteractiveAuthController) {
		c.observer = fn
	}
}

// InteractiveAuthController drives the browser based login and keeps the
// resulting credential in a TokenStore.
type InteractiveAuthController struct {
	cfg         InteractiveConfig
	store       TokenStore
	httpClient  *http.Client
	openBrowser BrowserOpener
	out         io.Writer
	now         func() time.Time
	observer    func(AuthState)

	flights singleflight.Group

	mu    sync.RWMutex
	state AuthState
}

// NewInteractiveAuthController returns a controller for cfg backed by store.
func NewInteractiveAuthController(cfg InteractiveConfig, store TokenStore, opts ...InteractiveOption) (*InteractiveAuthController, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("interactive provider requires a client ID")
	}
	if cfg.AuthURL == "" || cfg.TokenURL == "" {
		return nil, errors.New("interactive provider requires authorize and token URLs")
	}
	if store == nil {
		return nil, errors.New("interactive provider requires a token store")
	}
	if cfg.CallbackPort == 0 {
		cfg.CallbackPort = DefaultCallbackPort
	}
	if cfg.CallbackPath == "" {
		cfg.CallbackPath = DefaultCallbackPath
	}
	if cfg.PKCEMethod == "" {
		cfg.PKCEMethod = PKCEMethodS256
	}

	c := &InteractiveAuthController{
		cfg:         cfg,
		store:       store,
		httpClient:  http.DefaultClient,
		openBrowser: OpenBrowser,
		out:         os.Stderr,
		now:         time.Now,
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the provider name.
func (c *InteractiveAuthController) Name() string {
	return c.cfg.Name
}

// State returns the current state of the login state machine.
func (c *InteractiveAuthController) State() AuthState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *InteractiveAuthController) setState(s AuthState) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()

	if prev != s {
		logging.Debug("Interactive", "Provider %s: %s -> %s", c.cfg.Name, prev, s)
	}
	if c.observer != nil {
		c.observer(s)
	}
}

func (c *InteractiveAuthController) fail(err error) (string, error) {
	c.setState(StateFailed)
	return "", err
}

// Token returns a valid access token, from the cache if possible, else by
// running the login flow. Concurrent callers share a single flow.
func (c *InteractiveAuthController) Token(ctx context.Context) (string, error) {
	v, err, shared := c.flights.Do(c.cfg.Name, func() (interface{}, error) {
		return c.acquire(ctx)
	})
	if shared {
		logging.Debug("Interactive", "Joined in-flight token acquisition for %s", c.cfg.Name)
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Login ignores any cached access token and always runs the browser flow.
func (c *InteractiveAuthController) Login(ctx context.Context) (string, error) {
	v, err, _ := c.flights.Do(c.cfg.Name, func() (interface{}, error) {
		return c.login(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ClearCache removes the stored credential for this provider.
func (c *InteractiveAuthController) ClearCache() error {
	if err := c.store.Clear(); err != nil {
		return err
	}
	c.setState(StateIdle)
	return nil
}

// SilentToken returns a token from the cache or, when refresh is enabled, by
// redeeming the cached refresh token. It never opens the browser; ok is
// false when an interactive login is required.
func (c *InteractiveAuthController) SilentToken(ctx context.Context) (string, bool, error) {
	c.setState(StateIdle)

	token, ok, err := c.silent(ctx)
	if err != nil {
		c.setState(StateFailed)
		return "", false, err
	}
	if ok {
		c.setState(StateCached)
	}
	return token, ok, nil
}

func (c *InteractiveAuthController) acquire(ctx context.Context) (string, error) {
	c.setState(StateIdle)

	token, ok, err := c.silent(ctx)
	if err != nil {
		return c.fail(err)
	}
	if ok {
		c.setState(StateCached)
		return token, nil
	}

	return c.login(ctx)
}

func (c *InteractiveAuthController) silent(ctx context.Context) (string, bool, error) {
	cached, ok, err := c.store.Get()
	if err != nil {
		return "", false, err
	}
	if ok {
		return cached.AccessToken, true, nil
	}
	if !c.cfg.Refresh {
		return "", false, nil
	}
	return c.refresh(ctx)
}

func (c *InteractiveAuthController) login(ctx context.Context) (string, error) {
	flowID := uuid.NewString()
	c.setState(StateBuildingRequest)

	listener, err := ListenCallback(CallbackAddr(c.cfg.CallbackPort), c.cfg.CallbackPath, WithTimeout(c.cfg.CallbackTimeout))
	if err != nil {
		return c.fail(err)
	}
	defer listener.Close()

	session, err := NewAuthSession(listener.RedirectURI(), c.cfg.PKCEMethod)
	if err != nil {
		return c.fail(err)
	}

	logging.Audit(logging.AuditEvent{
		Action:   "login_started",
		Outcome:  "pending",
		Provider: c.cfg.Name,
		FlowID:   flowID,
	})

	authURL := c.authorizationURL(session)
	launchOrPrint(c.openBrowser, c.out, authURL)

	c.setState(StateAwaitingBrowserCallback)
	params, err := listener.Wait(ctx)
	if err != nil {
		c.auditFailure(flowID, err)
		return c.fail(err)
	}

	code, err := validateCallback(session, params)
	if err != nil {
		c.auditFailure(flowID, err)
		return c.fail(err)
	}

	c.setState(StateExchangingCode)
	token, err := c.exchange(ctx, session, code)
	if err != nil {
		c.auditFailure(flowID, err)
		return c.fail(err)
	}

	if err := c.store.Save(token); err != nil {
		return c.fail(err)
	}

	logging.Audit(logging.AuditEvent{
		Action:   "login_completed",
		Outcome:  "success",
		Provider: c.cfg.Name,
		FlowID:   flowID,
		Details:  "expires_at=" + token.ExpiresAt.Format(time.RFC3339),
	})
	c.setState(StateCached)
	return token.AccessToken, nil
}

func (c *InteractiveAuthController) auditFailure(flowID string, err error) {
	logging.Audit(logging.AuditEvent{
		Action:   "login_failed",
		Outcome:  "failure",
		Provider: c.cfg.Name,
		FlowID:   flowID,
		Details:  fmt.Sprintf("%T", err),
	})
}

func (c *InteractiveAuthController) oauthConfig(redirectURI string) *oauth2.Config {
	style := oauth2.AuthStyleAutoDetect
	if c.cfg.ClientSecret == "" {
		// Public clients identify themselves in the body.
		style = oauth2.AuthStyleInParams
	}
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.cfg.AuthURL,
			TokenURL:  c.cfg.TokenURL,
			AuthStyle: style,
		},
		RedirectURL: redirectURI,
		Scopes:      c.cfg.Scopes,
	}
}

// authorizationURL builds the URL the user is sent to.
func (c *InteractiveAuthController) authorizationURL(session *AuthSession) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", session.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", session.ChallengeMethod),
	}
	for k, v := range c.cfg.ExtraAuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	return c.oauthConfig(session.RedirectURI).AuthCodeURL(session.State, opts...)
}

// validateCallback checks the redirect parameters against the session. The
// state is compared first so nothing else is trusted on a mismatch.
func validateCallback(session *AuthSession, params url.Values) (string, error) {
	state := params.Get("state")
	if subtle.ConstantTimeCompare([]byte(state), []byte(session.State)) != 1 {
		return "", &CsrfValidationError{ExpectedLen: len(session.State), ReceivedLen: len(state)}
	}

	if providerErr := params.Get("error"); providerErr != "" {
		return "", &CallbackError{
			Reason:           "authorization denied",
			ProviderError:    providerErr,
			ErrorDescription: params.Get("error_description"),
		}
	}

	code := params.Get("code")
	if code == "" {
		return "", &CallbackError{Reason: "missing code parameter"}
	}
	return code, nil
}

func (c *InteractiveAuthController) exchange(ctx context.Context, session *AuthSession, code string) (tokencache.CachedToken, error) {
	if err := session.Consume(); err != nil {
		return tokencache.CachedToken{}, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauthConfig(session.RedirectURI).Exchange(ctx, code, oauth2.VerifierOption(session.Verifier))
	if err != nil {
		return tokencache.CachedToken{}, classifyTokenError(c.cfg.Name, "authorization code exchange", err)
	}
	if tok.RefreshToken == "" {
		return tokencache.CachedToken{}, &MissingRefreshTokenError{Provider: c.cfg.Name}
	}

	return tokencache.CachedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    c.expiryOf(tok),
	}, nil
}

func (c *InteractiveAuthController) expiryOf(tok *oauth2.Token) time.Time {
	if lifetime, ok := expiresIn(tok); ok {
		return c.now().Add(lifetime)
	}
	return c.now().Add(DefaultTokenLifetime)
}

// refresh redeems the refresh token of a stale cached record. It reports
// false without error when no refresh was possible so the caller can fall
// back to the browser. Storage failures are returned.
func (c *InteractiveAuthController) refresh(ctx context.Context) (string, bool, error) {
	stale, ok, err := c.store.GetIncludingExpiring()
	if err != nil {
		return "", false, err
	}
	if !ok || stale.RefreshToken == "" {
		return "", false, nil
	}

	logging.Debug("Interactive", "Refreshing access token for %s", c.cfg.Name)

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	// An empty access token forces the source to redeem the refresh token.
	src := c.oauthConfig("").TokenSource(ctx, &oauth2.Token{RefreshToken: stale.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		logging.Warn("Interactive", "Silent refresh for %s failed, falling back to browser login: %v",
			c.cfg.Name, classifyTokenError(c.cfg.Name, "refresh", err))
		return "", false, nil
	}

	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		refreshToken = stale.RefreshToken
	}
	token := tokencache.CachedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    c.expiryOf(tok),
	}
	if err := c.store.Save(token); err != nil {
		return "", false, err
	}

	logging.Audit(logging.AuditEvent{
		Action:   "token_refreshed",
		Outcome:  "success",
		Provider: c.cfg.Name,
	})
	return token.AccessToken, true, nil
}
