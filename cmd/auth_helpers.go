package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"sak/internal/auth"
	"sak/internal/config"
	"sak/internal/tokencache"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// noBrowserEnv disables opening a browser, the authorization URL is only printed.
const noBrowserEnv = "SAK_NO_BROWSER"

// DefaultLoginTimeout bounds how long "auth login" waits for the browser.
const DefaultLoginTimeout = 5 * time.Minute

// providerOptions carry CLI settings into provider construction.
type providerOptions struct {
	out             io.Writer
	noBrowser       bool
	callbackTimeout time.Duration
	quiet           bool
}

// newTokenStore is replaced in tests.
var newTokenStore = func(provider string) auth.TokenStore {
	return tokencache.New(provider)
}

// loadConfig reads the configuration from --config-path.
func loadConfig() (config.SakConfig, error) {
	return config.LoadConfig(configPath)
}

// resolveProvider loads the configuration and returns the provider named by
// --provider, or the default one.
func resolveProvider(explicit string) (config.ProviderConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return config.ProviderConfig{}, err
	}
	name, err := cfg.ResolveProviderName(explicit)
	if err != nil {
		return config.ProviderConfig{}, err
	}
	p, err := cfg.Provider(name)
	if err != nil {
		return config.ProviderConfig{}, err
	}
	return p.WithDefaults(), nil
}

// newProvider builds the token provider for p.
func newProvider(ctx context.Context, p config.ProviderConfig, opts providerOptions) (auth.Provider, error) {
	switch p.GrantType {
	case config.GrantTypeClientCredentials:
		return auth.NewClientCredentialsProvider(auth.ClientCredentialsConfig{
			Name:         p.Name,
			BaseURL:      p.BaseURL,
			ClientID:     p.ClientID,
			ClientSecret: p.ResolveClientSecret(),
			Scopes:       p.Scopes,
		})
	case config.GrantTypeAuthorizationCode:
		return newInteractiveController(ctx, p, opts)
	default:
		return nil, fmt.Errorf("provider %s has unsupported grant type %q", p.Name, p.GrantType)
	}
}

func newInteractiveController(ctx context.Context, p config.ProviderConfig, opts providerOptions) (*auth.InteractiveAuthController, error) {
	authURL, tokenURL := p.AuthorizeURL, p.TokenURL
	if p.Authority != "" && (authURL == "" || tokenURL == "") {
		endpoint, err := auth.DiscoverEndpoints(ctx, p.Authority, nil)
		if err != nil {
			return nil, err
		}
		if authURL == "" {
			authURL = endpoint.AuthURL
		}
		if tokenURL == "" {
			tokenURL = endpoint.TokenURL
		}
	}

	out := opts.out
	if out == nil {
		out = os.Stderr
	}

	controllerOpts := []auth.InteractiveOption{auth.WithOutput(out)}
	if opts.noBrowser || os.Getenv(noBrowserEnv) != "" {
		controllerOpts = append(controllerOpts, auth.WithBrowserOpener(nil))
	}
	if !opts.quiet {
		controllerOpts = append(controllerOpts, auth.WithStateObserver(newLoginSpinner(out)))
	}

	return auth.NewInteractiveAuthController(auth.InteractiveConfig{
		Name:            p.Name,
		ClientID:        p.ClientID,
		ClientSecret:    p.ResolveClientSecret(),
		AuthURL:         authURL,
		TokenURL:        tokenURL,
		Scopes:          p.Scopes,
		CallbackPort:    p.CallbackPort,
		CallbackPath:    p.CallbackPath,
		PKCEMethod:      p.PKCEMethod,
		ExtraAuthParams: p.ExtraAuthParams,
		Refresh:         p.Refresh,
		CallbackTimeout: opts.callbackTimeout,
	}, newTokenStore(p.Name), controllerOpts...)
}

// newLoginSpinner returns a state observer that shows a spinner while the
// user completes the login in the browser.
func newLoginSpinner(out io.Writer) func(auth.AuthState) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " Waiting for the browser login to complete..."

	return func(state auth.AuthState) {
		switch state {
		case auth.StateAwaitingBrowserCallback:
			s.Start()
		case auth.StateExchangingCode:
			s.Suffix = " Exchanging authorization code..."
		case auth.StateFailed:
			if s.Active() {
				s.FinalMSG = text.FgRed.Sprint("Login failed") + "\n"
			}
			s.Stop()
		default:
			s.Stop()
		}
	}
}

// describeIdentity returns a one-line description of the token owner, or
// an empty string for opaque tokens.
func describeIdentity(accessToken string) string {
	id, ok := auth.IdentityFromToken(accessToken)
	if !ok {
		return ""
	}
	switch {
	case id.Username != "" && id.Name != "":
		return fmt.Sprintf("%s (%s)", id.Name, id.Username)
	case id.Username != "":
		return id.Username
	case id.Name != "":
		return id.Name
	default:
		return id.Subject
	}
}

// maskSecret hides all but the last four characters of a secret.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", 8) + s[len(s)-4:]
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}
	if d < time.Minute {
		return "< 1 minute"
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// formatExpiryWithDirection formats a time as "in X" or "expired X ago".
func formatExpiryWithDirection(expiresAt time.Time, now time.Time) string {
	remaining := expiresAt.Sub(now)
	if remaining > 0 {
		return "in " + formatDuration(remaining)
	}
	return text.FgYellow.Sprintf("expired %s ago", formatDuration(-remaining))
}
