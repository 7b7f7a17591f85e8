package config

import (
	"os"
	"strings"
)

// GrantType selects the OAuth2 flow a provider uses.
type GrantType string

const (
	// GrantTypeClientCredentials is the machine-to-machine grant.
	GrantTypeClientCredentials GrantType = "client-credentials"
	// GrantTypeAuthorizationCode is the interactive browser grant with PKCE.
	GrantTypeAuthorizationCode GrantType = "authorization-code"
)

// SakConfig is the top-level configuration structure for sak.
type SakConfig struct {
	// DefaultProvider is used when a command is run without --provider.
	DefaultProvider string           `yaml:"default-provider,omitempty"`
	Providers       []ProviderConfig `yaml:"providers,omitempty"`
}

// ProviderConfig describes one API account.
type ProviderConfig struct {
	Name      string    `yaml:"name"`
	GrantType GrantType `yaml:"grant-type"`

	// Client credentials: token endpoint is BaseURL + /oauth/token.
	BaseURL string `yaml:"base-url,omitempty"`

	ClientID string `yaml:"client-id"`
	// ClientSecret is optional for authorization-code providers.
	ClientSecret string `yaml:"client-secret,omitempty"`
	// ClientSecretEnv names an environment variable holding the secret.
	// It takes precedence over ClientSecret.
	ClientSecretEnv string `yaml:"client-secret-env,omitempty"`

	// Authority enables OIDC discovery of the endpoints below.
	Authority    string   `yaml:"authority,omitempty"`
	AuthorizeURL string   `yaml:"authorize-url,omitempty"`
	TokenURL     string   `yaml:"token-url,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`

	CallbackPort int    `yaml:"callback-port,omitempty"`
	CallbackPath string `yaml:"callback-path,omitempty"`
	PKCEMethod   string `yaml:"pkce-method,omitempty"`

	// Refresh redeems the cached refresh token before asking the browser.
	Refresh bool `yaml:"refresh,omitempty"`

	ExtraAuthParams map[string]string `yaml:"extra-auth-params,omitempty"`
}

// ResolveClientSecret returns the secret from ClientSecretEnv when set,
// otherwise ClientSecret.
func (p ProviderConfig) ResolveClientSecret() string {
	if p.ClientSecretEnv != "" {
		if v := strings.TrimSpace(os.Getenv(p.ClientSecretEnv)); v != "" {
			return v
		}
	}
	return p.ClientSecret
}

// Provider returns the named provider.
func (c SakConfig) Provider(name string) (ProviderConfig, error) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, nil
		}
	}
	return ProviderConfig{}, &ProviderNotFoundError{Name: name}
}

// SetProvider inserts p or replaces the provider with the same name.
func (c *SakConfig) SetProvider(p ProviderConfig) {
	for i := range c.Providers {
		if c.Providers[i].Name == p.Name {
			c.Providers[i] = p
			return
		}
	}
	c.Providers = append(c.Providers, p)
}

// RemoveProvider deletes the named provider and reports whether it existed.
func (c *SakConfig) RemoveProvider(name string) bool {
	for i := range c.Providers {
		if c.Providers[i].Name == name {
			c.Providers = append(c.Providers[:i], c.Providers[i+1:]...)
			if c.DefaultProvider == name {
				c.DefaultProvider = ""
			}
			return true
		}
	}
	return false
}

// ResolveProviderName picks the provider a command should use: the explicit
// name, else the configured default, else the only provider.
func (c SakConfig) ResolveProviderName(explicit string) (string, error) {
	switch {
	case explicit != "":
		return explicit, nil
	case c.DefaultProvider != "":
		return c.DefaultProvider, nil
	case len(c.Providers) == 1:
		return c.Providers[0].Name, nil
	default:
		return "", &ProviderNotFoundError{}
	}
}
