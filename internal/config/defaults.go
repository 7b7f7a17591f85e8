package config

const (
	// DefaultAuthorizeURL is the Microsoft identity platform authorize endpoint.
	DefaultAuthorizeURL = "https://login.microsoftonline.com/common/oauth2/v2.0/authorize"

	// DefaultTokenURL is the Microsoft identity platform token endpoint.
	DefaultTokenURL = "https://login.microsoftonline.com/common/oauth2/v2.0/token"

	// DefaultCallbackPort is the loopback port registered as redirect URI.
	DefaultCallbackPort = 8888

	// DefaultCallbackPath is the path of the loopback redirect URI.
	DefaultCallbackPath = "/oauth/callback"

	// DefaultPKCEMethod is the PKCE challenge method.
	DefaultPKCEMethod = "S256"
)

// DefaultScopes are requested by authorization-code providers that do not
// configure their own. offline_access is needed to receive a refresh token.
var DefaultScopes = []string{"User.Read", "Mail.Read", "Calendars.Read", "offline_access"}

// GetDefaultConfig returns an empty configuration.
func GetDefaultConfig() SakConfig {
	return SakConfig{}
}

// WithDefaults fills unset interactive fields with the defaults above.
// Client credentials providers are returned unchanged.
func (p ProviderConfig) WithDefaults() ProviderConfig {
	if p.GrantType == "" {
		p.GrantType = GrantTypeAuthorizationCode
	}
	if p.GrantType != GrantTypeAuthorizationCode {
		return p
	}

	if p.Authority == "" {
		if p.AuthorizeURL == "" {
			p.AuthorizeURL = DefaultAuthorizeURL
		}
		if p.TokenURL == "" {
			p.TokenURL = DefaultTokenURL
		}
	}
	if len(p.Scopes) == 0 {
		p.Scopes = append([]string(nil), DefaultScopes...)
	}
	if p.CallbackPort == 0 {
		p.CallbackPort = DefaultCallbackPort
	}
	if p.CallbackPath == "" {
		p.CallbackPath = DefaultCallbackPath
	}
	if p.PKCEMethod == "" {
		p.PKCEMethod = DefaultPKCEMethod
	}
	return p
}
