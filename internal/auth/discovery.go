package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"sak/pkg/logging"
)

// DiscoverEndpoints resolves the authorize and token endpoints of an OpenID
// Connect authority from its discovery document.
func DiscoverEndpoints(ctx context.Context, authority string, httpClient *http.Client) (oauth2.Endpoint, error) {
	if authority == "" {
		return oauth2.Endpoint{}, errors.New("authority is required for endpoint discovery")
	}
	if httpClient != nil {
		ctx = oidc.ClientContext(ctx, httpClient)
	}

	provider, err := oidc.NewProvider(ctx, authority)
	if err != nil {
		return oauth2.Endpoint{}, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	endpoint := provider.Endpoint()
	logging.Debug("Interactive", "Discovered endpoints for %s: authorize=%s token=%s",
		authority, endpoint.AuthURL, endpoint.TokenURL)
	return endpoint, nil
}
