package auth

import (
	"context"
)

// Provider hands out access tokens for one configured API.
type Provider interface {
	Name() string
	Token(ctx context.Context) (string, error)
}

var (
	_ Provider = (*ClientCredentialsProvider)(nil)
	_ Provider = (*InteractiveAuthController)(nil)
)

// BearerHeader returns the Authorization header value for p.
func BearerHeader(ctx context.Context, p Provider) (string, error) {
	token, err := p.Token(ctx)
	if err != nil {
		return "", err
	}
	return "Bearer " + token, nil
}
