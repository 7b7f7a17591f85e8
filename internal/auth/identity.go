package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the subset of access token claims shown to the user.
type Identity struct {
	Username  string
	Name      string
	Subject   string
	Issuer    string
	ExpiresAt time.Time
}

// usernameClaims lists the claims checked for a display name, in order.
var usernameClaims = []string{"preferred_username", "upn", "email", "unique_name"}

// IdentityFromToken decodes the claims of a JWT access token without
// verifying its signature. The result is for display only. ok is false for
// opaque tokens.
func IdentityFromToken(raw string) (Identity, bool) {
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return Identity{}, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, false
	}

	var id Identity
	for _, name := range usernameClaims {
		if v, ok := claims[name].(string); ok && v != "" {
			id.Username = v
			break
		}
	}
	id.Name, _ = claims["name"].(string)
	id.Subject, _ = claims.GetSubject()
	id.Issuer, _ = claims.GetIssuer()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, true
}
