package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

const (
	// PKCEMethodS256 derives the challenge as BASE64URL(SHA256(verifier)).
	PKCEMethodS256 = "S256"

	// PKCEMethodPlain sends the verifier itself as the challenge. Only for
	// identity providers that do not support S256.
	PKCEMethodPlain = "plain"

	// stateBytes is the number of random bytes for the OAuth state parameter.
	// 32 bytes encodes to 43 base64url characters.
	stateBytes = 32
)

var errSessionConsumed = errors.New("authorization session already used for a code exchange")

// AuthSession holds the per-flow secrets of one interactive login. It is
// created at the start of a flow, consumed by exactly one code exchange and
// then discarded.
type AuthSession struct {
	State           string
	Verifier        string
	Challenge       string
	ChallengeMethod string
	RedirectURI     string

	consumed bool
}

// NewAuthSession generates a fresh CSRF state and PKCE verifier/challenge
// pair for redirectURI. An empty method selects S256.
func NewAuthSession(redirectURI, method string) (*AuthSession, error) {
	if method == "" {
		method = PKCEMethodS256
	}
	if method != PKCEMethodS256 && method != PKCEMethodPlain {
		return nil, fmt.Errorf("unsupported PKCE method: %s", method)
	}

	state, err := GenerateState()
	if err != nil {
		return nil, err
	}

	verifier := oauth2.GenerateVerifier()
	challenge := verifier
	if method == PKCEMethodS256 {
		challenge = oauth2.S256ChallengeFromVerifier(verifier)
	}

	return &AuthSession{
		State:           state,
		Verifier:        verifier,
		Challenge:       challenge,
		ChallengeMethod: method,
		RedirectURI:     redirectURI,
	}, nil
}

// Consume marks the session as used. A second call fails, which stops an
// authorization code from being replayed with the same verifier.
func (s *AuthSession) Consume() error {
	if s.consumed {
		return errSessionConsumed
	}
	s.consumed = true
	return nil
}

// GenerateState generates a random state parameter for OAuth.
// The state is used to prevent CSRF attacks and link the authorization
// response back to the original request.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
