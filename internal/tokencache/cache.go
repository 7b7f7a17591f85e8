package tokencache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zalando/go-keyring"

	"sak/pkg/logging"
)

// DefaultService is the keyring service name all sak credentials live under.
const DefaultService = "sak-cli"

// ExpiryMargin is how long before its expiry a cached token stops being
// handed out. Tokens inside the margin force re-authentication.
const ExpiryMargin = 5 * time.Minute

// ErrExpiredToken is returned by Save for records that are already expired.
var ErrExpiredToken = errors.New("refusing to cache an expired token")

// CachedToken is the durable credential of an interactive provider.
type CachedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// FreshAt reports whether the token is still usable at now, honouring ExpiryMargin.
func (t CachedToken) FreshAt(now time.Time) bool {
	return t.ExpiresAt.Sub(now) > ExpiryMargin
}

// Cache stores one CachedToken per logical provider in the OS keyring.
//
// SECURITY: both tokens are bearer secrets. Token values are never logged;
// only the provider name appears in log and audit output.
type Cache struct {
	service  string
	provider string
	now      func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithService overrides the keyring service name.
func WithService(service string) Option {
	return func(c *Cache) {
		c.service = service
	}
}

// WithClock sets the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache for the named provider.
func New(provider string, opts ...Option) *Cache {
	c := &Cache{
		service:  DefaultService,
		provider: provider,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached token if it expires more than ExpiryMargin from now.
// A stale record is reported as not found but left in place.
func (c *Cache) Get() (CachedToken, bool, error) {
	token, ok, err := c.GetIncludingExpiring()
	if err != nil || !ok {
		return CachedToken{}, false, err
	}
	if !token.FreshAt(c.now()) {
		logging.Debug("TokenCache", "Cached token for %s expires at %s, treating as absent",
			c.provider, token.ExpiresAt.UTC().Format(time.RFC3339))
		return CachedToken{}, false, nil
	}
	return token, true, nil
}

// GetIncludingExpiring returns the stored record regardless of its expiry.
// It is used to recover the refresh token of an expiring session.
func (c *Cache) GetIncludingExpiring() (CachedToken, bool, error) {
	data, err := keyring.Get(c.service, c.provider)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return CachedToken{}, false, nil
		}
		return CachedToken{}, false, &StorageError{Op: "read", Provider: c.provider, Err: err}
	}

	var token CachedToken
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		logging.Warn("TokenCache", "Ignoring corrupted token record for %s (%v); re-authentication required", c.provider, err)
		return CachedToken{}, false, nil
	}
	return token, true, nil
}

// Save overwrites the cached record. The keyring replaces the entry in one
// backend call, so a concurrent reader sees either the old or the new record.
func (c *Cache) Save(token CachedToken) error {
	if !token.ExpiresAt.After(c.now()) {
		return ErrExpiredToken
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := keyring.Set(c.service, c.provider, string(data)); err != nil {
		logging.Audit(logging.AuditEvent{
			Action:   "token_store",
			Outcome:  "failure",
			Provider: c.provider,
			Details:  err.Error(),
		})
		return &StorageError{Op: "write", Provider: c.provider, Err: err}
	}

	logging.Audit(logging.AuditEvent{
		Action:   "token_store",
		Outcome:  "success",
		Provider: c.provider,
		Details:  "expires " + token.ExpiresAt.UTC().Format(time.RFC3339),
	})
	return nil
}

// Clear removes the cached record. Clearing a missing record succeeds.
func (c *Cache) Clear() error {
	if err := keyring.Delete(c.service, c.provider); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return &StorageError{Op: "delete", Provider: c.provider, Err: err}
	}

	logging.Audit(logging.AuditEvent{
		Action:   "token_clear",
		Outcome:  "success",
		Provider: c.provider,
	})
	return nil
}
