package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"golang.org/x/oauth2"
)

// TokenAcquisitionError reports that the identity provider refused a token
// request, or could not be reached. Body holds the response verbatim so it
// can be shown to the user.
type TokenAcquisitionError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *TokenAcquisitionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to get access token for %s (HTTP %d): %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("failed to get access token for %s: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *TokenAcquisitionError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a malformed message from the identity provider or
// from the browser redirect.
type ProtocolError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ListenerError reports that the loopback callback listener could not be
// bound, usually because the port is already in use.
type ListenerError struct {
	Addr string
	Err  error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("failed to start callback listener on %s: %v", e.Addr, e.Err)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// CsrfValidationError reports that the state parameter returned by the
// authorization server does not match the one sent with the request.
// The flow is always aborted before any code exchange.
type CsrfValidationError struct {
	ExpectedLen int
	ReceivedLen int
}

// Error implements the error interface.
func (e *CsrfValidationError) Error() string {
	return "state mismatch in authorization callback - possible CSRF attack"
}

// CallbackError reports an unusable authorization callback: the provider
// returned an error, or the code parameter is missing.
type CallbackError struct {
	Reason           string
	ProviderError    string
	ErrorDescription string
}

// Error implements the error interface.
func (e *CallbackError) Error() string {
	switch {
	case e.ProviderError != "" && e.ErrorDescription != "":
		return fmt.Sprintf("authorization callback failed: %s: %s - %s", e.Reason, e.ProviderError, e.ErrorDescription)
	case e.ProviderError != "":
		return fmt.Sprintf("authorization callback failed: %s: %s", e.Reason, e.ProviderError)
	default:
		return "authorization callback failed: " + e.Reason
	}
}

// MissingRefreshTokenError reports a code exchange that returned no refresh
// token. The cached credential always holds one, so the login fails.
type MissingRefreshTokenError struct {
	Provider string
}

// Error implements the error interface.
func (e *MissingRefreshTokenError) Error() string {
	return fmt.Sprintf("identity provider returned no refresh token for %s (is the offline_access scope requested?)", e.Provider)
}

// classifyTokenError maps errors from golang.org/x/oauth2 token requests onto
// TokenAcquisitionError (refused or unreachable) and ProtocolError (malformed
// success response).
func classifyTokenError(provider, op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		if status >= 200 && status <= 299 {
			return &ProtocolError{Op: op, Err: err}
		}
		return &TokenAcquisitionError{
			Provider:   provider,
			StatusCode: status,
			Body:       string(retrieveErr.Body),
			Err:        err,
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &TokenAcquisitionError{Provider: provider, Err: err}
	}

	return &ProtocolError{Op: op, Err: err}
}
