// Package auth acquires OAuth2 access tokens for the APIs sak talks to.
//
// Two grant flows are supported:
//
//   - ClientCredentialsProvider performs the client credentials grant
//     against <base>/oauth/token with HTTP Basic client authentication and
//     keeps the token in memory for the life of the process.
//   - InteractiveAuthController performs the authorization code grant with
//     PKCE. It opens the user's browser, receives the redirect on a one-shot
//     loopback listener (CallbackListener), validates the CSRF state,
//     exchanges the code and stores the token pair in a TokenStore, normally
//     the OS keyring via internal/tokencache.
//
// # Interactive State Machine
//
//	Idle -> BuildingRequest -> AwaitingBrowserCallback -> ExchangingCode -> Cached
//
// Every non-terminal state can move to Failed. A fresh cached token moves
// straight from Idle to Cached.
//
// # Errors
//
// Failures are reported as typed errors so callers can use errors.As:
// TokenAcquisitionError, ProtocolError, ListenerError, CsrfValidationError,
// CallbackError and MissingRefreshTokenError. Storage failures come from
// internal/tokencache as *tokencache.StorageError.
//
// # Security
//
//   - State and PKCE verifier come from crypto/rand and live only in memory.
//   - The state is checked before any other callback parameter, so a
//     mismatched redirect never reaches the token endpoint.
//   - Token values are never logged.
package auth
