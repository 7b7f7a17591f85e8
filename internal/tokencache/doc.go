// Package tokencache persists interactive OAuth credentials in the
// operating system's credential store (macOS Keychain, Windows Credential
// Manager, Secret Service on Linux).
//
// One record is kept per logical provider under the keyring service
// "sak-cli". Reads are expiry-aware: a record that expires within
// ExpiryMargin is reported as absent so callers re-authenticate, but the
// record itself is kept so its refresh token stays available.
//
// Backend failures surface as *StorageError. A record that cannot be
// decoded is logged and treated as absent.
package tokencache
