// Package logging provides structured, subsystem-tagged logging for sak.
//
// The package is a thin layer over Go's standard slog package. Every entry
// carries a subsystem identifier so output from the token cache, the
// interactive login flow and the CLI can be told apart.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("TokenCache", "Saved token for provider %s", name)
//	logging.Debug("Interactive", "Authorization URL built")
//	logging.Warn("TokenCache", "Ignoring corrupted record for %s", name)
//	logging.Error("ClientCredentials", err, "Token request failed")
//
// # Subsystems
//
//   - **CLI**: command execution
//   - **Config**: configuration loading and validation
//   - **TokenCache**: keyring-backed credential storage
//   - **ClientCredentials**: machine-to-machine token acquisition
//   - **Interactive**: authorization code + PKCE login flow
//   - **Callback**: loopback redirect listener
//
// # Audit Logging
//
// Credential lifecycle events are logged with Audit:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:   "token_stored",
//	    Outcome:  "success",
//	    Provider: "graph",
//	})
//
// Audit events are logged at INFO level with an [AUDIT] prefix. Token values
// are never logged; only provider names and flow identifiers are.
//
// Before InitForCLI is called only warnings and errors are emitted, through
// the process-wide slog default.
package logging
