package tokencache

import "fmt"

// StorageError reports a failure of the credential storage backend, such as
// a locked keychain or an unavailable secret service.
type StorageError struct {
	Op       string
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("token storage %s failed for %s: %v", e.Op, e.Provider, e.Err)
}

// Unwrap returns the backend error for error chain inspection.
func (e *StorageError) Unwrap() error {
	return e.Err
}
