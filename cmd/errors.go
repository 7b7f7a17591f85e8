package cmd

import "fmt"

// AuthRequiredError indicates that no usable token is cached and the
// command was told not to start a login.
type AuthRequiredError struct {
	Provider string
}

// Error implements the error interface.
func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("not logged in to %s. Run: sak auth login -p %s", e.Provider, e.Provider)
}
