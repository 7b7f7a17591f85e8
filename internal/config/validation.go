package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateProviderName checks that a provider name is usable as a keyring
// account and on the command line.
func ValidateProviderName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ValidationError{Field: "name", Value: name, Message: "is required for provider"}
	}
	if len(name) > 64 {
		return ValidationError{Field: "name", Value: name, Message: "must not exceed 64 characters"}
	}
	if strings.ContainsAny(name, " \t/\\") {
		return ValidationError{Field: "name", Value: name, Message: "cannot contain spaces or slashes"}
	}
	return nil
}

// Validate checks a single provider definition.
func (p ProviderConfig) Validate() error {
	var errs ValidationErrors
	prefix := "providers[" + p.Name + "]."

	if err := ValidateProviderName(p.Name); err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if strings.TrimSpace(p.ClientID) == "" {
		errs.Add(prefix+"client-id", "is required")
	}

	switch p.GrantType {
	case GrantTypeClientCredentials:
		if err := validateURL(p.BaseURL); err != nil {
			errs.Add(prefix+"base-url", err.Error(), p.BaseURL)
		}
		if p.ClientSecret == "" && p.ClientSecretEnv == "" {
			errs.Add(prefix+"client-secret", "is required for client-credentials providers (or set client-secret-env)")
		}
	case GrantTypeAuthorizationCode, "":
		for field, value := range map[string]string{
			"authority":     p.Authority,
			"authorize-url": p.AuthorizeURL,
			"token-url":     p.TokenURL,
		} {
			if value == "" {
				continue
			}
			if err := validateURL(value); err != nil {
				errs.Add(prefix+field, err.Error(), value)
			}
		}
		if p.PKCEMethod != "" && p.PKCEMethod != "S256" && p.PKCEMethod != "plain" {
			errs.Add(prefix+"pkce-method", "must be S256 or plain", p.PKCEMethod)
		}
		if p.CallbackPort < 0 || p.CallbackPort > 65535 {
			errs.Add(prefix+"callback-port", "must be between 1 and 65535", p.CallbackPort)
		}
	default:
		errs.Add(prefix+"grant-type", "must be client-credentials or authorization-code", string(p.GrantType))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Validate checks the whole configuration.
func (c SakConfig) Validate() error {
	var errs ValidationErrors
	seen := make(map[string]bool)

	for _, p := range c.Providers {
		if seen[p.Name] {
			errs.Add("providers", fmt.Sprintf("duplicate provider name %q", p.Name))
			continue
		}
		seen[p.Name] = true

		if err := p.Validate(); err != nil {
			if ve, ok := err.(ValidationErrors); ok {
				errs = append(errs, ve...)
			}
		}
	}

	if c.DefaultProvider != "" && !seen[c.DefaultProvider] {
		errs.Add("default-provider", "does not name a configured provider", c.DefaultProvider)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is not a valid URL: %v", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("must be an http(s) URL")
	}
	if u.Host == "" {
		return fmt.Errorf("must include a host")
	}
	return nil
}
