package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigurationError represents a structured error that occurs during configuration loading
type ConfigurationError struct {
	FilePath    string   // Full path to the file that caused the error
	ErrorType   string   // Type of error (parse, io)
	Message     string   // Human-readable error message
	Details     string   // Additional details about the error
	LineNumber  int      // Line number where error occurred (if available)
	Suggestions []string // Actionable suggestions to fix the error
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	if ce.LineNumber > 0 {
		return fmt.Sprintf("%s:%d: %s", filepath.Base(ce.FilePath), ce.LineNumber, ce.Message)
	}
	return fmt.Sprintf("%s: %s", filepath.Base(ce.FilePath), ce.Message)
}

// DetailedError returns a detailed error message with all context
func (ce ConfigurationError) DetailedError() string {
	var parts []string

	parts = append(parts, "Configuration Error: "+ce.Message)
	parts = append(parts, fmt.Sprintf("  File: %s", ce.FilePath))
	parts = append(parts, fmt.Sprintf("  Type: %s", ce.ErrorType))

	if ce.LineNumber > 0 {
		parts = append(parts, fmt.Sprintf("  Line: %d", ce.LineNumber))
	}
	if ce.Details != "" {
		parts = append(parts, fmt.Sprintf("  Details: %s", ce.Details))
	}
	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}

	return strings.Join(parts, "\n")
}

func newParseError(filePath string, err error) ConfigurationError {
	ce := ConfigurationError{
		FilePath:  filePath,
		ErrorType: "parse",
		Message:   "invalid YAML",
		Details:   err.Error(),
		Suggestions: []string{
			"Check indentation, YAML uses spaces and not tabs",
			"Run 'sak config show' after fixing to confirm the file loads",
		},
	}

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		ce.Message = "unexpected value type"
	}
	if line := yamlErrorLine(err.Error()); line > 0 {
		ce.LineNumber = line
	}
	return ce
}

// yamlErrorLine extracts the line number from a yaml.v3 message such as
// "yaml: line 3: did not find expected key".
func yamlErrorLine(msg string) int {
	idx := strings.Index(msg, "line ")
	if idx < 0 {
		return 0
	}
	var line int
	if _, err := fmt.Sscanf(msg[idx:], "line %d", &line); err != nil {
		return 0
	}
	return line
}

// ProviderNotFoundError reports a provider name missing from the
// configuration, or that no provider could be chosen at all.
type ProviderNotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *ProviderNotFoundError) Error() string {
	if e.Name == "" {
		return "no provider selected; pass --provider or set default-provider (see 'sak config set-provider')"
	}
	return fmt.Sprintf("provider %q is not configured (see 'sak config set-provider')", e.Name)
}
