package cmd

import (
	"fmt"
	"io"
	"time"

	"sak/internal/config"
	"sak/internal/tokencache"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long: `Show the cached token status of the configured providers.

Only cached data is inspected, no network requests are made.

Examples:
  sak auth status                      # Show all providers
  sak auth status -p graph             # Show a single provider`,
	RunE: runAuthStatus,
}

// statusNow is replaced in tests.
var statusNow = time.Now

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	providers := cfg.Providers
	if authProvider != "" {
		p, err := cfg.Provider(authProvider)
		if err != nil {
			return err
		}
		providers = []config.ProviderConfig{p}
	}

	out := cmd.OutOrStdout()
	if len(providers) == 0 {
		fmt.Fprintln(out, "No providers configured.")
		fmt.Fprintln(out, "\nTo add one, run:")
		fmt.Fprintln(out, "  sak config set-provider <name> --client-id <id>")
		return nil
	}

	for i, p := range providers {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := printProviderStatus(out, p, p.Name == cfg.DefaultProvider); err != nil {
			return err
		}
	}
	return nil
}

func printProviderStatus(out io.Writer, p config.ProviderConfig, isDefault bool) error {
	title := p.Name
	if isDefault {
		title += " (default)"
	}
	fmt.Fprintln(out, title)
	fmt.Fprintf(out, "  Grant:     %s\n", p.GrantType)

	if p.GrantType == config.GrantTypeClientCredentials {
		fmt.Fprintf(out, "  Endpoint:  %s\n", p.BaseURL)
		fmt.Fprintf(out, "  Status:    %s\n", text.FgCyan.Sprint("Tokens are requested per run (not cached)"))
		return nil
	}

	record, ok, err := newTokenStore(p.Name).GetIncludingExpiring()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(out, "  Status:    %s\n", text.FgYellow.Sprint("Not logged in"))
		fmt.Fprintf(out, "             Run: sak auth login -p %s\n", p.Name)
		return nil
	}

	now := statusNow()
	switch {
	case record.FreshAt(now):
		fmt.Fprintf(out, "  Status:    %s\n", text.FgGreen.Sprint("Authenticated"))
	case record.ExpiresAt.After(now):
		fmt.Fprintf(out, "  Status:    %s\n", text.FgYellow.Sprint("Expiring"))
	default:
		fmt.Fprintf(out, "  Status:    %s\n", text.FgYellow.Sprint("Expired"))
	}
	if who := describeIdentity(record.AccessToken); who != "" {
		fmt.Fprintf(out, "  Identity:  %s\n", who)
	}
	fmt.Fprintf(out, "  Expires:   %s\n", formatExpiryWithDirection(record.ExpiresAt, now))

	if record.RefreshToken != "" && p.Refresh {
		fmt.Fprintf(out, "  Refresh:   %s\n", text.FgGreen.Sprint("Enabled"))
	} else if record.RefreshToken != "" {
		fmt.Fprintf(out, "  Refresh:   %s\n", "Stored (refresh disabled in config)")
	}

	if !record.FreshAt(now) {
		fmt.Fprintf(out, "             Tokens within %s of expiry are renewed on next use.\n", formatDuration(tokencache.ExpiryMargin))
	}
	return nil
}
