package cmd

import (
	"fmt"

	"sak/internal/auth"
	"sak/internal/config"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// Login-specific flags
var (
	loginForce   bool
	loginTimeout = DefaultLoginTimeout
)

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate to a provider",
	Long: `Authenticate to a configured provider.

Interactive providers open the browser for an authorization code login
with PKCE and keep the resulting tokens in the OS keyring. Client
credentials providers request a token to check that the configured
credentials work.

Examples:
  sak auth login                       # Login to the default provider
  sak auth login -p graph              # Login to a specific provider
  sak auth login -p graph --force      # Login even if a valid token is cached
  sak auth login --no-browser          # Print the URL, e.g. over SSH`,
	RunE: runAuthLogin,
}

func init() {
	authLoginCmd.Flags().BoolVar(&loginForce, "force", false, "Start a new login even if a valid token is cached")
	authLoginCmd.Flags().DurationVar(&loginTimeout, "timeout", DefaultLoginTimeout, "How long to wait for the browser login (0 waits forever)")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := resolveProvider(authProvider)
	if err != nil {
		return err
	}

	provider, err := newProvider(ctx, p, providerOptions{
		out:             cmd.ErrOrStderr(),
		noBrowser:       authNoBrowser,
		callbackTimeout: loginTimeout,
		quiet:           authQuiet,
	})
	if err != nil {
		return err
	}

	var token string
	if controller, ok := provider.(*auth.InteractiveAuthController); ok && loginForce {
		token, err = controller.Login(ctx)
	} else {
		token, err = provider.Token(ctx)
	}
	if err != nil {
		return fmt.Errorf("login to %s failed: %w", p.Name, err)
	}

	if p.GrantType == config.GrantTypeClientCredentials {
		authPrint(cmd, "%s Client credentials for %s are valid.\n", text.FgGreen.Sprint("✓"), p.Name)
		return nil
	}

	authPrint(cmd, "%s Logged in to %s", text.FgGreen.Sprint("✓"), p.Name)
	if who := describeIdentity(token); who != "" {
		authPrint(cmd, " as %s", who)
	}
	authPrint(cmd, "\n")
	return nil
}
