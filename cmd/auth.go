package cmd

import (
	"fmt"

	"sak/internal/auth"
	"sak/internal/config"

	"github.com/spf13/cobra"
)

var (
	authProvider  string
	authQuiet     bool
	authNoBrowser bool
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication for configured providers",
	Long: `Manage OAuth2 authentication for the providers in the sak configuration.

Examples:
  sak auth login -p graph              # Sign in through the browser
  sak auth status                      # Show token status of all providers
  sak auth token -p mimecast           # Print an access token
  sak auth token -p graph --header     # Print "Bearer <token>"
  sak auth logout -p graph             # Remove the cached token`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear stored authentication tokens",
	Long: `Remove the cached token of a provider from the OS keyring.

The next command that needs a token will start a new login.

Examples:
  sak auth logout -p graph             # Logout from one provider
  sak auth logout --all                # Clear all cached tokens`,
	RunE: runAuthLogout,
}

// authTokenCmd represents the auth token command
var authTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print an access token",
	Long: `Print a valid access token for a provider to stdout.

A cached token is used when it is valid for more than five minutes.
Otherwise a new one is obtained, which for interactive providers opens
the browser. With --no-login the browser is never opened: a provider with
refresh enabled redeems its cached refresh token, anything else exits
with code 2.

Examples:
  curl -H "Authorization: $(sak auth token -p graph --header)" https://graph.microsoft.com/v1.0/me`,
	RunE: runAuthToken,
}

// Logout-specific flags
var logoutAll bool

// Token-specific flags
var (
	tokenHeader  bool
	tokenNoLogin bool
)

// authPrint prints output only if the --quiet flag is not set.
// Progress goes to stderr so stdout stays clean for tokens.
func authPrint(cmd *cobra.Command, format string, args ...interface{}) {
	if !authQuiet {
		fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
	}
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authTokenCmd)

	authCmd.PersistentFlags().StringVarP(&authProvider, "provider", "p", "", "Provider name (default: default-provider from config)")
	authCmd.PersistentFlags().BoolVarP(&authQuiet, "quiet", "q", false, "Suppress non-essential output")
	authCmd.PersistentFlags().BoolVar(&authNoBrowser, "no-browser", false, "Print the login URL instead of opening a browser (env: "+noBrowserEnv+")")

	authLogoutCmd.Flags().BoolVar(&logoutAll, "all", false, "Clear the cached tokens of all providers")

	authTokenCmd.Flags().BoolVar(&tokenHeader, "header", false, "Print an Authorization header value (Bearer <token>)")
	authTokenCmd.Flags().BoolVar(&tokenNoLogin, "no-login", false, "Fail instead of starting an interactive login")
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var targets []config.ProviderConfig
	if logoutAll {
		targets = cfg.Providers
	} else {
		name, err := cfg.ResolveProviderName(authProvider)
		if err != nil {
			return err
		}
		p, err := cfg.Provider(name)
		if err != nil {
			return err
		}
		targets = []config.ProviderConfig{p}
	}

	cleared := 0
	for _, p := range targets {
		if p.GrantType == config.GrantTypeClientCredentials {
			if !logoutAll {
				authPrint(cmd, "%s uses client credentials; no token is cached.\n", p.Name)
			}
			continue
		}
		if err := newTokenStore(p.Name).Clear(); err != nil {
			return fmt.Errorf("failed to logout from %s: %w", p.Name, err)
		}
		cleared++
		authPrint(cmd, "Logged out from %s\n", p.Name)
	}

	if logoutAll && cleared == 0 {
		authPrint(cmd, "No interactive providers configured.\n")
	}
	return nil
}

func runAuthToken(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := resolveProvider(authProvider)
	if err != nil {
		return err
	}

	if tokenNoLogin && p.GrantType == config.GrantTypeAuthorizationCode {
		return printSilentToken(cmd, p)
	}

	provider, err := newProvider(ctx, p, providerOptions{
		out:       cmd.ErrOrStderr(),
		noBrowser: authNoBrowser,
		quiet:     authQuiet,
	})
	if err != nil {
		return err
	}

	if tokenHeader {
		header, err := auth.BearerHeader(ctx, provider)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), header)
		return nil
	}

	token, err := provider.Token(ctx)
	if err != nil {
		return err
	}
	return printToken(cmd, token)
}

// printSilentToken prints a cached token, redeeming the refresh token first
// when the provider allows it. The browser is never opened.
func printSilentToken(cmd *cobra.Command, p config.ProviderConfig) error {
	cached, ok, err := newTokenStore(p.Name).Get()
	if err != nil {
		return err
	}
	if ok {
		return printToken(cmd, cached.AccessToken)
	}
	if !p.Refresh {
		return &AuthRequiredError{Provider: p.Name}
	}

	controller, err := newInteractiveController(cmd.Context(), p, providerOptions{
		out:   cmd.ErrOrStderr(),
		quiet: true,
	})
	if err != nil {
		return err
	}
	token, ok, err := controller.SilentToken(cmd.Context())
	if err != nil {
		return err
	}
	if !ok {
		return &AuthRequiredError{Provider: p.Name}
	}
	return printToken(cmd, token)
}

func printToken(cmd *cobra.Command, token string) error {
	if tokenHeader {
		token = "Bearer " + token
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
