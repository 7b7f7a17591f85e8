package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sak/internal/auth"
	"sak/internal/config"
	"sak/internal/tokencache"
	"sak/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available,
	// or the provider is not configured.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the OAuth flow failed.
	ExitCodeAuthFailed = 3
)

var (
	configPath string
	logLevel   string
	debugMode  bool
)

// rootCmd represents the base command for the sak application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sak",
	Short: "Get OAuth2 access tokens for the APIs you work with",
	Long: `sak obtains and caches OAuth2 access tokens for REST APIs.

Machine accounts use the client credentials grant. User accounts sign in
through the browser (authorization code with PKCE) and the resulting tokens
are kept in the operating system keyring, so later commands run without
another login until the token expires.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, ok := logging.ParseLevel(logLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q (use debug, info, warn or error)", logLevel)
		}
		if debugMode {
			level = logging.LevelDebug
		}
		logging.InitForCLI(level, cmd.ErrOrStderr())
		return nil
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// Ctrl-C cancels the running command, which releases the callback port.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "sak version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var authRequired *AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var notConfigured *config.ProviderNotFoundError
	if errors.As(err, &notConfigured) {
		return ExitCodeAuthRequired
	}

	var storageErr *tokencache.StorageError
	if errors.As(err, &storageErr) {
		return ExitCodeError
	}

	var (
		acquisitionErr *auth.TokenAcquisitionError
		protocolErr    *auth.ProtocolError
		listenerErr    *auth.ListenerError
		csrfErr        *auth.CsrfValidationError
		callbackErr    *auth.CallbackError
		missingRefresh *auth.MissingRefreshTokenError
	)
	switch {
	case errors.As(err, &acquisitionErr),
		errors.As(err, &protocolErr),
		errors.As(err, &listenerErr),
		errors.As(err, &csrfErr),
		errors.As(err, &callbackErr),
		errors.As(err, &missingRefresh):
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())

	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", config.GetDefaultConfigPathOrPanic(), "Configuration directory (env: "+config.ConfigPathEnv+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging (same as --log-level debug)")
}
