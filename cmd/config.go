package cmd

import (
	"fmt"

	"sak/internal/config"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command group
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the sak configuration",
	Long: `View and edit the provider configuration in config.yaml.

Examples:
  sak config show
  sak config set-provider graph --client-id <id> --default
  sak config set-provider mimecast --grant-type client-credentials \
      --base-url https://api.services.mimecast.com \
      --client-id <app-id> --client-secret-env MIMECAST_APP_KEY
  sak config remove-provider graph`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetProviderCmd = &cobra.Command{
	Use:   "set-provider <name>",
	Short: "Add or update a provider",
	Long: `Add a provider, or update the given fields of an existing one.

Only flags that are passed change the stored provider.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigSetProvider,
}

var configRemoveProviderCmd = &cobra.Command{
	Use:   "remove-provider <name>",
	Short: "Remove a provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigRemoveProvider,
}

// set-provider flags
var (
	setGrantType       string
	setBaseURL         string
	setClientID        string
	setClientSecret    string
	setClientSecretEnv string
	setAuthority       string
	setAuthorizeURL    string
	setTokenURL        string
	setScopes          []string
	setCallbackPort    int
	setCallbackPath    string
	setPKCEMethod      string
	setRefresh         bool
	setExtraParams     map[string]string
	setDefault         bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetProviderCmd)
	configCmd.AddCommand(configRemoveProviderCmd)

	f := configSetProviderCmd.Flags()
	f.StringVar(&setGrantType, "grant-type", string(config.GrantTypeAuthorizationCode), "client-credentials or authorization-code")
	f.StringVar(&setBaseURL, "base-url", "", "API base URL (client-credentials)")
	f.StringVar(&setClientID, "client-id", "", "OAuth client ID")
	f.StringVar(&setClientSecret, "client-secret", "", "OAuth client secret (stored in config.yaml)")
	f.StringVar(&setClientSecretEnv, "client-secret-env", "", "Environment variable holding the client secret")
	f.StringVar(&setAuthority, "authority", "", "OIDC issuer URL for endpoint discovery")
	f.StringVar(&setAuthorizeURL, "authorize-url", "", "Authorization endpoint")
	f.StringVar(&setTokenURL, "token-url", "", "Token endpoint")
	f.StringSliceVar(&setScopes, "scopes", nil, "Scopes to request (comma separated)")
	f.IntVar(&setCallbackPort, "callback-port", 0, "Loopback port of the registered redirect URI")
	f.StringVar(&setCallbackPath, "callback-path", "", "Path of the registered redirect URI")
	f.StringVar(&setPKCEMethod, "pkce-method", "", "PKCE method: S256 or plain")
	f.BoolVar(&setRefresh, "refresh", false, "Redeem the cached refresh token before opening the browser")
	f.StringToStringVar(&setExtraParams, "extra-auth-param", nil, "Extra authorization URL parameter (key=value, repeatable)")
	f.BoolVar(&setDefault, "default", false, "Make this the default provider")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	for i := range cfg.Providers {
		cfg.Providers[i].ClientSecret = maskSecret(cfg.Providers[i].ClientSecret)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n", config.ConfigFilePath(configPath))
	_, err = out.Write(data)
	return err
}

func runConfigSetProvider(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := config.ValidateProviderName(name); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, err := cfg.Provider(name)
	if err != nil {
		p = config.ProviderConfig{Name: name}
	}

	flags := cmd.Flags()
	if flags.Changed("grant-type") || p.GrantType == "" {
		p.GrantType = config.GrantType(setGrantType)
	}
	if flags.Changed("base-url") {
		p.BaseURL = setBaseURL
	}
	if flags.Changed("client-id") {
		p.ClientID = setClientID
	}
	if flags.Changed("client-secret") {
		p.ClientSecret = setClientSecret
	}
	if flags.Changed("client-secret-env") {
		p.ClientSecretEnv = setClientSecretEnv
	}
	if flags.Changed("authority") {
		p.Authority = setAuthority
	}
	if flags.Changed("authorize-url") {
		p.AuthorizeURL = setAuthorizeURL
	}
	if flags.Changed("token-url") {
		p.TokenURL = setTokenURL
	}
	if flags.Changed("scopes") {
		p.Scopes = setScopes
	}
	if flags.Changed("callback-port") {
		p.CallbackPort = setCallbackPort
	}
	if flags.Changed("callback-path") {
		p.CallbackPath = setCallbackPath
	}
	if flags.Changed("pkce-method") {
		p.PKCEMethod = setPKCEMethod
	}
	if flags.Changed("refresh") {
		p.Refresh = setRefresh
	}
	if flags.Changed("extra-auth-param") {
		p.ExtraAuthParams = setExtraParams
	}

	cfg.SetProvider(p)
	if setDefault {
		cfg.DefaultProvider = name
	}

	if err := config.SaveConfig(configPath, cfg); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s Saved provider %s to %s\n",
		text.FgGreen.Sprint("✓"), name, config.ConfigFilePath(configPath))
	return nil
}

func runConfigRemoveProvider(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	name := args[0]
	if !cfg.RemoveProvider(name) {
		return &config.ProviderNotFoundError{Name: name}
	}

	if err := config.SaveConfig(configPath, cfg); err != nil {
		return err
	}

	// Cached tokens belong to the provider, drop them as well.
	if err := newTokenStore(name).Clear(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not remove cached token for %s: %v\n", name, err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Removed provider %s\n", name)
	return nil
}
