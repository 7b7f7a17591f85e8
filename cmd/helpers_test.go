package cmd

import (
	"bytes"
	"context"
	"testing"

	"sak/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// resetCommandState restores flag variables between test executions, since
// cobra commands are package-level and keep parsed values.
func resetCommandState() {
	logLevel, debugMode = "warn", false
	authProvider, authQuiet, authNoBrowser = "", false, false
	logoutAll = false
	tokenHeader, tokenNoLogin = false, false
	loginForce, loginTimeout = false, DefaultLoginTimeout
	selfUpdateCheckOnly = false

	setGrantType = string(config.GrantTypeAuthorizationCode)
	setBaseURL, setClientID, setClientSecret, setClientSecretEnv = "", "", "", ""
	setAuthority, setAuthorizeURL, setTokenURL = "", "", ""
	setScopes = nil
	setCallbackPort, setCallbackPath, setPKCEMethod = 0, "", ""
	setRefresh, setDefault = false, false
	setExtraParams = map[string]string{}

	var resetFlags func(c *cobra.Command)
	resetFlags = func(c *cobra.Command) {
		reset := func(f *pflag.Flag) { f.Changed = false }
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
		for _, sub := range c.Commands() {
			resetFlags(sub)
		}
	}
	resetFlags(rootCmd)
}

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes the root command with a temporary configuration directory
// and an in-memory keyring.
func runCLI(t *testing.T, dir string, args ...string) cliResult {
	t.Helper()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config-path", dir}, args...))
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		resetCommandState()
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return cliResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

// newTestConfigDir writes providers to a fresh configuration directory.
func newTestConfigDir(t *testing.T, providers ...config.ProviderConfig) string {
	t.Helper()
	keyring.MockInit()

	dir := t.TempDir()
	cfg := config.SakConfig{Providers: providers}
	require.NoError(t, config.SaveConfig(dir, cfg))
	return dir
}
