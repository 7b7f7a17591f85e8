package auth

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"sak/pkg/logging"
)

// BrowserOpener opens a URL in the user's browser.
type BrowserOpener func(url string) error

// OpenBrowser opens the specified URL in the default web browser.
// It supports Linux, macOS, and Windows.
// Returns an error if the browser could not be opened.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	// Don't wait, the browser keeps running after we return.
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// launchOrPrint tries open and falls back to printing the URL to out, so a
// headless session can finish the login from another machine.
func launchOrPrint(open BrowserOpener, out io.Writer, authURL string) {
	if open != nil {
		err := open(authURL)
		if err == nil {
			fmt.Fprintln(out, "A browser window has been opened to complete the login.")
			fmt.Fprintf(out, "If it did not open, visit:\n\n  %s\n\n", authURL)
			return
		}
		logging.Warn("Interactive", "Could not open browser: %v", err)
	}
	fmt.Fprintf(out, "Open the following URL in a browser to log in:\n\n  %s\n\n", authURL)
}
