package auth

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLaunchOrPrint(t *testing.T) {
	const authURL = "https://login.example.com/authorize?state=abc"

	t.Run("browser opened", func(t *testing.T) {
		var out bytes.Buffer
		var opened string
		launchOrPrint(func(u string) error {
			opened = u
			return nil
		}, &out, authURL)

		assert.Equal(t, authURL, opened)
		assert.Contains(t, out.String(), "browser window has been opened")
		assert.Contains(t, out.String(), authURL)
	})

	t.Run("browser unavailable", func(t *testing.T) {
		var out bytes.Buffer
		launchOrPrint(func(string) error {
			return errors.New("xdg-open: not found")
		}, &out, authURL)

		assert.Contains(t, out.String(), "Open the following URL")
		assert.Contains(t, out.String(), authURL)
	})

	t.Run("no opener", func(t *testing.T) {
		var out bytes.Buffer
		launchOrPrint(nil, &out, authURL)

		assert.Contains(t, out.String(), authURL)
	})
}
