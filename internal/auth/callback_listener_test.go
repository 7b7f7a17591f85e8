package auth

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenLoopback(t *testing.T, opts ...ListenerOption) *CallbackListener {
	t.Helper()
	l, err := ListenCallback("127.0.0.1:0", DefaultCallbackPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

type browserResult struct {
	status int
	body   string
	err    error
}

func visit(rawURL string) <-chan browserResult {
	ch := make(chan browserResult, 1)
	go func() {
		resp, err := http.Get(rawURL)
		if err != nil {
			ch <- browserResult{err: err}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		ch <- browserResult{status: resp.StatusCode, body: string(body), err: err}
	}()
	return ch
}

func TestCallbackListener_DeliversQuery(t *testing.T) {
	l := listenLoopback(t)
	assert.True(t, strings.HasPrefix(l.RedirectURI(), "http://127.0.0.1:"))
	assert.True(t, strings.HasSuffix(l.RedirectURI(), DefaultCallbackPath))

	browser := visit(l.RedirectURI() + "?code=abc&state=xyz")

	params, err := l.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", params.Get("code"))
	assert.Equal(t, "xyz", params.Get("state"))

	res := <-browser
	require.NoError(t, res.err)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Authentication complete")
}

func TestCallbackListener_PageSentForProviderError(t *testing.T) {
	l := listenLoopback(t)
	browser := visit(l.RedirectURI() + "?error=access_denied&error_description=denied&state=xyz")

	params, err := l.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access_denied", params.Get("error"))
	assert.Equal(t, "denied", params.Get("error_description"))

	res := <-browser
	require.NoError(t, res.err)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Authentication complete")
}

func TestCallbackListener_MalformedRequest(t *testing.T) {
	l := listenLoopback(t)

	go func() {
		conn, err := net.Dial("tcp", l.Addr())
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("garbage\r\n\r\n"))
		_, _ = io.ReadAll(conn)
	}()

	_, err := l.Wait(context.Background())
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestCallbackListener_PortInUse(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	_, err = ListenCallback(occupied.Addr().String(), DefaultCallbackPath)
	var listenerErr *ListenerError
	require.ErrorAs(t, err, &listenerErr)
	assert.Equal(t, occupied.Addr().String(), listenerErr.Addr)
}

func TestCallbackListener_CancelReleasesPort(t *testing.T) {
	l := listenLoopback(t)
	addr := l.Addr()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := l.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)

	again, err := ListenCallback(addr, DefaultCallbackPath)
	require.NoError(t, err, "port should be free after cancellation")
	require.NoError(t, again.Close())
}

func TestCallbackListener_Timeout(t *testing.T) {
	l := listenLoopback(t, WithTimeout(50*time.Millisecond))

	_, err := l.Wait(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallbackListener_CloseIsIdempotent(t *testing.T) {
	l, err := ListenCallback("127.0.0.1:0", "oauth/callback")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(l.RedirectURI(), "/oauth/callback"))

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}

func TestCallbackAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8888", CallbackAddr(0))
	assert.Equal(t, "127.0.0.1:9999", CallbackAddr(9999))
}
