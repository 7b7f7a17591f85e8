package auth

import (
	"bufio"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"sak/pkg/logging"
)

const (
	// DefaultCallbackPort is the fixed loopback port registered as the
	// redirect URI with the identity provider.
	DefaultCallbackPort = 8888

	// DefaultCallbackPath is the path component of the redirect URI.
	DefaultCallbackPath = "/oauth/callback"

	// callbackHost is the loopback interface the listener binds to.
	callbackHost = "127.0.0.1"

	// requestReadTimeout bounds reading the redirect request once a
	// connection has been accepted. Waiting for the user is not bounded here.
	requestReadTimeout = 10 * time.Second
)

//go:embed templates/callback_success.html
var callbackSuccessHTML string

// CallbackAddr returns the loopback listen address for port.
func CallbackAddr(port int) string {
	if port == 0 {
		port = DefaultCallbackPort
	}
	return net.JoinHostPort(callbackHost, fmt.Sprintf("%d", port))
}

type callbackOutcome struct {
	params url.Values
	err    error
}

// ListenerOption configures a CallbackListener.
type ListenerOption func(*CallbackListener)

// WithTimeout bounds how long Wait blocks for the browser redirect.
// Zero, the default, waits until the context is cancelled.
func WithTimeout(d time.Duration) ListenerOption {
	return func(l *CallbackListener) {
		l.timeout = d
	}
}

// CallbackListener is a one-shot loopback listener for the authorization
// redirect. It accepts exactly one connection, answers it with a static
// page and hands the query parameters to Wait.
type CallbackListener struct {
	listener net.Listener
	addr     string
	path     string
	timeout  time.Duration

	resultCh  chan callbackOutcome
	startOnce sync.Once
	closeOnce sync.Once
}

// ListenCallback binds the loopback address. The bind happens before the
// browser is launched so a port conflict aborts the flow early.
func ListenCallback(addr, path string, opts ...ListenerOption) (*CallbackListener, error) {
	if path == "" {
		path = DefaultCallbackPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &ListenerError{Addr: addr, Err: err}
	}

	l := &CallbackListener{
		listener: ln,
		addr:     ln.Addr().String(),
		path:     path,
		resultCh: make(chan callbackOutcome, 1),
	}
	for _, opt := range opts {
		opt(l)
	}

	logging.Debug("Callback", "Listening for authorization redirect on %s", l.addr)
	return l, nil
}

// RedirectURI returns the redirect URI that points at this listener.
func (l *CallbackListener) RedirectURI() string {
	return "http://" + l.addr + l.path
}

// Addr returns the bound address.
func (l *CallbackListener) Addr() string {
	return l.addr
}

// Wait blocks until the browser redirect arrives and returns its query
// parameters. Parameter validation is left to the caller. Cancelling ctx
// releases the port and returns the context error.
func (l *CallbackListener) Wait(ctx context.Context) (url.Values, error) {
	l.startOnce.Do(func() {
		go l.acceptOne()
	})

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	select {
	case outcome := <-l.resultCh:
		_ = l.Close()
		return outcome.params, outcome.err
	case <-ctx.Done():
		_ = l.Close()
		return nil, ctx.Err()
	}
}

// Close releases the port. It is safe to call more than once.
func (l *CallbackListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.listener.Close()
	})
	return err
}

func (l *CallbackListener) acceptOne() {
	conn, err := l.listener.Accept()
	if err != nil {
		if !errors.Is(err, net.ErrClosed) {
			l.deliver(callbackOutcome{err: &ListenerError{Addr: l.addr, Err: err}})
		}
		return
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
	req, readErr := http.ReadRequest(bufio.NewReader(conn))

	// The page is sent whatever the outcome, the flow result is only
	// reported in the terminal.
	if err := writeCallbackPage(conn); err != nil {
		logging.Debug("Callback", "Failed to write callback page: %v", err)
	}

	if readErr != nil {
		l.deliver(callbackOutcome{err: &ProtocolError{Op: "callback request", Err: readErr}})
		return
	}
	if req.URL.Path != l.path {
		logging.Debug("Callback", "Redirect arrived on unexpected path %q", req.URL.Path)
	}

	params, err := url.ParseQuery(req.URL.RawQuery)
	if err != nil {
		l.deliver(callbackOutcome{err: &ProtocolError{Op: "callback query", Err: err}})
		return
	}
	l.deliver(callbackOutcome{params: params})
}

func (l *CallbackListener) deliver(outcome callbackOutcome) {
	select {
	case l.resultCh <- outcome:
	default:
	}
}

func writeCallbackPage(w io.Writer) error {
	header := http.Header{}
	header.Set("Content-Type", "text/html; charset=utf-8")
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("X-Frame-Options", "DENY")
	header.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	header.Set("Referrer-Policy", "no-referrer")
	header.Set("Cache-Control", "no-store")

	resp := &http.Response{
		StatusCode:    http.StatusOK,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(callbackSuccessHTML)),
		ContentLength: int64(len(callbackSuccessHTML)),
		Close:         true,
	}
	return resp.Write(w)
}
