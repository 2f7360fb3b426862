// Package socketconn connects to socket.io servers over websocket and hides
// the client library behind a small event interface.
package socketconn

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Conn is a connected socket.io client.
type Conn interface {
	Emit(event string, payload any)
	On(event string, fn func(args ...any))
	Once(event string, fn func(args ...any))
	Close()
}

// DialOptions configures Dial.
type DialOptions struct {
	// Namespace defaults to "/".
	Namespace          string
	InsecureSkipVerify bool
	// ConnectTimeout defaults to 15 seconds.
	ConnectTimeout time.Duration
}

// socketConn adapts a socket.io client socket to Conn.
type socketConn struct {
	io *socket.Socket
}

func (c *socketConn) Emit(event string, payload any) {
	c.io.Emit(event, payload)
}

func (c *socketConn) On(event string, fn func(args ...any)) {
	c.io.On(types.EventName(event), func(args ...any) {
		fn(args...)
	})
}

func (c *socketConn) Once(event string, fn func(args ...any)) {
	c.io.Once(types.EventName(event), func(args ...any) {
		fn(args...)
	})
}

func (c *socketConn) Close() {
	c.io.Disconnect()
}

// Dial connects to a socket.io server over websocket and waits until the
// connection is established.
func Dial(ctx context.Context, rawURL string, opts DialOptions) (Conn, error) {
	logger := ctxlog.FromContext(ctx).With("component", "socketconn", "url", rawURL)
	logger.Info("Connecting to socket.io server...")

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("socket.io URL %q must include a scheme and host", rawURL)
	}

	sopts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		sopts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	if opts.Namespace == "" {
		opts.Namespace = "/"
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to socket.io server.", "sid", io.Id(), "namespace", opts.Namespace)
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &socketConn{io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}
