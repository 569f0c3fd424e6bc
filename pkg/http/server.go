// Package http runs the gateway's listeners with graceful shutdown.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Server represents a runnable HTTP server.
type Server interface {
	// Start blocks and runs the server until the context is cancelled.
	Start(ctx context.Context) error
}

// Opts contains the information required to set up the server.
type Opts struct {
	// Handler is the http.Handler served.
	Handler http.Handler

	// BindAddress is the address the server should listen on, either
	// "[host]:port" or "unix://path".
	BindAddress string
}

// NewServer creates a new Server from the options given. The listener is
// opened here so a bad bind address fails at startup, before any traffic is
// expected.
func NewServer(opts Opts) (Server, error) {
	s := &server{
		handler: opts.Handler,
	}

	if err := s.setupListener(opts); err != nil {
		return nil, fmt.Errorf("error setting up listener: %v", err)
	}

	return s, nil
}

type server struct {
	handler  http.Handler
	listener net.Listener
}

func (s *server) setupListener(opts Opts) error {
	if opts.BindAddress == "" {
		return errors.New("no bind address given")
	}

	networkType := getNetworkScheme(opts.BindAddress)
	listenAddr := getListenAddress(opts.BindAddress)

	listener, err := net.Listen(networkType, listenAddr)
	if err != nil {
		return fmt.Errorf("listen (%s, %s) failed: %w", networkType, listenAddr, err)
	}
	s.listener = listener

	return nil
}

// Start serves until the context is cancelled, then shuts down gracefully.
// If any errors occur, only the first error will be returned.
func (s *server) Start(ctx context.Context) error {
	srv := &http.Server{Handler: s.handler, ReadHeaderTimeout: time.Minute}
	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-groupCtx.Done()

		if err := srv.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("error shutting down server: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not start server: %v", err)
		}
		return nil
	})

	return g.Wait()
}

// Addr reports the bound listen address, useful when binding to port 0.
func (s *server) Addr() net.Addr {
	return s.listener.Addr()
}

// getNetworkScheme gets the listen network for a bind address.
func getNetworkScheme(addr string) string {
	var scheme string
	if i := strings.Index(addr, "://"); i > -1 {
		scheme = addr[0:i]
	}

	switch scheme {
	case "", "http":
		return "tcp"
	default:
		return scheme
	}
}

// getListenAddress strips the scheme prefix from a bind address.
func getListenAddress(addr string) string {
	slice := strings.SplitN(addr, "//", 2)
	return slice[len(slice)-1]
}
