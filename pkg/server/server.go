// Package server provides an HTTP server usable as background service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mandelsoft/fxengine/pkg/service"
)

const DefaultShutdownTimeout = 10 * time.Second

type Server struct {
	*http.Server
	*http.ServeMux
	timeout  time.Duration
	listener net.Listener
}

var _ service.Service = (*Server)(nil)

// NewServer provides a server for the given port. Port 0 selects
// a free port, which is available via Port after the server is started.
func NewServer(port int, shutdownTimeout ...time.Duration) *Server {
	mux := http.NewServeMux()
	timeout := DefaultShutdownTimeout
	if len(shutdownTimeout) > 0 {
		timeout = shutdownTimeout[0]
	}
	return &Server{
		Server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ServeMux: mux,
		timeout:  timeout,
	}
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Start opens the listener and serves requests until the
// context is canceled.
func (s *Server) Start(ctx context.Context) (service.Syncher, service.Syncher, error) {
	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return nil, nil, err
	}
	s.listener = l
	log.Info("listening on port {{port}}", "port", s.Port())

	done := service.SyncTrigger()
	go func() {
		done.Trigger(s.serve(ctx, l))
	}()
	return nil, done, nil
}

func (s *Server) serve(ctx context.Context, l net.Listener) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- s.Serve(l)
	}()

	var err error
	select {
	case <-ctx.Done():
		log.Info("shutting down server on port {{port}}", "port", s.Port())
		sctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		err = s.Shutdown(sctx)
	case err = <-serverErr:
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
