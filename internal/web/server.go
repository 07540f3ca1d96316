// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server is used to configure the HTTP server started by
// [Server.ListenAndServe].
//
// All fields of Server can't be modified after [Server.ListenAndServe]
// is called.
type Server struct {
	// Addr is a network address to listen on (in the form of "host:port").
	Addr string
	// Mux is a http.ServeMux to serve. /health is added to it.
	Mux *http.ServeMux
	// Logger specifies a logger to use. If nil, slog.Default is used.
	Logger *slog.Logger
	// Ready is called, if not nil, when the server starts accepting
	// connections.
	Ready func()
	// ShutdownTimeout bounds the graceful shutdown. Zero means 10 seconds.
	ShutdownTimeout time.Duration
}

var (
	errNoAddr = errors.New("server.Addr is empty")
	errNilMux = errors.New("server.Mux is nil")
)

// ListenAndServe starts the HTTP server and blocks until ctx is canceled, then
// shuts the server down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.Addr == "" {
		return errNoAddr
	}
	if s.Mux == nil {
		return errNilMux
	}
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}

	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	defer l.Close()
	log.Info("listening", "addr", l.Addr().String())

	Health(s.Mux)
	httpSrv := &http.Server{
		Handler:           s.Mux,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if s.Ready != nil {
		s.Ready()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("gracefully shutting down")
		timeout := s.ShutdownTimeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
