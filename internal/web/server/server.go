// Package server runs the HTTP listener with graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Config holds listener settings.
type Config struct {
	Address           string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	MaxHeaderBytes    int
	// ShutdownTimeout bounds hooks and connection draining.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the default listener settings.
func DefaultConfig() Config {
	return Config{
		Address:           ":8080",
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ShutdownTimeout:   30 * time.Second,
	}
}

// Hook runs during shutdown, before connections are drained.
type Hook func(ctx context.Context) error

// Server is an http.Server with shutdown hooks.
type Server struct {
	http     *http.Server
	config   Config
	log      *zap.Logger
	hooks    []Hook
	listener net.Listener
}

// New creates a server for handler.
func New(config Config, handler http.Handler, log *zap.Logger) (*Server, error) {
	if handler == nil {
		return nil, errors.New("server needs a handler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		http: &http.Server{
			Addr:              config.Address,
			Handler:           handler,
			ReadTimeout:       config.ReadTimeout,
			WriteTimeout:      config.WriteTimeout,
			IdleTimeout:       config.IdleTimeout,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
			MaxHeaderBytes:    config.MaxHeaderBytes,
		},
		config: config,
		log:    log,
	}, nil
}

// OnShutdown registers a hook. Hooks run in registration order.
func (s *Server) OnShutdown(h Hook) {
	s.hooks = append(s.hooks, h)
}

// Listen binds the listener. It is called by Run when needed.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	l, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Address, err)
	}
	s.listener = l
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", s.Addr()))
		if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	return s.Shutdown()
}
