package server

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Shutdown runs the hooks and drains connections within ShutdownTimeout.
// A failing hook is logged and does not stop the others.
func (s *Server) Shutdown() error {
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("shutting down", zap.Duration("timeout", timeout), zap.Int("hooks", len(s.hooks)))

	var errs []error
	for i, hook := range s.hooks {
		if err := hook(ctx); err != nil {
			s.log.Warn("shutdown hook failed", zap.Int("hook", i), zap.Error(err))
			errs = append(errs, err)
		}
	}

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return errors.Join(errs...)
}
