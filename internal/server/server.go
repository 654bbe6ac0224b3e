package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/seattleguide/seattleguide/internal/config"
)

type Server struct {
	cfg             *config.Config
	http            *http.Server
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
}

func New(cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg}

	readTimeout, err := config.Duration(cfg.Server.ReadTimeout, config.DefaultReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("server.read_timeout: %w", err)
	}
	s.writeTimeout, err = config.Duration(cfg.Server.WriteTimeout, config.DefaultWriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("server.write_timeout: %w", err)
	}
	idleTimeout, err := config.Duration(cfg.Server.IdleTimeout, config.DefaultIdleTimeout)
	if err != nil {
		return nil, fmt.Errorf("server.idle_timeout: %w", err)
	}
	s.shutdownTimeout, err = config.Duration(cfg.Server.ShutdownTimeout, config.DefaultShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("server.shutdown_timeout: %w", err)
	}

	router, err := s.setupRoutes()
	if err != nil {
		return nil, fmt.Errorf("setup routes: %w", err)
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
