// Package server wires the directory service into a runnable HTTP daemon.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/absentiahq/absentia/internal/platform/timeouts"
	"github.com/absentiahq/absentia/internal/services/directory"
	"github.com/absentiahq/absentia/internal/services/directory/api/httpapi"
	"github.com/absentiahq/absentia/internal/services/directory/storage/sqlite"
	"github.com/absentiahq/absentia/internal/services/directory/token"
	"github.com/absentiahq/absentia/internal/tenantctx"
)

// Config carries the directory daemon settings.
type Config struct {
	HTTPAddr    string
	DBPath      string
	TokenSecret string
	TokenIssuer string
	TokenTTL    time.Duration
}

// Server hosts the directory HTTP endpoints over a SQLite store.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *sqlite.Store
	service    *directory.Service
}

// New creates a configured directory server listening on cfg.HTTPAddr.
func New(cfg Config) (*Server, error) {
	if cfg.TokenSecret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	signer, err := token.NewSigner([]byte(cfg.TokenSecret), cfg.TokenIssuer, cfg.TokenTTL)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, err
	}
	service, err := directory.NewService(directory.Config{
		Stores: directory.Stores{
			Identities: store,
			Sessions:   store,
			Companies:  store,
			Profiles:   store,
			Employees:  store,
			Absences:   store,
			Summaries:  store,
		},
		Tokens: signer,
	})
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, err
	}

	mux := http.NewServeMux()
	httpapi.NewServer(service, tenantctx.New(store, nil), nil).RegisterRoutes(mux)

	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store:   store,
		service: service,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a directory server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve blocks until the server stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	serverCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.service.Close()
	defer func() {
		if err := s.store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	s.startSessionCleanup(serverCtx, 5*time.Minute)

	log.Printf("directory server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-serverCtx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer shutdownCancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

// startSessionCleanup deletes expired sessions on an interval until ctx ends.
func (s *Server) startSessionCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.store.DeleteExpiredSessions(ctx, time.Now().UTC()); err != nil {
					log.Printf("session cleanup: %v", err)
				}
			}
		}
	}()
}
