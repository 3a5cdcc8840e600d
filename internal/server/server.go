package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibesync/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler serves a group of routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the "METHOD /path" patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Server is the reference sync endpoint.
type Server struct {
	accounts *Accounts
	tokens   *Tokens
	router   *BasicRouter
	logger   *log.Logger
	http     *http.Server
}

// New creates a server for conf with empty in-memory state.
func New(conf shared.ServerConfig, logger *log.Logger) (*Server, error) {
	if conf.JWTSecret == "" {
		return nil, fmt.Errorf("%w: server.jwt_secret is required", shared.ErrMissingConfig)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &Server{
		accounts: NewAccounts(shared.SystemClock),
		tokens:   NewTokens([]byte(conf.JWTSecret), DefaultTokenTTL, shared.SystemClock),
		router:   NewBasicRouter(),
		logger:   logger,
	}

	s.router.Use(Recover(logger), Logging(logger))
	s.router.Handler(&authHandler{accounts: s.accounts, tokens: s.tokens, logger: logger})

	sync := &syncHandler{accounts: s.accounts, logger: logger}
	s.router.Handler(withAuth(s.tokens, sync))
	s.router.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))

	s.http = &http.Server{
		Addr:              conf.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler, for use with httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Accounts exposes the account store.
func (s *Server) Accounts() *Accounts { return s.accounts }

// Serve accepts connections on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errs := make(chan error, 1)
	go func() { errs <- s.http.Serve(ln) }()

	s.logger.Info("sync server listening", "addr", ln.Addr().String())
	for _, pattern := range s.router.Patterns() {
		s.logger.Debug("route", "pattern", pattern)
	}

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return s.Close()
	}
}

// ListenAndServe listens on the configured address and calls [Server.Serve].
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Close shuts the server down, waiting up to three seconds for open requests.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("sync server stopped")
	return nil
}
