// Package api exposes the wallet service over HTTP. Callers authenticate
// with a bearer JWT; the verified (tenant, subject) pair is the identity
// whose address and balance are served.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/OKaluzny/walletd/internal/auth"
	"github.com/OKaluzny/walletd/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Facade is the part of service.Service the API serves.
type Facade interface {
	Network() models.Network
	GetAddress(ctx context.Context, identity models.Identity) (models.Address, error)
	GetOwnBalance(ctx context.Context, identity models.Identity) (models.Balance, error)
	GetBalanceOf(ctx context.Context, text string) (models.Balance, error)
	ProbeConnectivity(ctx context.Context) models.Connectivity
}

// Authenticator verifies the Authorization header of a request.
type Authenticator interface {
	FromAuthorizationHeader(header string) (*auth.AppClaims, error)
}

// Config holds the HTTP server settings.
type Config struct {
	ListenAddress  string
	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return Config{
		ListenAddress:  ":8080",
		RequestTimeout: 30 * time.Second,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   45 * time.Second,
		IdleTimeout:    60 * time.Second,
	}
}

// Server is the HTTP front of the wallet service.
type Server struct {
	cfg      Config
	facade   Facade
	authn    Authenticator
	gatherer prometheus.Gatherer
	logger   *log.Entry
	handler  http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the base log entry.
func WithLogger(entry *log.Entry) Option {
	return func(s *Server) { s.logger = entry }
}

// NewServer wires the routes of the wallet API.
func NewServer(cfg Config, facade Facade, authn Authenticator, opts ...Option) (*Server, error) {
	if facade == nil || authn == nil {
		return nil, errors.New("api: facade and authenticator are required")
	}
	def := DefaultConfig()
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = def.ListenAddress
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}

	s := &Server{
		cfg:      cfg,
		facade:   facade,
		authn:    authn,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "api")
	}

	mux := http.NewServeMux()
	mux.Handle("GET /v1/address", s.authenticated(s.handleAddress))
	mux.Handle("GET /v1/balance", s.authenticated(s.handleOwnBalance))
	mux.HandleFunc("GET /v1/addresses/{address}/balance", s.handleBalanceOf)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.handler = s.withRequestID(s.withRecover(mux))
	return s, nil
}

// Handler returns the root handler, request id and recovery included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.WithField("address", ln.Addr().String()).Info("http server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}
