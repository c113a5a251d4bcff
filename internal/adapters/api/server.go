// Package api is the HTTP front end of the scan service.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikey/email-guardian/internal/core"
	"go.uber.org/zap"
)

// Options configures the HTTP server
type Options struct {
	ListenAddress   string
	Mode            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AuthEnabled     bool
	AIProvider      string
	StoreType       string
}

// Server serves the scan, history, credential and health endpoints
type Server struct {
	scans       *core.ScanService
	credentials *core.CredentialService
	limiter     core.RateLimiter
	clock       core.Clock
	opts        Options
	logger      *zap.Logger
	engine      *gin.Engine
	srv         *http.Server
}

// NewServer creates the HTTP server; limiter may be nil to disable rate limiting
func NewServer(
	scans *core.ScanService,
	credentials *core.CredentialService,
	limiter core.RateLimiter,
	clock core.Clock,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	s := &Server{
		scans:       scans,
		credentials: credentials,
		limiter:     limiter,
		clock:       clock,
		opts:        opts,
		logger:      logger,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	r.POST("/create-key", s.handleCreateKey)

	authed := r.Group("/", s.requireCredential())
	authed.POST("/scan", s.rateLimit(), s.handleScan)
	authed.GET("/history", s.handleHistory)

	return r
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Name identifies the frontend in logs
func (s *Server) Name() string {
	return "http"
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.ListenAddress, err)
	}

	s.srv = &http.Server{
		Addr:         ln.Addr().String(),
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	s.logger.Info("HTTP API starting",
		zap.String("address", s.srv.Addr),
		zap.Bool("auth_enabled", s.opts.AuthEnabled),
		zap.Bool("rate_limit_enabled", s.limiter != nil))

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound listen address once started
func (s *Server) Addr() string {
	if s.srv == nil {
		return ""
	}
	return s.srv.Addr
}

// Stop drains in-flight requests and stops the server
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}
	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
