// Package server exposes the gateway over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/deixis/execgate/internal/gateway"
	"github.com/deixis/execgate/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Response headers carrying result metadata next to the raw text body.
const (
	HeaderRunID    = "X-Run-Id"
	HeaderExitCode = "X-Exit-Code"
)

const defaultShutdownTimeout = 10 * time.Second

// Options configures the HTTP surface.
type Options struct {
	CorsOrigins     []string      // empty disables CORS; "*" allows any origin
	MCPHandler      http.Handler  // mounted at /mcp when non-nil
	ShutdownTimeout time.Duration // drain period for running commands; zero means 10s
	Logger          zerolog.Logger
}

// Server routes HTTP requests to a Gateway.
type Server struct {
	gw      *gateway.Gateway
	router  *gin.Engine
	log     zerolog.Logger
	started time.Time
	drain   time.Duration
}

// New builds the router. Metrics collectors are registered on first use.
func New(gw *gateway.Gateway, opts Options) *Server {
	observability.RegisterMetrics()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.Instrument(opts.Logger, "/health", "/metrics"))
	if len(opts.CorsOrigins) > 0 {
		r.Use(cors.New(corsConfig(opts.CorsOrigins)))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		gw:      gw,
		router:  r,
		log:     opts.Logger,
		started: time.Now(),
		drain:   opts.ShutdownTimeout,
	}
	if s.drain <= 0 {
		s.drain = defaultShutdownTimeout
	}
	s.registerRoutes(opts.MCPHandler)
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then stops accepting
// and lets running commands finish for the drain period. Commands still
// running after that are canceled. Serve returns once the drain is over.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	base, cancelRequests := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRequests()

	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}

	serveDone := make(chan struct{})
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		select {
		case <-ctx.Done():
		case <-serveDone:
			return
		}

		s.log.Info().Dur("drain", s.drain).Int64("running", s.gw.Running()).Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.drain)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Warn().Err(err).Msg("drain period expired, canceling running commands")
			cancelRequests()
			_ = httpServer.Close()
		}
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
	err := httpServer.Serve(ln)
	close(serveDone)
	<-shutdownDone
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{HeaderRunID, HeaderExitCode},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
