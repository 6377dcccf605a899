// Package status serves the progress of a running driver over HTTP.
package status

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kbukum/etlkit/component"
	"github.com/kbukum/etlkit/driver"
	"github.com/kbukum/etlkit/logger"
)

// Provider is what the server reports on. *driver.Driver implements it.
type Provider interface {
	Status() driver.Status
	Health(ctx context.Context) []component.Health
}

// Server is a small gin server exposing /progress, /healthz and /version.
type Server struct {
	addr     string
	provider Provider
	engine   *gin.Engine
	log      *logger.Logger

	mu       sync.RWMutex
	http     *http.Server
	listener net.Listener
}

var _ component.Component = (*Server)(nil)

// New creates a server for provider listening on addr.
func New(addr string, provider Provider, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		addr:     addr,
		provider: provider,
		engine:   gin.New(),
		log:      log.WithComponent("status"),
	}
	s.engine.Use(s.recovery(), s.requestLogger())
	s.engine.GET("/progress", s.progress)
	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/version", versionHandler)
	return s
}

// Handler returns the HTTP handler, for tests and custom listeners.
func (s *Server) Handler() http.Handler { return s.engine }

// Name returns the component name.
func (s *Server) Name() string { return "status" }

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Start binds the port and serves in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("status server failed to bind %s: %w", s.addr, err)
	}
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.http, s.listener = srv, ln
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("status server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()
	s.log.Info("status server started", logger.Fields("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the server down with a 5 second deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.http, s.listener = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	s.log.Info("status server stopped")
	return nil
}

// Health reports whether the server is listening.
func (s *Server) Health(_ context.Context) component.Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: "not listening"}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

// Describe reports the listen address.
func (s *Server) Describe() component.Description {
	return component.Description{Type: "http", Details: s.Addr()}
}
