// Package rest exposes the user service over HTTP/JSON using gin.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/quicklyway/internal/logging"
	"github.com/dmitrijs2005/quicklyway/internal/server/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

type HTTPServer struct {
	address         string
	server          *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration
}

// NewHTTPServer builds the router and wraps it with CORS for the frontend origin.
func NewHTTPServer(cfg *config.Config, l logging.Logger, svc AuthService, tokens TokenVerifier) *HTTPServer {
	logger := l.With("module", "http_server")

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := NewRouter(logger, svc, tokens)

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         cfg.EndpointAddrHTTP,
		Handler:      c.Handler(engine),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	return &HTTPServer{
		address:         cfg.EndpointAddrHTTP,
		server:          srv,
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() {
		return []string{"*"}
	}
	return []string{strings.TrimRight(cfg.FrontendURL, "/")}
}

// Handler returns the root handler including CORS.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "graceful shutdown failed", "error", err)
			_ = s.server.Close()
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := s.server.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
