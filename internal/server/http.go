package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// HTTPServer wraps a gin.Engine with graceful shutdown. In-flight requests
// get up to the configured drain window after the run context is cancelled.
type HTTPServer struct {
	Engine        *gin.Engine
	drainTimeout  time.Duration
	headerTimeout time.Duration
}

// NewHTTPServer creates a server around the router. drainTimeout bounds the
// graceful shutdown; a non-positive value falls back to ten seconds.
func NewHTTPServer(router *gin.Engine, drainTimeout time.Duration) *HTTPServer {
	if drainTimeout <= 0 {
		drainTimeout = 10 * time.Second
	}
	router.HandleMethodNotAllowed = true
	router.ForwardedByClientIP = true
	return &HTTPServer{
		Engine:        router,
		drainTimeout:  drainTimeout,
		headerTimeout: 5 * time.Second,
	}
}

// Run starts the HTTP server on addr and shuts it down when ctx is done.
func (s *HTTPServer) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: s.headerTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
