package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lepinkainen/pricenest/internal/api"
	"github.com/lepinkainen/pricenest/internal/config"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd runs the HTTP API
type ServeCmd struct {
	Addr string `help:"Listen address (overrides server.addr)"`
}

func (s *ServeCmd) Run() error {
	if s.Addr != "" {
		viper.Set("server.addr", s.Addr)
	}
	settings := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return serve(ctx, a)
}

func newRouter(a *app) *gin.Engine {
	if a.settings.ServerDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.SetupRouter(&api.Handlers{
		Store:     a.store,
		Importer:  a.importer,
		Refresher: a.refresher,
		Books:     a.books,
		Movies:    a.movies,
	}, a.settings.CORSOrigin)
}

// serve blocks until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, a *app) error {
	server := &http.Server{
		Addr:              a.settings.ListenAddr,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", server.Addr, "database", a.store.Driver())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
