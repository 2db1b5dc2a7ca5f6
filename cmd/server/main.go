package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ecospy/ecospy-backend/internal/archive"
	"github.com/ecospy/ecospy-backend/internal/broker"
	"github.com/ecospy/ecospy-backend/internal/config"
	"github.com/ecospy/ecospy-backend/internal/game"
	"github.com/ecospy/ecospy-backend/internal/httpapi"
	"github.com/ecospy/ecospy-backend/internal/hub"
	"github.com/ecospy/ecospy-backend/internal/relay"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	var arch hub.Archiver
	if cfg.DatabaseURL != "" {
		a, err := archive.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		arch = a
		logger.Info("results archive enabled")
	}

	br := broker.New()
	rl := relay.New(br)
	h := hub.NewHub(ctx, game.NewRegistry(), br, arch, logger.Named("hub"))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, br, rl, logger, cfg.AllowedOrigins),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Strings("origins", cfg.AllowedOrigins))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		h.Inbox() <- hub.Shutdown{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
