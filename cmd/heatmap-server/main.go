package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"kmarket/internal/config"
	"kmarket/internal/httpapi"
	"kmarket/internal/live"
	"kmarket/internal/render"
	"kmarket/internal/util"
)

func main() {
	// Load config.
	cfg, found, err := config.LoadOrDefault(config.Path())
	if err != nil {
		zlog.Fatal().Err(err).Msg("loading config")
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	zlog.Logger = logger
	if !found {
		logger.Warn().Str("path", config.Path()).Msg("config file not found, using defaults")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	model, reloader, err := live.Bootstrap(ctx, cfg.Dataset, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("loading dataset")
	}

	renderer, err := render.New(cfg.RenderOptions())
	if err != nil {
		logger.Fatal().Err(err).Msg("loading fonts")
	}

	srv := httpapi.New(cfg, model, renderer, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return reloader.Run(gctx, cfg.Dataset.Reload) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
