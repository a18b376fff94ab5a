package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/overfast-proxy/internal/app"
	"github.com/Sternrassler/overfast-proxy/internal/config"
	"github.com/Sternrassler/overfast-proxy/internal/scheduler"
	"github.com/Sternrassler/overfast-proxy/internal/server"
	"github.com/Sternrassler/overfast-proxy/pkg/logging"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const refreshJob = "cache-refresh"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("Proxy failed")
	}
}

func newApp() *cli.App {
	cfg := config.Default()
	return &cli.App{
		Name:  "overfast-proxy",
		Usage: "cached JSON API over the Overwatch website",
		Flags: append(cfg.Flags(),
			&cli.DurationFlag{
				Name:    "request-timeout",
				Usage:   "timeout of one API request",
				Value:   30 * time.Second,
				EnvVars: []string{"REQUEST_TIMEOUT"},
			},
		),
		Action: func(cctx *cli.Context) error {
			return serve(cctx.Context, cfg, cctx.Duration("request-timeout"))
		},
	}
}

func serve(ctx context.Context, cfg config.Config, requestTimeout time.Duration) error {
	app.SetupLogging(cfg, os.Stderr)
	logger := logging.NewLogger("main")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	logger.Info().Str("store", cfg.Store).Str("upstream", cfg.UpstreamURL).Msg("Connected to store")

	srvCfg := server.Config{
		Resolver:       a.Resolver,
		Store:          a.Store,
		DefaultLocale:  cfg.DefaultLocale,
		RequestTimeout: requestTimeout,
	}

	if cfg.RefreshInterval > 0 {
		sched, err := scheduler.New(logging.NewLogger("scheduler"))
		if err != nil {
			return err
		}
		err = sched.Every(refreshJob, cfg.RefreshInterval, false, func(ctx context.Context) {
			if _, err := a.Refresh.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("Refresh sweep aborted")
			}
		})
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		srvCfg.Jobs = sched
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Str("user_agent", cfg.UserAgent).Msg("Starting overfast proxy")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
