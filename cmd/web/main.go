package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tennisluv/internal/app"
	"tennisluv/internal/web"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, "web-main")
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.Logger

	srv, err := web.NewServer(web.Deps{
		Config:        cfg.Web,
		Sessions:      a.Sessions,
		Booking:       a.Booking,
		Accounts:      a.Accounts,
		Admin:         a.Admin,
		Catalog:       a.Catalog,
		SheetsEnabled: a.SheetsEnabled(),
		Logger:        logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("create web server")
		return err
	}

	a.Run(ctx)
	go sweepLimiters(ctx, srv)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("web server stopped")
			return err
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("web server shutdown")
	}
	logger.Info().Msg("Shutdown complete.")
	return nil
}

func sweepLimiters(ctx context.Context, srv *web.Server) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.SweepLimiters(10 * time.Minute)
		}
	}
}
