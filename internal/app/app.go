package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/you/incidentsvc/internal/config"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

// Run serves the API until ctx is cancelled, then drains in-flight requests
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	container, err := NewContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer container.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           container.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		container.Attempts.Run(gctx, sweepInterval)
		return nil
	})
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
