package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/wilhg/adformats/internal/config"
	"github.com/wilhg/adformats/internal/httpapi"
	"github.com/wilhg/adformats/internal/logging"
	"github.com/wilhg/adformats/pkg/adstore"
	"github.com/wilhg/adformats/pkg/metrics"
	"github.com/wilhg/adformats/pkg/otel"
	"github.com/wilhg/adformats/pkg/store"
	"github.com/wilhg/adformats/pkg/transport"

	_ "github.com/wilhg/adformats/pkg/store/entstore"
	_ "github.com/wilhg/adformats/pkg/store/memstore"
)

// app is one wired instance of the store and its ambient stack.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	repo     store.Repository
	store    *adstore.Store
	shutdown func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, _, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, err
	}

	shutdown, err := otel.Init(ctx, otel.Config{
		ServiceVersion: version,
		Backend:        cfg.Database.Backend,
		Latency:        time.Duration(cfg.Store.Latency),
		SeedCount:      cfg.Store.SeedCount,
		SampleRatio:    cfg.Tracing.SampleRatio,
		UseStdout:      cfg.Tracing.Stdout,
		Writer:         os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	repo, err := adstore.OpenRepository(ctx, cfg.Database.Backend, cfg.Database.URL, cfg.Store.SeedCount)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	opts := []adstore.Option{
		adstore.WithLogger(logger.Named("adstore")),
		adstore.WithMetrics(metrics.New(reg)),
	}
	if cfg.Store.LenientUpdates {
		opts = append(opts, adstore.WithLenientUpdates())
	}
	if !cfg.Store.ValidateEvents {
		opts = append(opts, adstore.WithoutEventValidation())
	}
	tr := transport.New(
		transport.WithDelay(time.Duration(cfg.Store.Latency)),
		transport.WithLogger(logger.Named("transport")),
	)

	logger.Info("ad format store ready",
		zap.String("backend", cfg.Database.Backend),
		zap.Int("seed_count", cfg.Store.SeedCount),
		zap.Duration("latency", tr.Delay()))

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		repo:     repo,
		store:    adstore.New(repo, tr, opts...),
		shutdown: shutdown,
	}, nil
}

func (a *app) handler() (http.Handler, error) {
	return httpapi.New(a.store,
		httpapi.WithLogger(a.logger.Named("http")),
		httpapi.WithGatherer(a.registry))
}

// serve runs the HTTP API until ctx is done, then drains in-flight requests.
func (a *app) serve(ctx context.Context) error {
	h, err := a.handler()
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: a.cfg.Addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.String("addr", a.cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.logger.Info("http server shutting down")
	return srv.Shutdown(sctx)
}

func (a *app) Close() error {
	var errs []error
	if a.repo != nil {
		errs = append(errs, a.repo.Close())
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(context.Background()))
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
