// Command api serves the counsellor configurator HTTP API.
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

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/remotehive-dev/Spark-Configurator/internal/app"
	"github.com/remotehive-dev/Spark-Configurator/internal/config"
	"github.com/remotehive-dev/Spark-Configurator/internal/health"
	"github.com/remotehive-dev/Spark-Configurator/internal/obs"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger := obs.NewLogger(cfg.Obs.ServiceName, cfg.Obs.LogFormat, cfg.Obs.LogLevel).
		With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("api stopped with error")
	}
	logger.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	obs.RegisterDomain(cfg.Obs.MetricsNamespace, nil)
	var httpMetrics *obs.HTTPMetrics
	if cfg.Obs.EnablePrometheus {
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, cfg.Obs.MetricsBucketsMs, nil)
	}

	if cfg.Obs.EnableTracing {
		flush, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   cfg.Obs.ServiceName,
			Endpoint:      cfg.Obs.OTLPEndpoint,
			SamplingRatio: cfg.Obs.TracingSamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			// the API is still useful without spans
			logger.Error().Err(err).Msg("tracing disabled")
		} else {
			defer func() {
				fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := flush(fctx); err != nil {
					logger.Warn().Err(err).Msg("flush spans")
				}
			}()
		}
	}

	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	deps, err := app.Connect(cctx, cfg, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("connect dependencies: %w", err)
	}
	defer deps.Close()

	svc, err := newServices(cfg, deps, logger)
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	defer svc.hub.Close()

	if err := bootstrapAdmin(ctx, cfg, svc, logger); err != nil {
		return err
	}

	var handler http.Handler = newRouter(routerConfig{
		Config:      cfg,
		Deps:        deps,
		Logger:      logger,
		HTTPMetrics: httpMetrics,
		Tracing:     cfg.Obs.EnableTracing,
	}, svc)
	if cfg.Obs.EnableTracing {
		handler = otelhttp.NewHandler(handler, cfg.Obs.ServiceName)
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		health.SetReady(true)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown requested")
		health.SetReady(false)
		// topic streams only return once the hub closes
		svc.hub.Close()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func bootstrapAdmin(ctx context.Context, cfg *config.Config, svc *services, logger zerolog.Logger) error {
	if cfg.BootstrapAdminUsername == "" {
		return nil
	}
	bctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	created, err := svc.auth.EnsureAdmin(bctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin account: %w", err)
	}
	if created {
		logger.Info().Str("username", cfg.BootstrapAdminUsername).Msg("bootstrap admin account created")
	}
	return nil
}
