// Command flywheel-server runs the control plane: the execution engine's
// reconciliation loop alongside the RPC listener, sharing one set of
// model/breaker registries and one persistence connection between them.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/flywheel-ml/flywheel/internal/breaker"
	"github.com/flywheel-ml/flywheel/internal/cache"
	"github.com/flywheel-ml/flywheel/internal/config"
	"github.com/flywheel-ml/flywheel/internal/engine"
	"github.com/flywheel-ml/flywheel/internal/logging"
	"github.com/flywheel-ml/flywheel/internal/persistence"
	"github.com/flywheel-ml/flywheel/internal/rpc"
	"github.com/flywheel-ml/flywheel/internal/runner"
	"github.com/flywheel-ml/flywheel/internal/stages"
	"github.com/flywheel-ml/flywheel/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zapLogger, err := logging.NewZapLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	logger := zapLogger.WithComponent("flywheel-server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown error", map[string]interface{}{"error": err.Error()})
		}
	}()

	store, err := persistence.OpenPostgresStore(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	defer store.Close()

	var dedupCache *cache.Client
	if cfg.Redis.URL != "" {
		dedupCache, err = cache.NewClient(cfg.Redis.URL, cfg.Namespace)
		if err != nil {
			logger.Warn("feedback dedup cache unavailable", map[string]interface{}{"error": err.Error()})
		}
	}

	var notifier stages.DriftNotifier = stages.NoopNotifier{}
	if cfg.Alerting.SlackEnabled {
		notifier = stages.NewSlackNotifier(cfg.Alerting.SlackToken, cfg.Alerting.SlackChannel)
	}

	models := runner.NewModelRegistry(cfg.Breaker.CallTimeout)
	breakers := runner.NewBreakerRegistry(breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		ResetTimeout:     cfg.Breaker.ResetTimeout,
		CallTimeout:      cfg.Breaker.CallTimeout,
	})

	deps := runner.Dependencies{
		Store: store, Models: models, Breakers: breakers, Cache: dedupCache,
		Notifier: notifier, Drift: cfg.Drift, Export: cfg.Export, Logger: logger,
	}

	eng := engine.New(store, deps, cfg.Reconcile, zapLogger.WithComponent("engine"))
	server := rpc.NewServer(store, eng, models, breakers, cfg.Server, zapLogger.WithComponent("rpc"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		eng.Start(gctx)
		return nil
	})
	g.Go(func() error {
		return server.Start(gctx)
	})

	err = g.Wait()
	eng.StopAll()
	if err != nil {
		logger.Error("flywheel-server exited with error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}
