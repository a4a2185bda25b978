package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/polydraft/polydraft/internal/composer"
	"github.com/polydraft/polydraft/internal/pipeline"
	"github.com/polydraft/polydraft/internal/server"
	"github.com/polydraft/polydraft/internal/server/handler"
	"github.com/polydraft/polydraft/internal/server/ws"
	"github.com/polydraft/polydraft/internal/service"
)

// shutdownTimeout bounds graceful HTTP shutdown on exit.
const shutdownTimeout = 10 * time.Second

// ServeMode runs the HTTP + WebSocket API without any background pipelines.
// Use it to scale the API tier independently of the sweep workers.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.Info("starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		if err := hub.Run(ctx); ctx.Err() != nil {
			return nil
		} else if err != nil {
			return fmt.Errorf("ws hub: %w", err)
		}
		return nil
	})

	a.startHTTPServer(ctx, g, deps, hub, nil)
	return g.Wait()
}

// SweepMode runs the background pipelines (sweep, reconcile, archive) without
// the HTTP API or ingestion.
func (a *App) SweepMode(ctx context.Context, deps *Dependencies) error {
	a.logger.Info("starting sweep mode")

	settler := a.buildSettler(deps, nil)
	orch := pipeline.NewOrchestrator(
		nil,
		a.buildSweeper(deps, settler),
		a.buildReconciler(deps, settler),
		a.buildArchiver(deps),
		a.cfg.Ingest.Interval.Duration,
		a.cfg.Reconcile.Interval.Duration,
		a.cfg.Archive.Cron,
		a.logger,
	)
	return orch.Run(ctx)
}

// IngestMode runs only the pool ingestion loop.
func (a *App) IngestMode(ctx context.Context, deps *Dependencies) error {
	a.logger.Info("starting ingest mode")

	orch := pipeline.NewOrchestrator(
		a.buildIngestor(deps),
		nil, nil, nil,
		a.cfg.Ingest.Interval.Duration,
		a.cfg.Reconcile.Interval.Duration,
		a.cfg.Archive.Cron,
		a.logger,
	)
	return orch.Run(ctx)
}

// FullMode runs everything: the API, the WebSocket hub, and all background
// pipelines, with settlements broadcast live to connected clients.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.Info("starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		if err := hub.Run(ctx); ctx.Err() != nil {
			return nil
		} else if err != nil {
			return fmt.Errorf("ws hub: %w", err)
		}
		return nil
	})

	settler := a.buildSettler(deps, hub)
	sweeper := a.buildSweeper(deps, settler)
	orch := pipeline.NewOrchestrator(
		a.buildIngestor(deps),
		sweeper,
		a.buildReconciler(deps, settler),
		a.buildArchiver(deps),
		a.cfg.Ingest.Interval.Duration,
		a.cfg.Reconcile.Interval.Duration,
		a.cfg.Archive.Cron,
		a.logger,
	)
	g.Go(func() error {
		if err := orch.Run(ctx); ctx.Err() != nil {
			return nil
		} else if err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
		return nil
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, hub, sweeper)
	}
	return g.Wait()
}

// startHTTPServer adds the API server and its graceful-shutdown watcher to
// the errgroup. sweeper is optional; when present the sweep trigger endpoint
// is registered.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	hub *ws.Hub,
	sweeper *pipeline.Sweeper,
) {
	packSvc := a.buildPackService(deps)
	poolSvc := service.NewPoolService(deps.PoolStore, deps.EventStore, a.logger)

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Pools:  handler.NewPoolHandler(poolSvc, a.logger),
		Packs:  handler.NewPackHandler(packSvc, a.logger),
	}
	if sweeper != nil {
		handlers.Sweep = handler.NewSweepHandler(a.logger).WithTriggerChannel(sweeper.Trigger())
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		if err := srv.Start(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func (a *App) buildPackService(deps *Dependencies) *service.PackService {
	now := uint64(time.Now().UnixNano())
	comp := composer.New(rand.NewPCG(now, now>>17))
	return service.NewPackService(
		deps.PackStore,
		deps.PickStore,
		deps.EventStore,
		deps.PoolStore,
		deps.PaymentStore,
		deps.Verifier,
		comp,
		deps.AuditStore,
		a.cfg.Game.PackSize,
		a.cfg.Payment.PremiumPrice,
		a.logger,
	)
}

func (a *App) buildSettler(deps *Dependencies, hub *ws.Hub) *pipeline.Settler {
	var broadcast pipeline.PackBroadcaster
	if hub != nil {
		broadcast = hub
	}
	return pipeline.NewSettler(
		deps.EventStore,
		deps.PickStore,
		deps.PackStore,
		deps.QueueStore,
		deps.AuditStore,
		deps.Notifier,
		broadcast,
		a.logger,
	)
}

func (a *App) buildSweeper(deps *Dependencies, settler *pipeline.Settler) *pipeline.Sweeper {
	return pipeline.NewSweeper(
		deps.EventStore,
		deps.QueueStore,
		deps.Venue,
		deps.PriceCache,
		deps.RateLimiter,
		settler,
		pipeline.SweeperConfig{
			Interval:    a.cfg.Sweep.Interval.Duration,
			BatchSize:   a.cfg.Sweep.BatchSize,
			Concurrency: a.cfg.Sweep.Concurrency,
			ClaimWindow: a.cfg.Sweep.ClaimWindow.Duration,
			PollTimeout: a.cfg.Sweep.PollTimeout.Duration,
			RateLimit:   a.cfg.Sweep.RateLimit,
			RateWindow:  a.cfg.Sweep.RateWindow.Duration,
		},
		a.logger,
	).WithAlerter(deps.Notifier)
}

func (a *App) buildReconciler(deps *Dependencies, settler *pipeline.Settler) *pipeline.Reconciler {
	return pipeline.NewReconciler(deps.EventStore, settler, a.cfg.Reconcile.BatchSize, a.logger).
		WithAlerter(deps.Notifier)
}

func (a *App) buildIngestor(deps *Dependencies) *pipeline.Ingestor {
	return pipeline.NewIngestor(deps.PoolStore, deps.EventStore, deps.Venue, deps.LockManager, a.logger).
		WithAlerter(deps.Notifier)
}

// buildArchiver returns nil when cold storage is disabled, which disables the
// archive cron in the orchestrator.
func (a *App) buildArchiver(deps *Dependencies) *pipeline.Archiver {
	if deps.BlobArchiver == nil {
		return nil
	}
	return pipeline.NewArchiver(deps.BlobArchiver, a.cfg.Archive.RetentionDays, a.logger)
}
