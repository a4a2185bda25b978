package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Orchestrator manages the background goroutines: pool ingestion, the
// resolution sweep, reconciliation, and cold-storage archival. Any of the
// sub-pipelines may be nil, in which case its loop is not started; this is
// how the serve/sweep/ingest run modes share one orchestrator.
type Orchestrator struct {
	ingestor       *Ingestor
	sweeper        *Sweeper
	reconciler     *Reconciler
	archiver       *Archiver
	ingestInterval time.Duration
	reconInterval  time.Duration
	archiveCron    string
	logger         *slog.Logger
}

// NewOrchestrator creates an Orchestrator coordinating the given loops.
func NewOrchestrator(
	ingestor *Ingestor,
	sweeper *Sweeper,
	reconciler *Reconciler,
	archiver *Archiver,
	ingestInterval time.Duration,
	reconInterval time.Duration,
	archiveCron string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		ingestor:       ingestor,
		sweeper:        sweeper,
		reconciler:     reconciler,
		archiver:       archiver,
		ingestInterval: ingestInterval,
		reconInterval:  reconInterval,
		archiveCron:    archiveCron,
		logger:         logger.With(slog.String("component", "orchestrator")),
	}
}

// Run starts the configured loops as errgroup goroutines. Each respects ctx
// cancellation; a non-context error from any loop cancels the rest and is
// returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting")

	g, ctx := errgroup.WithContext(ctx)

	if o.ingestor != nil {
		g.Go(func() error {
			o.logger.Info("starting ingestor loop")
			err := o.ingestor.RunLoop(ctx, o.ingestInterval)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("ingestor: %w", err)
		})
	}

	if o.sweeper != nil {
		g.Go(func() error {
			o.logger.Info("starting sweeper loop")
			err := o.sweeper.RunLoop(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("sweeper: %w", err)
		})
	}

	if o.reconciler != nil {
		g.Go(func() error {
			o.logger.Info("starting reconciler loop")
			err := o.reconciler.RunLoop(ctx, o.reconInterval)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reconciler: %w", err)
		})
	}

	if o.archiver != nil {
		g.Go(func() error {
			o.logger.Info("starting archiver cron")
			err := o.archiver.RunCron(ctx, o.archiveCron)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}
