package etl

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agroproductivo/etl-cli/internal/db"
	"github.com/agroproductivo/etl-cli/internal/etl/dimensional"
	"github.com/agroproductivo/etl-cli/internal/etl/resolve"
	"github.com/agroproductivo/etl-cli/internal/model"
)

// Record-level failures kept on the report; the rest are only counted.
const maxReportErrors = 100

// Pipeline drives a full run: optional extraction, entity resolution per
// program, dimension sync, and fact loading. Each resolver batch commits in
// its own transaction, so an aborted run resumes from the staging bookmark.
type Pipeline struct {
	pool          db.Pool
	resolver      *resolve.Resolver
	loader        *dimensional.Loader
	runlog        *RunLog
	batchSize     int
	factBatchSize int
	programs      []model.Program
	log           *zap.Logger

	// Extract, when set, runs before resolution and returns the number of
	// rows staged.
	Extract func(ctx context.Context) (int64, error)
}

// NewPipeline wires a Pipeline from its collaborators.
func NewPipeline(pool db.Pool, resolver *resolve.Resolver, loader *dimensional.Loader, batchSize, factBatchSize int) *Pipeline {
	return &Pipeline{
		pool:          pool,
		resolver:      resolver,
		loader:        loader,
		runlog:        NewRunLog(pool),
		batchSize:     batchSize,
		factBatchSize: factBatchSize,
		programs:      model.AllPrograms,
		log:           zap.L().With(zap.String("component", "etl.pipeline")),
	}
}

// Run executes the pipeline phases in order and reports the outcome. A
// storage error aborts the run; the report keeps the stats accumulated up to
// the failure.
func (p *Pipeline) Run(ctx context.Context) (*model.RunReport, error) {
	report := &model.RunReport{
		RunID:     uuid.NewString(),
		State:     model.StateIdle,
		StartedAt: time.Now(),
	}
	log := p.log.With(zap.String("run_id", report.RunID))

	logID, err := p.runlog.Start(ctx, report.RunID, "PIPELINE")
	if err != nil {
		return p.abort(ctx, report, 0, err), err
	}

	if p.Extract != nil {
		report.State = model.StateExtracting
		staged, err := p.Extract(ctx)
		if err != nil {
			return p.abort(ctx, report, logID, err), err
		}
		log.Info("extraction complete", zap.Int64("rows_staged", staged))
	}

	report.State = model.StateResolving
	for _, program := range p.programs {
		stats, recErrs, err := p.ResolveProgram(ctx, program)
		report.Resolved.Add(stats)
		for _, re := range recErrs {
			if len(report.Errors) < maxReportErrors {
				report.Errors = append(report.Errors, re)
			}
		}
		if err != nil {
			return p.abort(ctx, report, logID, err), err
		}
	}
	log.Info("resolution complete",
		zap.Int("processed", report.Resolved.Processed),
		zap.Int("success", report.Resolved.Success),
		zap.Int("errors", report.Resolved.Errors))

	report.State = model.StateDimSync
	counts, err := p.loader.SyncDimensions(ctx)
	report.Dimensions = counts
	if err != nil {
		return p.abort(ctx, report, logID, err), err
	}

	report.State = model.StateFactLoading
	inserted, skipped, err := p.loader.LoadFacts(ctx, p.factBatchSize)
	report.FactsLoaded = inserted
	report.FactsSkipped = skipped
	if err != nil {
		return p.abort(ctx, report, logID, err), err
	}

	report.State = model.StateDone
	report.Duration = time.Since(report.StartedAt)

	if err := p.runlog.Complete(ctx, logID, &RunResult{
		RowsProcessed: int64(report.Resolved.Processed),
		Metadata: map[string]any{
			"facts_loaded":  report.FactsLoaded,
			"facts_skipped": report.FactsSkipped,
			"record_errors": report.Resolved.Errors,
		},
	}); err != nil {
		return report, err
	}

	log.Info("pipeline run complete",
		zap.Duration("duration", report.Duration),
		zap.Int64("facts_loaded", report.FactsLoaded))
	return report, nil
}

// ResolveProgram drains the program's staging backlog in batches, one
// transaction per batch. A storage error rolls back the failing batch and
// returns the stats accumulated so far; earlier batches stay committed.
func (p *Pipeline) ResolveProgram(ctx context.Context, program model.Program) (model.BatchStats, []model.RecordError, error) {
	var total model.BatchStats
	var allErrs []model.RecordError

	for {
		tx, err := p.pool.Begin(ctx)
		if err != nil {
			return total, allErrs, err
		}

		records, err := resolve.FetchPending(ctx, tx, program, p.batchSize)
		if err != nil {
			_ = tx.Rollback(ctx)
			return total, allErrs, err
		}
		if len(records) == 0 {
			_ = tx.Rollback(ctx)
			return total, allErrs, nil
		}

		stats, recErrs, err := p.resolver.ResolveBatch(ctx, tx, records)
		if err != nil {
			_ = tx.Rollback(ctx)
			total.Add(stats)
			return total, allErrs, err
		}
		if err := tx.Commit(ctx); err != nil {
			return total, allErrs, err
		}

		total.Add(stats)
		allErrs = append(allErrs, recErrs...)

		p.log.Info("batch resolved",
			zap.String("program", string(program)),
			zap.Int("processed", stats.Processed),
			zap.Int("errors", stats.Errors))

		if len(records) < p.batchSize {
			return total, allErrs, nil
		}
	}
}

func (p *Pipeline) abort(ctx context.Context, report *model.RunReport, logID int64, cause error) *model.RunReport {
	phase := report.State
	report.State = model.StateAborted
	report.Duration = time.Since(report.StartedAt)
	report.RunError = cause.Error()

	if logID != 0 {
		if err := p.runlog.Fail(ctx, logID, cause.Error()); err != nil {
			p.log.Warn("failed to record run failure", zap.Error(err))
		}
	}
	p.log.Error("pipeline run aborted",
		zap.String("run_id", report.RunID),
		zap.String("phase", string(phase)),
		zap.Error(cause))
	return report
}
