// Package pipeline provides the sync execution engine for partsync,
// driving connector extraction, record processing, and batched import in
// bounded chunks while a sync-run record tracks lifecycle and progress.
//
// Each pipeline invocation is logically sequential: chunk N+1 is not
// processed until chunk N has been fully processed and, unless the run is
// a dry run, imported. Chunk size caps the in-flight record count; there
// is no parallel fan-out of chunks within one run. Concurrency across runs
// is the caller's concern: runs for different (entity, source) pairs are
// independent, while same-pair runs must be serialized by an external
// scheduler.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/partsbridge/partsync/pkg/connector/core"
	"github.com/partsbridge/partsync/pkg/errors"
	"github.com/partsbridge/partsync/pkg/logger"
	"github.com/partsbridge/partsync/pkg/metrics"
	"github.com/partsbridge/partsync/pkg/models"
	"github.com/partsbridge/partsync/pkg/processor"
	"github.com/partsbridge/partsync/pkg/syncrun"
)

// BatchImporter is the persistence surface the pipeline drives. Satisfied
// by *importer.Importer; tests substitute fakes.
type BatchImporter interface {
	ImportBatch(ctx context.Context, records []models.ProcessedRecord) (models.ImportResult, error)
}

// Options controls one pipeline invocation.
type Options struct {
	// Limit caps extracted rows; 0 means no cap
	Limit int
	// ChunkSize bounds the number of rows processed and imported together
	ChunkSize int
	// DryRun performs extraction and processing in full but never calls
	// the importer
	DryRun bool
	// RaiseOnError additionally returns run-level errors from Run;
	// either way the failure is reflected in the summary and run record
	RaiseOnError bool
}

// DefaultChunkSize bounds memory when the caller does not choose a size.
const DefaultChunkSize = 500

// SyncPipeline orchestrates one (entity, source) synchronization.
type SyncPipeline struct {
	entity     string
	sourceType string
	connector  core.Source
	processor  processor.Processor
	importer   BatchImporter
	runs       syncrun.Store
	logger     *zap.Logger
}

// New creates a pipeline. The importer may be nil only for permanently
// dry-run pipelines.
func New(entity, sourceType string, connector core.Source, proc processor.Processor, imp BatchImporter, runs syncrun.Store, log *zap.Logger) *SyncPipeline {
	return &SyncPipeline{
		entity:     entity,
		sourceType: sourceType,
		connector:  connector,
		processor:  proc,
		importer:   imp,
		runs:       runs,
		logger: log.With(
			zap.String("component", "sync_pipeline"),
			zap.String("entity", entity),
			zap.String("source", sourceType)),
	}
}

// Run executes one synchronization: connect, extract, then process and
// import chunk by chunk. The sync run always reaches exactly one terminal
// state and the connector is always closed, whatever the outcome. The
// summary is returned in every case; the error return carries run-level
// failures only when Options.RaiseOnError is set.
func (p *SyncPipeline) Run(ctx context.Context, query string, opts Options) (models.Summary, error) {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	run := syncrun.NewRun(p.entity, p.sourceType)
	if err := p.runs.CreateRun(ctx, run); err != nil {
		return models.Summary{DryRun: opts.DryRun}, err
	}

	log := p.logger.With(zap.String("run_id", run.ID))
	log.Info("sync run starting",
		zap.String("query", query),
		zap.Int("chunk_size", chunkSize),
		zap.Bool("dry_run", opts.DryRun))

	summary := models.Summary{DryRun: opts.DryRun, ErrorDetails: []models.ImportError{}}
	var counts syncrun.Counts

	// Close always executes, regardless of outcome, including caller
	// cancellation mid-run.
	defer func() {
		if err := p.connector.Close(); err != nil {
			log.Warn("connector close failed", zap.Error(err))
		}
	}()

	// Downstream log sites (connectors included) pick these up through
	// logger.WithContext.
	ctx = context.WithValue(ctx, logger.RunIDKey, run.ID)
	ctx = context.WithValue(ctx, logger.EntityKey, p.entity)
	ctx = context.WithValue(ctx, logger.SourceKey, p.sourceType)

	if err := p.runs.UpdateStatus(ctx, run.ID, syncrun.StatusRunning, counts); err != nil {
		// The run record never left PENDING; the store failure is
		// surfaced like any other run-level error, though the stored
		// record cannot reach FAILED without passing through RUNNING.
		return p.fail(ctx, run.ID, summary, counts, opts, log, err)
	}

	if err := p.connector.Connect(ctx); err != nil {
		return p.fail(ctx, run.ID, summary, counts, opts, log, err)
	}

	rows, err := p.connector.Extract(ctx, query, opts.Limit)
	if err != nil {
		return p.fail(ctx, run.ID, summary, counts, opts, log, err)
	}
	log.Info("extraction complete", zap.Int("rows", len(rows)))

	for chunkIndex := 0; chunkIndex*chunkSize < len(rows); chunkIndex++ {
		if err := ctx.Err(); err != nil {
			wrapped := errors.Wrap(err, errors.ErrorTypeConnection, "sync run cancelled")
			return p.fail(ctx, run.ID, summary, counts, opts, log, wrapped)
		}

		start := chunkIndex * chunkSize
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		outcome := p.processor.Process(chunk)

		summary.RecordsProcessed += len(outcome.Records)
		summary.RecordsFailed += len(outcome.Skipped)
		for _, skip := range outcome.Skipped {
			summary.ErrorDetails = append(summary.ErrorDetails, models.ImportError{
				NaturalKey: skip.NaturalKey,
				Message:    skip.Reason,
			})
		}

		var result models.ImportResult
		if !opts.DryRun {
			var importErr error
			result, importErr = p.importer.ImportBatch(ctx, outcome.Records)

			// The importer reports accumulated per-record results
			// alongside any batch-level error; both surface.
			summary.RecordsFailed += result.Failed
			summary.ErrorDetails = append(summary.ErrorDetails, result.Errors...)

			if importErr != nil && errors.IsFatal(importErr) {
				// Chunks committed by prior iterations stay
				// committed. Writes rolled back with this batch
				// are not counted as created or updated.
				counts.Processed += len(outcome.Records)
				counts.Failed += len(outcome.Skipped) + result.Failed
				return p.fail(ctx, run.ID, summary, counts, opts, log, importErr)
			}
			summary.RecordsCreated += result.Created
			summary.RecordsUpdated += result.Updated
		}

		counts.Processed += len(outcome.Records)
		counts.Created += result.Created
		counts.Updated += result.Updated
		counts.Failed += len(outcome.Skipped) + result.Failed

		metrics.RecordChunk(p.entity, p.sourceType,
			len(outcome.Records), result.Created, result.Updated,
			len(outcome.Skipped)+result.Failed)

		if err := p.runs.AddEvent(ctx, run.ID, "chunk_completed", "chunk processed", map[string]interface{}{
			"chunk":     chunkIndex,
			"extracted": len(chunk),
			"processed": len(outcome.Records),
			"created":   result.Created,
			"updated":   result.Updated,
			"failed":    len(outcome.Skipped) + result.Failed,
		}); err != nil {
			log.Warn("failed to record chunk event", zap.Error(err))
		}

		log.Debug("chunk completed",
			zap.Int("chunk", chunkIndex),
			zap.Int("processed", len(outcome.Records)),
			zap.Int("failed", len(outcome.Skipped)+result.Failed))
	}

	if err := p.runs.UpdateStatus(ctx, run.ID, syncrun.StatusCompleted, counts); err != nil {
		// The work is done but the run record could not record it;
		// report the run as failed rather than silently complete.
		return p.fail(ctx, run.ID, summary, counts, opts, log, err)
	}
	summary.Success = true

	p.finish(ctx, run.ID, syncrun.StatusCompleted, log)
	log.Info("sync run completed",
		zap.Int("processed", summary.RecordsProcessed),
		zap.Int("created", summary.RecordsCreated),
		zap.Int("updated", summary.RecordsUpdated),
		zap.Int("failed", summary.RecordsFailed))
	return summary, nil
}

// fail drives the run to FAILED, records the error event, and applies the
// caller's error-surfacing contract. The failure is never silently
// swallowed: it is logged, recorded on the run, and reflected in the
// summary even when not returned as an error.
func (p *SyncPipeline) fail(ctx context.Context, runID string, summary models.Summary, counts syncrun.Counts, opts Options, log *zap.Logger, cause error) (models.Summary, error) {
	log.Error("sync run failed", zap.Error(cause))

	if err := p.runs.AddEvent(ctx, runID, "run_failed", cause.Error(), map[string]interface{}{
		"error_type": string(errors.TypeOf(cause)),
	}); err != nil {
		log.Warn("failed to record failure event", zap.Error(err))
	}
	if err := p.runs.UpdateStatus(ctx, runID, syncrun.StatusFailed, counts); err != nil {
		log.Warn("failed to mark run failed", zap.Error(err))
	}

	p.finish(ctx, runID, syncrun.StatusFailed, log)

	summary.Success = false
	if opts.RaiseOnError {
		return summary, cause
	}
	return summary, nil
}

// finish records terminal-state metrics from the persisted run.
func (p *SyncPipeline) finish(ctx context.Context, runID string, status syncrun.Status, log *zap.Logger) {
	run, err := p.runs.GetRun(ctx, runID)
	duration := time.Duration(0)
	if err == nil {
		duration = run.Duration
	} else {
		log.Warn("failed to read run for metrics", zap.Error(err))
	}
	metrics.RecordRun(p.entity, p.sourceType, string(status), duration)
}
