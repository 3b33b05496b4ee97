package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/guttosm/eftpulse/config"
	"github.com/guttosm/eftpulse/internal/domain/models"
	"github.com/guttosm/eftpulse/internal/handoff"
	"github.com/guttosm/eftpulse/internal/ingestion"
	"github.com/guttosm/eftpulse/internal/logger"
	"github.com/guttosm/eftpulse/internal/metrics"
	"github.com/guttosm/eftpulse/internal/pipeline"
	"github.com/guttosm/eftpulse/internal/storage"
)

// Batch modes.
const (
	ModeRun       = "run"
	ModeIngest    = "ingest"
	ModeTransform = "transform"
	ModeLoad      = "load"
)

// ErrRunNotSucceeded is returned when a batch finished but not every stream succeeded.
var ErrRunNotSucceeded = errors.New("run did not succeed")

// handoffOpener is an indirection for unit testing; defaults to handoff.Open.
var handoffOpener = handoff.Open

// BatchOptions selects what a batch invocation does.
//
// Fields:
//   - Mode: run | ingest | transform | load.
//   - Entity: stream for transform and load; ignored otherwise.
//   - DataPath: overrides cfg.Pipeline.DataPath when set.
type BatchOptions struct {
	Mode     string
	Entity   string
	DataPath string
}

// RunBatch executes one batch mode against the configured store.
//
// Behavior:
//   - run: ingest into staging, then clean/aggregate/load both streams; the report is persisted.
//   - ingest: read the input file(s) and replace the staging table.
//   - transform: read staging, clean and aggregate one stream, write its parquet handoff.
//   - load: read one stream's handoff and load it idempotently.
//
// An unreachable store fails with pipeline.ErrConnectivity before anything is read.
// Metrics are pushed to the Pushgateway afterwards when one is configured.
func RunBatch(ctx context.Context, cfg config.Config, opts BatchOptions) error {
	var entity models.Entity
	switch opts.Mode {
	case ModeRun, ModeIngest:
	case ModeTransform, ModeLoad:
		e, err := models.ParseEntity(opts.Entity)
		if err != nil {
			return fmt.Errorf("%s mode: %w", opts.Mode, err)
		}
		entity = e
	default:
		return fmt.Errorf("unknown mode %q", opts.Mode)
	}

	dataPath := cfg.Pipeline.DataPath
	if opts.DataPath != "" {
		dataPath = opts.DataPath
	}

	db, err := postgresOpener(cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", pipeline.ErrConnectivity, err)
	}
	defer func() { _ = db.Close() }()

	m := metrics.Init(MetricsNamespace)
	defer pushMetrics(ctx, cfg.Pipeline.PushgatewayURL, opts.Mode)

	switch opts.Mode {
	case ModeIngest:
		batch, err := ingestion.Run(ctx, dataPath, db, cfg.Pipeline.StagingTable)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		m.AddRowsRead("staging", len(batch.Rows))
		return nil

	case ModeRun:
		src := ingestion.Source{Pattern: dataPath, Repo: storage.NewStagingRepository(db, cfg.Pipeline.StagingTable)}
		o := newOrchestrator(db, cfg, src, m)
		report := o.Run(ctx)
		if report.Status != models.RunSucceeded {
			return fmt.Errorf("%w: run %s %s", ErrRunNotSucceeded, report.RunID, report.Status)
		}
		return nil

	default:
		store, err := handoffOpener(ctx, cfg.Pipeline.HandoffURL)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		o := newOrchestrator(db, cfg, storage.NewStagingRepository(db, cfg.Pipeline.StagingTable), m, pipeline.WithEntities(entity))
		var sr models.StreamReport
		if opts.Mode == ModeTransform {
			sr, err = o.TransformToHandoff(ctx, entity, store)
		} else {
			sr, err = o.LoadFromHandoff(ctx, entity, store)
		}
		logger.L().Info().
			Str("mode", opts.Mode).
			Str("stream", string(entity)).
			Bool("succeeded", sr.Succeeded).
			Int("rows_aggregated", sr.RowsAggregated).
			Int("rows_loaded", sr.RowsLoaded).
			Dur("elapsed", sr.Elapsed).
			Msg("stage finished")
		return err
	}
}

func newOrchestrator(db *sql.DB, cfg config.Config, src pipeline.BatchSource, m *metrics.Metrics, extra ...pipeline.Option) *pipeline.Orchestrator {
	opts := append([]pipeline.Option{
		pipeline.WithPing(db.PingContext),
		pipeline.WithRunLog(storage.NewRunLogRepository(db)),
		pipeline.WithMetrics(m),
	}, extra...)
	return pipeline.New(src, storage.NewSummaryRepository(db, cfg.Pipeline.SummaryTables()...), Tables(cfg.Pipeline), opts...)
}

func pushMetrics(ctx context.Context, url, mode string) {
	if url == "" {
		return
	}
	if err := metrics.Push(context.WithoutCancel(ctx), url, MetricsNamespace+"_"+mode, nil); err != nil {
		logger.L().Warn().Err(err).Str("pushgateway", url).Msg("metrics push failed")
		return
	}
	logger.L().Debug().Str("pushgateway", url).Msg("metrics pushed")
}
