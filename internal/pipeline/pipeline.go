package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/guttosm/eftpulse/internal/domain/models"
	"github.com/guttosm/eftpulse/internal/loader"
	"github.com/guttosm/eftpulse/internal/logger"
	"github.com/guttosm/eftpulse/internal/metrics"
	"github.com/guttosm/eftpulse/internal/storage"
	"github.com/guttosm/eftpulse/internal/transform"
)

// ErrConnectivity marks a run that could not reach the target store at start.
var ErrConnectivity = errors.New("target store unreachable")

// StageError records which stage of which stream failed.
// Entity is empty for the shared ingest stage.
type StageError struct {
	Entity models.Entity
	Stage  string
	Err    error
}

func (e *StageError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s stream: %s: %v", e.Entity, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// BatchSource provides the shared raw batch of a run.
type BatchSource interface {
	ReadBatch(ctx context.Context) (models.RawBatch, error)
}

// Tables maps each entity stream to its analytical table.
type Tables map[models.Entity]string

// Orchestrator runs Clean → Aggregate → Load for every entity stream.
type Orchestrator struct {
	source    BatchSource
	summaries storage.SummaryRepository
	tables    Tables
	entities  []models.Entity
	ping      func(ctx context.Context) error
	runLog    storage.RunLogRepository
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithPing checks store connectivity before anything is read.
func WithPing(ping func(ctx context.Context) error) Option {
	return func(o *Orchestrator) { o.ping = ping }
}

// WithRunLog persists every run report.
func WithRunLog(repo storage.RunLogRepository) Option {
	return func(o *Orchestrator) { o.runLog = repo }
}

// WithMetrics records row counters and stage durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithEntities restricts the run to the given streams.
func WithEntities(entities ...models.Entity) Option {
	return func(o *Orchestrator) { o.entities = entities }
}

// New builds an Orchestrator reading from source and loading through summaries.
func New(source BatchSource, summaries storage.SummaryRepository, tables Tables, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:    source,
		summaries: summaries,
		tables:    tables,
		entities:  models.Entities,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one batch run and returns its report. It never returns an error:
// every failure is captured in the report.
//
// Behavior:
//   - The store is pinged first (if configured); failure ends the run as failed.
//   - The raw batch is read once and shared by all streams.
//   - Streams run concurrently, each inside its own error boundary.
//   - ctx is checked between stages; cancellation fails the stage about to start.
func (o *Orchestrator) Run(ctx context.Context) models.RunReport {
	report := models.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: o.now().UTC(),
	}
	log := logger.Run(report.RunID)
	log.Info().Int("streams", len(o.entities)).Msg("run start")

	batch, err := o.readShared(ctx)
	if err != nil {
		report.FailedStage = models.StageIngest
		report.Error = err.Error()
		return o.finish(ctx, report)
	}

	results := make([]models.StreamReport, len(o.entities))
	var g errgroup.Group
	for i, entity := range o.entities {
		idx, e := i, entity
		g.Go(func() error {
			results[idx] = o.RunStream(ctx, e, batch)
			return nil
		})
	}
	_ = g.Wait()

	report.Streams = results
	return o.finish(ctx, report)
}

func (o *Orchestrator) readShared(ctx context.Context) (models.RawBatch, error) {
	ilog := logger.Stage("", models.StageIngest)
	start := time.Now()
	defer func() { o.metrics.ObserveStage("shared", models.StageIngest, time.Since(start).Seconds()) }()

	if o.ping != nil {
		if err := o.ping(ctx); err != nil {
			ilog.Error().Err(err).Msg("store unreachable")
			return models.RawBatch{}, &StageError{Stage: models.StageIngest, Err: fmt.Errorf("%w: %v", ErrConnectivity, err)}
		}
	}
	if err := ctx.Err(); err != nil {
		return models.RawBatch{}, &StageError{Stage: models.StageIngest, Err: err}
	}

	batch, err := o.source.ReadBatch(ctx)
	if err != nil {
		ilog.Error().Err(err).Msg("read batch failed")
		return models.RawBatch{}, &StageError{Stage: models.StageIngest, Err: err}
	}
	ilog.Info().Int("rows", len(batch.Rows)).Strs("columns", batch.Columns).Dur("elapsed", time.Since(start)).Msg("batch read")
	return batch, nil
}

// RunStream runs Clean → Aggregate → Load for one entity over batch.
// Failures stop this stream only and are recorded in the returned report.
func (o *Orchestrator) RunStream(ctx context.Context, entity models.Entity, batch models.RawBatch) (sr models.StreamReport) {
	start := time.Now()
	sr = models.StreamReport{
		Entity:   entity,
		Table:    o.tables[entity],
		RowsRead: len(batch.Rows),
	}
	o.metrics.AddRowsRead(string(entity), sr.RowsRead)

	defer func() {
		sr.Elapsed = time.Since(start)
		if sr.Succeeded {
			o.metrics.IncStreamOutcome(string(entity), "succeeded", "")
		} else {
			o.metrics.IncStreamOutcome(string(entity), "failed", sr.FailedStage)
		}
	}()

	rows, err := o.transform(ctx, entity, batch, &sr)
	if err != nil {
		recordFailure(&sr, err)
		return sr
	}

	if err := o.load(ctx, entity, rows, &sr); err != nil {
		recordFailure(&sr, err)
		return sr
	}

	sr.Succeeded = true
	return sr
}

// transform runs the clean and aggregate stages and fills their counters in sr.
func (o *Orchestrator) transform(ctx context.Context, entity models.Entity, batch models.RawBatch, sr *models.StreamReport) ([]models.AggregateRow, error) {
	stream := string(entity)

	// clean
	clog := logger.Stage(stream, models.StageClean)
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Entity: entity, Stage: models.StageClean, Err: err}
	}
	start := time.Now()
	res, err := transform.Clean(batch, entity)
	o.metrics.ObserveStage(stream, models.StageClean, time.Since(start).Seconds())
	if err != nil {
		clog.Error().Err(err).Msg("clean failed")
		return nil, &StageError{Entity: entity, Stage: models.StageClean, Err: err}
	}
	sr.RowsDropped = res.Dropped
	sr.Skipped = res.Skipped
	o.metrics.AddRowsDropped(stream, "missing_key", res.Dropped.MissingKey)
	o.metrics.AddRowsDropped(stream, "unparsable", res.Dropped.Unparsable)
	o.metrics.AddRowsDropped(stream, "negative_amount", res.Dropped.NegativeAmount)
	if res.Skipped {
		clog.Warn().Str("column", entity.KeyColumn()).Msg("key column absent, stream yields no rows")
	}
	clog.Info().
		Int("read", res.Read).
		Int("kept", len(res.Rows)).
		Int("dropped_missing", res.Dropped.MissingKey).
		Int("dropped_unparsable", res.Dropped.Unparsable).
		Int("dropped_negative", res.Dropped.NegativeAmount).
		Dur("elapsed", time.Since(start)).
		Msg("clean done")

	// aggregate
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Entity: entity, Stage: models.StageAggregate, Err: err}
	}
	start = time.Now()
	rows := transform.Aggregate(res.Rows, entity)
	o.metrics.ObserveStage(stream, models.StageAggregate, time.Since(start).Seconds())
	sr.RowsAggregated = len(rows)
	alog := logger.Stage(stream, models.StageAggregate)
	alog.Info().Int("groups", len(rows)).Dur("elapsed", time.Since(start)).Msg("aggregate done")

	return rows, nil
}

// load runs the idempotent load stage and fills its counters in sr.
func (o *Orchestrator) load(ctx context.Context, entity models.Entity, rows []models.AggregateRow, sr *models.StreamReport) error {
	stream := string(entity)
	if err := ctx.Err(); err != nil {
		return &StageError{Entity: entity, Stage: models.StageLoad, Err: err}
	}

	table, ok := o.tables[entity]
	if !ok || table == "" {
		return &StageError{Entity: entity, Stage: models.StageLoad, Err: fmt.Errorf("%w: no table for %s", storage.ErrUnknownTable, entity)}
	}

	start := time.Now()
	out, err := loader.Load(ctx, o.summaries, rows, table)
	o.metrics.ObserveStage(stream, models.StageLoad, time.Since(start).Seconds())
	if err != nil {
		return &StageError{Entity: entity, Stage: models.StageLoad, Err: err}
	}
	sr.RowsLoaded = out.RowsLoaded
	sr.RowsReplaced = out.RowsReplaced
	o.metrics.AddRowsLoaded(stream, out.RowsLoaded, out.RowsReplaced)
	return nil
}

func recordFailure(sr *models.StreamReport, err error) {
	var se *StageError
	if errors.As(err, &se) {
		sr.FailedStage = se.Stage
	}
	sr.Error = err.Error()
	lg := logger.Stage(string(sr.Entity), sr.FailedStage)
	lg.Error().Err(err).Msg("stream failed")
}

// finish stamps the terminal status, records metrics and persists the report.
func (o *Orchestrator) finish(ctx context.Context, report models.RunReport) models.RunReport {
	report.FinishedAt = o.now().UTC()
	report.Status = report.ResolveStatus()
	o.metrics.IncRunOutcome(string(report.Status), report.Status == models.RunSucceeded)

	rlog := logger.Run(report.RunID)
	ev := rlog.Info()
	if report.Status != models.RunSucceeded {
		ev = rlog.Error()
	}
	ev.Str("status", string(report.Status)).
		Str("failed_stage", report.FailedStage).
		Dur("elapsed", report.Elapsed()).
		Msg("run finished")

	if o.runLog != nil {
		// persist even when the run itself was cancelled or timed out
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := o.runLog.SaveRun(saveCtx, report); err != nil {
			rlog.Error().Err(err).Msg("save run report failed")
		}
	}
	return report
}
