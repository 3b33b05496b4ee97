package pipeline

import (
	"context"
	"time"

	"github.com/guttosm/eftpulse/internal/domain/models"
	"github.com/guttosm/eftpulse/internal/logger"
)

// SummaryHandoff stages aggregated rows between a transform run and a load run.
type SummaryHandoff interface {
	WriteSummaries(ctx context.Context, entity models.Entity, rows []models.AggregateRow) error
	ReadSummaries(ctx context.Context, entity models.Entity) ([]models.AggregateRow, error)
}

// TransformToHandoff reads the staged batch, cleans and aggregates it for entity,
// and writes the result to h. The target table is not touched.
func (o *Orchestrator) TransformToHandoff(ctx context.Context, entity models.Entity, h SummaryHandoff) (sr models.StreamReport, err error) {
	start := time.Now()
	sr = models.StreamReport{Entity: entity, Table: o.tables[entity]}
	defer func() { sr.Elapsed = time.Since(start) }()

	batch, err := o.readShared(ctx)
	if err != nil {
		recordFailure(&sr, err)
		return sr, err
	}
	sr.RowsRead = len(batch.Rows)
	o.metrics.AddRowsRead(string(entity), sr.RowsRead)

	rows, err := o.transform(ctx, entity, batch, &sr)
	if err != nil {
		recordFailure(&sr, err)
		return sr, err
	}

	if werr := h.WriteSummaries(ctx, entity, rows); werr != nil {
		err = &StageError{Entity: entity, Stage: models.StageAggregate, Err: werr}
		recordFailure(&sr, err)
		return sr, err
	}
	alog := logger.Stage(string(entity), models.StageAggregate)
	alog.Info().Int("rows", len(rows)).Msg("handoff written")

	sr.Succeeded = true
	return sr, nil
}

// LoadFromHandoff reads the rows a previous TransformToHandoff wrote for entity
// and loads them into the entity's table.
func (o *Orchestrator) LoadFromHandoff(ctx context.Context, entity models.Entity, h SummaryHandoff) (sr models.StreamReport, err error) {
	start := time.Now()
	sr = models.StreamReport{Entity: entity, Table: o.tables[entity]}
	defer func() { sr.Elapsed = time.Since(start) }()

	rows, err := h.ReadSummaries(ctx, entity)
	if err != nil {
		err = &StageError{Entity: entity, Stage: models.StageLoad, Err: err}
		recordFailure(&sr, err)
		return sr, err
	}
	sr.RowsAggregated = len(rows)

	if err = o.load(ctx, entity, rows, &sr); err != nil {
		recordFailure(&sr, err)
		return sr, err
	}
	sr.Succeeded = true
	return sr, nil
}
