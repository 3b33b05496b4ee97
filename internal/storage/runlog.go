package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/guttosm/eftpulse/internal/domain/models"
)

// RunLogRepository persists pipeline run reports.
type RunLogRepository interface {
	SaveRun(ctx context.Context, report models.RunReport) error
	LatestRun(ctx context.Context) (*models.RunReport, error)
}

type runLogRepository struct {
	db *sql.DB
}

func NewRunLogRepository(db *sql.DB) RunLogRepository {
	return &runLogRepository{db: db}
}

// SaveRun inserts (or overwrites) the report of one run, keyed by run id.
func (r *runLogRepository) SaveRun(ctx context.Context, report models.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO etl_run_log (run_id, status, started_at, finished_at, report)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id)
		DO UPDATE SET status = EXCLUDED.status,
					  finished_at = EXCLUDED.finished_at,
					  report = EXCLUDED.report
	`, report.RunID, string(report.Status), report.StartedAt, report.FinishedAt, payload)
	return err
}

// LatestRun returns the most recently started run, or nil if none was recorded.
func (r *runLogRepository) LatestRun(ctx context.Context) (*models.RunReport, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT report FROM etl_run_log ORDER BY started_at DESC LIMIT 1`,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var report models.RunReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}
