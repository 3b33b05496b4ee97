package models

import "time"

// RunStatus is the terminal state of a pipeline run.
type RunStatus string

const (
	RunSucceeded       RunStatus = "succeeded"
	RunPartiallyFailed RunStatus = "partially_failed"
	RunFailed          RunStatus = "failed"
)

// Stage names used in reports, logs and metrics.
const (
	StageIngest    = "ingest"
	StageClean     = "clean"
	StageAggregate = "aggregate"
	StageLoad      = "load"
)

// DropCounts breaks dropped rows down by reason.
type DropCounts struct {
	MissingKey     int `json:"missing_key"`
	Unparsable     int `json:"unparsable"`
	NegativeAmount int `json:"negative_amount"`
}

// Total is the sum of all drop reasons.
func (d DropCounts) Total() int {
	return d.MissingKey + d.Unparsable + d.NegativeAmount
}

// StreamReport describes what one entity stream did during a run.
//
// FailedStage and Error are empty when the stream succeeded. Counters hold whatever
// was collected before the failure.
type StreamReport struct {
	Entity         Entity        `json:"entity"`
	Table          string        `json:"table"`
	Succeeded      bool          `json:"succeeded"`
	Skipped        bool          `json:"skipped,omitempty"`
	FailedStage    string        `json:"failed_stage,omitempty"`
	Error          string        `json:"error,omitempty"`
	RowsRead       int           `json:"rows_read"`
	RowsDropped    DropCounts    `json:"rows_dropped"`
	RowsAggregated int           `json:"rows_aggregated"`
	RowsLoaded     int           `json:"rows_loaded"`
	RowsReplaced   int64         `json:"rows_replaced"`
	Elapsed        time.Duration `json:"elapsed_ns" swaggertype:"integer"`
}

// RunReport is the structured outcome of one pipeline run.
type RunReport struct {
	RunID       string         `json:"run_id"`
	Status      RunStatus      `json:"status"`
	FailedStage string         `json:"failed_stage,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Streams     []StreamReport `json:"streams"`
}

// ResolveStatus derives the terminal status from the stream outcomes.
// A run with no streams failed at the shared stage.
func (r RunReport) ResolveStatus() RunStatus {
	if len(r.Streams) == 0 {
		return RunFailed
	}
	ok := 0
	for _, s := range r.Streams {
		if s.Succeeded {
			ok++
		}
	}
	switch ok {
	case len(r.Streams):
		return RunSucceeded
	case 0:
		return RunFailed
	default:
		return RunPartiallyFailed
	}
}

// Elapsed is the wall-clock duration of the run.
func (r RunReport) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
