package dto

import (
	"github.com/guttosm/eftpulse/internal/domain/models"
)

// SummaryRow is one daily summary as exposed by the API.
// Amounts are rendered as decimal strings so no precision is lost in JSON.
type SummaryRow struct {
	EntityID        int64  `json:"entity_id" example:"1"`
	AggDate         string `json:"agg_date" example:"2025-01-01"`
	TotalAmount     string `json:"total_amount" example:"100.50"`
	NumTransactions int64  `json:"num_transactions" example:"3"`
}

// SummaryResponse represents the JSON structure returned by
// GET /api/v1/summaries/{entity}.
type SummaryResponse struct {
	Entity string       `json:"entity" example:"bank"`
	Date   string       `json:"date" example:"2025-01-01"`
	Count  int          `json:"count" example:"2"`
	Rows   []SummaryRow `json:"rows"`
}

// NewSummaryResponse maps stored rows into the API contract.
func NewSummaryResponse(entity models.Entity, date string, rows []models.AggregateRow) SummaryResponse {
	out := SummaryResponse{
		Entity: string(entity),
		Date:   date,
		Count:  len(rows),
		Rows:   make([]SummaryRow, 0, len(rows)),
	}
	for _, r := range rows {
		out.Rows = append(out.Rows, SummaryRow{
			EntityID:        r.EntityID,
			AggDate:         r.AggDate.Format(models.DateLayout),
			TotalAmount:     r.TotalAmount.String(),
			NumTransactions: r.NumTransactions,
		})
	}
	return out
}

// StreamResponse is the per-stream part of RunResponse.
type StreamResponse struct {
	Entity         string            `json:"entity" example:"bank"`
	Table          string            `json:"table" example:"ana_bank_daily_summary"`
	Succeeded      bool              `json:"succeeded" example:"true"`
	Skipped        bool              `json:"skipped,omitempty"`
	FailedStage    string            `json:"failed_stage,omitempty" example:"load"`
	Error          string            `json:"error,omitempty"`
	RowsRead       int               `json:"rows_read" example:"1000"`
	RowsDropped    models.DropCounts `json:"rows_dropped"`
	RowsAggregated int               `json:"rows_aggregated" example:"42"`
	RowsLoaded     int               `json:"rows_loaded" example:"42"`
	RowsReplaced   int64             `json:"rows_replaced" example:"40"`
	ElapsedMs      int64             `json:"elapsed_ms" example:"120"`
}

// RunResponse represents the JSON structure returned by GET /api/v1/runs/latest.
type RunResponse struct {
	RunID       string           `json:"run_id" example:"6f1c7b0e-7b0a-4c1e-9d7e-1b2f3a4c5d6e"`
	Status      string           `json:"status" example:"succeeded"`
	FailedStage string           `json:"failed_stage,omitempty"`
	Error       string           `json:"error,omitempty"`
	StartedAt   string           `json:"started_at" example:"2025-01-02T03:00:00Z"`
	FinishedAt  string           `json:"finished_at" example:"2025-01-02T03:00:02Z"`
	ElapsedMs   int64            `json:"elapsed_ms" example:"2000"`
	Streams     []StreamResponse `json:"streams"`
}

// NewRunResponse maps a RunReport into the API contract.
func NewRunResponse(r models.RunReport) RunResponse {
	out := RunResponse{
		RunID:       r.RunID,
		Status:      string(r.Status),
		FailedStage: r.FailedStage,
		Error:       r.Error,
		StartedAt:   r.StartedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		FinishedAt:  r.FinishedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		ElapsedMs:   r.Elapsed().Milliseconds(),
		Streams:     make([]StreamResponse, 0, len(r.Streams)),
	}
	for _, s := range r.Streams {
		out.Streams = append(out.Streams, StreamResponse{
			Entity:         string(s.Entity),
			Table:          s.Table,
			Succeeded:      s.Succeeded,
			Skipped:        s.Skipped,
			FailedStage:    s.FailedStage,
			Error:          s.Error,
			RowsRead:       s.RowsRead,
			RowsDropped:    s.RowsDropped,
			RowsAggregated: s.RowsAggregated,
			RowsLoaded:     s.RowsLoaded,
			RowsReplaced:   s.RowsReplaced,
			ElapsedMs:      s.Elapsed.Milliseconds(),
		})
	}
	return out
}
