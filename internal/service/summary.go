package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guttosm/eftpulse/internal/domain/models"
	"github.com/guttosm/eftpulse/internal/storage"
)

// ErrInvalidDate is returned when the requested date is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// SummaryService exposes the loaded daily summaries and run reports.
type SummaryService interface {
	ListSummaries(ctx context.Context, entity models.Entity, date string) ([]models.AggregateRow, error)
	LatestRun(ctx context.Context) (*models.RunReport, error)
}

type summaryService struct {
	summaries storage.SummaryRepository
	runs      storage.RunLogRepository
	tables    map[models.Entity]string
}

// NewSummaryService builds a SummaryService reading entity summaries from tables.
func NewSummaryService(summaries storage.SummaryRepository, runs storage.RunLogRepository, tables map[models.Entity]string) SummaryService {
	return &summaryService{summaries: summaries, runs: runs, tables: tables}
}

// ListSummaries returns the rows of entity's table for one date, ordered by entity id.
func (s *summaryService) ListSummaries(ctx context.Context, entity models.Entity, date string) ([]models.AggregateRow, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	table, ok := s.tables[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrUnknownTable, entity)
	}
	return s.summaries.ListByDate(ctx, table, date)
}

// LatestRun returns the most recent run report, or nil if no run was recorded.
func (s *summaryService) LatestRun(ctx context.Context) (*models.RunReport, error) {
	return s.runs.LatestRun(ctx)
}
