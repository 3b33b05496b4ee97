package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guttosm/eftpulse/internal/domain/models"
	"github.com/guttosm/eftpulse/internal/logger"
	"github.com/guttosm/eftpulse/internal/storage"
)

// LoadOutcome describes a finished load.
//
// Fields:
//   - Table: analytical table written to.
//   - Dates: distinct agg_date values that were replaced.
//   - RowsLoaded: rows inserted.
//   - RowsReplaced: pre-existing rows deleted for those dates.
//   - NothingToLoad: true when the input was empty and the store was not touched.
type LoadOutcome struct {
	Table         string
	Dates         []string
	RowsLoaded    int
	RowsReplaced  int64
	NothingToLoad bool
}

// LoadError reports that the delete+insert unit could not be committed.
// The table is left exactly as it was before the attempt.
type LoadError struct {
	Table string
	Dates []string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load into %s for dates [%s]: %v", e.Table, strings.Join(e.Dates, ", "), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load replaces the rows of table for every date present in rows with rows itself.
//
// Behavior:
//   - Empty rows: no-op, reported as NothingToLoad.
//   - Otherwise: one transaction deletes every row whose agg_date is in the batch's
//     date set, then inserts rows. Replaying the same rows leaves the same end state.
//   - Any failure (including a cancelled ctx) is returned as *LoadError.
func Load(ctx context.Context, repo storage.SummaryRepository, rows []models.AggregateRow, table string) (LoadOutcome, error) {
	log := logger.L().With().Str("table", table).Logger()
	out := LoadOutcome{Table: table}

	if len(rows) == 0 {
		out.NothingToLoad = true
		log.Warn().Msg("nothing to load")
		return out, nil
	}

	out.Dates = models.DistinctDates(rows)
	if err := ctx.Err(); err != nil {
		return out, &LoadError{Table: table, Dates: out.Dates, Err: err}
	}

	start := time.Now()
	replaced, err := repo.ReplaceByDates(ctx, table, out.Dates, rows)
	if err != nil {
		log.Error().Err(err).Strs("dates", out.Dates).Dur("elapsed", time.Since(start)).Msg("load failed")
		return out, &LoadError{Table: table, Dates: out.Dates, Err: err}
	}

	out.RowsLoaded = len(rows)
	out.RowsReplaced = replaced
	log.Info().
		Strs("dates", out.Dates).
		Int("rows_loaded", out.RowsLoaded).
		Int64("rows_replaced", out.RowsReplaced).
		Dur("elapsed", time.Since(start)).
		Msg("load committed")
	return out, nil
}
