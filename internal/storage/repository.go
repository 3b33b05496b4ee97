package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/guttosm/eftpulse/internal/domain/models"
	pq "github.com/lib/pq"
)

// ErrUnknownTable is returned when a summary table is not in the repository allow-list.
var ErrUnknownTable = errors.New("unknown summary table")

// SummaryRepository defines the DB operations on the daily summary tables.
type SummaryRepository interface {
	ReplaceByDates(ctx context.Context, table string, dates []string, rows []models.AggregateRow) (int64, error)
	ListByDate(ctx context.Context, table string, date string) ([]models.AggregateRow, error)
}

type summaryRepository struct {
	db     *sql.DB
	tables map[string]struct{}
}

// NewSummaryRepository builds a repository that only touches the given tables.
// Table names cannot be bound as statement parameters, so they are checked against
// this list and quoted before use.
func NewSummaryRepository(db *sql.DB, tables ...string) SummaryRepository {
	allowed := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		allowed[t] = struct{}{}
	}
	return &summaryRepository{db: db, tables: allowed}
}

func (r *summaryRepository) quoted(table string) (string, error) {
	if _, ok := r.tables[table]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return pq.QuoteIdentifier(table), nil
}

// ReplaceByDates deletes every row of table whose agg_date is in dates and inserts rows,
// in a single read-committed transaction. Either both steps are applied or neither is.
//
// Returns the number of rows deleted.
func (r *summaryRepository) ReplaceByDates(ctx context.Context, table string, dates []string, rows []models.AggregateRow) (int64, error) {
	qt, err := r.quoted(table)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM `+qt+` WHERE agg_date = ANY($1::date[])`, pq.Array(dates))
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("delete dates: %w", err)
	}
	deleted, _ := res.RowsAffected()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(
		table,
		"entity_id",
		"agg_date",
		"total_amount",
		"num_transactions",
	))
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare copy: %w", err)
	}

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.EntityID,
			row.AggDate.Format(models.DateLayout),
			row.TotalAmount.String(),
			row.NumTransactions,
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return 0, fmt.Errorf("copy row: %w", err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return 0, fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return deleted, nil
}

// ListByDate returns the stored summaries of one day, ordered by entity id.
func (r *summaryRepository) ListByDate(ctx context.Context, table string, date string) ([]models.AggregateRow, error) {
	qt, err := r.quoted(table)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT entity_id, agg_date, total_amount, num_transactions
		FROM `+qt+`
		WHERE agg_date = $1::date
		ORDER BY entity_id
	`, date)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]models.AggregateRow, 0)
	for rows.Next() {
		var a models.AggregateRow
		if err := rows.Scan(&a.EntityID, &a.AggDate, &a.TotalAmount, &a.NumTransactions); err != nil {
			return nil, err
		}
		a.AggDate = a.AggDate.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
