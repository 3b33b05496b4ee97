package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/guttosm/eftpulse/internal/domain/models"
	pq "github.com/lib/pq"
)

// ErrNoStagedBatch is returned by ReadBatch when nothing was ingested yet.
var ErrNoStagedBatch = errors.New("no staged batch")

// StagingRepository holds the raw batch between ingest and transform.
type StagingRepository interface {
	ReplaceBatch(ctx context.Context, batch models.RawBatch) error
	ReadBatch(ctx context.Context) (models.RawBatch, error)
}

type stagingRepository struct {
	db    *sql.DB
	table string
}

// NewStagingRepository returns a repository over the given staging table.
func NewStagingRepository(db *sql.DB, table string) StagingRepository {
	return &stagingRepository{db: db, table: table}
}

// ReplaceBatch truncates the staging table, bulk-copies every row of batch and
// records which columns the source carried, all in one transaction.
func (r *stagingRepository) ReplaceBatch(ctx context.Context, batch models.RawBatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `TRUNCATE TABLE `+pq.QuoteIdentifier(r.table)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("truncate staging: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(r.table, models.RawColumns...))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare copy: %w", err)
	}

	// nil cells are staged as NULL
	toNull := func(s *string) interface{} {
		if s == nil {
			return nil
		}
		return *s
	}

	for _, rec := range batch.Rows {
		if _, err := stmt.ExecContext(ctx,
			toNull(rec.TransactionID),
			toNull(rec.BankID),
			toNull(rec.CustomerID),
			toNull(rec.TransactionDate),
			toNull(rec.TransactionAmount),
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("copy row: %w", err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO stg_batch_log (staging_table, columns, row_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (staging_table)
		DO UPDATE SET columns = EXCLUDED.columns,
					  row_count = EXCLUDED.row_count,
					  loaded_at = NOW()
	`, r.table, pq.Array(batch.Columns), len(batch.Rows)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record batch columns: %w", err)
	}

	return tx.Commit()
}

// ReadBatch returns the staged batch. Columns the source did not carry are
// reported as absent, not as all-NULL columns.
func (r *stagingRepository) ReadBatch(ctx context.Context) (models.RawBatch, error) {
	var batch models.RawBatch

	var cols pq.StringArray
	err := r.db.QueryRowContext(ctx,
		`SELECT columns FROM stg_batch_log WHERE staging_table = $1`, r.table,
	).Scan(&cols)
	if errors.Is(err, sql.ErrNoRows) {
		return batch, ErrNoStagedBatch
	}
	if err != nil {
		return batch, fmt.Errorf("read batch columns: %w", err)
	}
	batch.Columns = []string(cols)

	rows, err := r.db.QueryContext(ctx, `
		SELECT transaction_id, bank_id, customer_id, transaction_date, transaction_amount
		FROM `+pq.QuoteIdentifier(r.table))
	if err != nil {
		return batch, fmt.Errorf("read staging: %w", err)
	}
	defer func() { _ = rows.Close() }()

	fromNull := func(ns sql.NullString) *string {
		if !ns.Valid {
			return nil
		}
		s := ns.String
		return &s
	}

	for rows.Next() {
		var txID, bank, cust, date, amount sql.NullString
		if err := rows.Scan(&txID, &bank, &cust, &date, &amount); err != nil {
			return batch, err
		}
		batch.Rows = append(batch.Rows, models.RawTransaction{
			TransactionID:     fromNull(txID),
			BankID:            fromNull(bank),
			CustomerID:        fromNull(cust),
			TransactionDate:   fromNull(date),
			TransactionAmount: fromNull(amount),
		})
	}
	return batch, rows.Err()
}
