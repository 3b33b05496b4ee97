package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/guttosm/eftpulse/internal/domain/models"
	"github.com/shopspring/decimal"
)

type dummyErr struct{}

func (dummyErr) Error() string { return "dummy" }

const bankTable = "ana_bank_daily_summary"

func newMockSummaryRepo(t *testing.T) (*summaryRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	repo := NewSummaryRepository(db, bankTable).(*summaryRepository)
	cleanup := func() { _ = db.Close() }
	return repo, mock, cleanup
}

func sampleRows() []models.AggregateRow {
	d := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []models.AggregateRow{
		{EntityID: 1, AggDate: d, TotalAmount: decimal.RequireFromString("100.25"), NumTransactions: 2},
		{EntityID: 2, AggDate: d, TotalAmount: decimal.RequireFromString("50"), NumTransactions: 1},
	}
}

func TestReplaceByDates_SQLMock(t *testing.T) {
	repo, mock, done := newMockSummaryRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "ana_bank_daily_summary" WHERE agg_date = ANY($1::date[])`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	// pq.CopyIn cannot be intercepted precisely; accept any prepared statement and
	// expect one exec per row plus the final flush.
	prep := mock.ExpectPrepare(".*")
	prep.ExpectExec().WithArgs(int64(1), "2025-01-01", "100.25", int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(int64(2), "2025-01-01", "50", int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	deleted, err := repo.ReplaceByDates(context.Background(), bankTable, []string{"2025-01-01"}, sampleRows())
	if err != nil {
		t.Fatalf("ReplaceByDates: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("deleted=%d want 3", deleted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReplaceByDates_UnknownTable(t *testing.T) {
	repo, mock, done := newMockSummaryRepo(t)
	defer done()

	_, err := repo.ReplaceByDates(context.Background(), `x"; DROP TABLE y; --`, []string{"2025-01-01"}, sampleRows())
	if !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no statements should run: %v", err)
	}
}

func TestReplaceByDates_Errors(t *testing.T) {
	cases := []struct {
		name  string
		setup func(mock sqlmock.Sqlmock)
	}{
		{
			name: "begin fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(dummyErr{})
			},
		},
		{
			name: "delete fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM").WillReturnError(dummyErr{})
				mock.ExpectRollback()
			},
		},
		{
			name: "row copy fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM").WillReturnResult(sqlmock.NewResult(0, 0))
				prep := mock.ExpectPrepare(".*")
				prep.ExpectExec().WillReturnError(dummyErr{})
				mock.ExpectRollback()
			},
		},
		{
			name: "final flush fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM").WillReturnResult(sqlmock.NewResult(0, 0))
				prep := mock.ExpectPrepare(".*")
				prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
				prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(".*").WillReturnError(dummyErr{})
				mock.ExpectRollback()
			},
		},
		{
			name: "commit fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DELETE FROM").WillReturnResult(sqlmock.NewResult(0, 0))
				prep := mock.ExpectPrepare(".*")
				prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
				prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit().WillReturnError(dummyErr{})
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock, done := newMockSummaryRepo(t)
			defer done()
			tc.setup(mock)

			if _, err := repo.ReplaceByDates(context.Background(), bankTable, []string{"2025-01-01"}, sampleRows()); err == nil {
				t.Fatalf("expected error")
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestListByDate_SQLMock(t *testing.T) {
	repo, mock, done := newMockSummaryRepo(t)
	defer done()

	d := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"entity_id", "agg_date", "total_amount", "num_transactions"}).
		AddRow(int64(1), d, "100.2500", int64(2)).
		AddRow(int64(2), d, "50.0000", int64(1))
	mock.ExpectQuery(`SELECT entity_id, agg_date, total_amount, num_transactions\s+FROM "ana_bank_daily_summary"`).
		WithArgs("2025-01-01").
		WillReturnRows(rows)

	out, err := repo.ListByDate(context.Background(), bankTable, "2025-01-01")
	if err != nil {
		t.Fatalf("ListByDate: %v", err)
	}
	if len(out) != 2 || out[0].EntityID != 1 || !out[0].TotalAmount.Equal(decimal.RequireFromString("100.25")) {
		t.Fatalf("unexpected rows %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListByDate_Errors(t *testing.T) {
	repo, mock, done := newMockSummaryRepo(t)
	defer done()

	if _, err := repo.ListByDate(context.Background(), "nope", "2025-01-01"); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}

	mock.ExpectQuery("SELECT entity_id").WillReturnError(dummyErr{})
	if _, err := repo.ListByDate(context.Background(), bankTable, "2025-01-01"); err == nil {
		t.Fatalf("expected query error")
	}
}
