package app

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/guttosm/eftpulse/config"
	"github.com/guttosm/eftpulse/internal/handoff"
	"github.com/guttosm/eftpulse/internal/pipeline"
)

func batchConfig(handoffURL string) config.Config {
	cfg := testPGConfig()
	cfg.Pipeline = config.PipelineConfig{
		DataPath:      "does/not/matter.csv",
		StagingTable:  "stg_transactions",
		BankTable:     "ana_bank_daily_summary",
		CustomerTable: "ana_customer_daily_summary",
		HandoffURL:    handoffURL,
	}
	return cfg
}

// withOpeners makes postgresOpener hand out the given databases in order.
func withOpeners(t *testing.T, dbs ...*sql.DB) *int {
	t.Helper()
	calls := 0
	old := postgresOpener
	postgresOpener = func(config.Config) (*sql.DB, error) {
		if calls >= len(dbs) {
			t.Fatalf("unexpected postgres open #%d", calls+1)
		}
		db := dbs[calls]
		calls++
		return db, nil
	}
	t.Cleanup(func() { postgresOpener = old })
	return &calls
}

func TestRunBatch_InvalidOptions(t *testing.T) {
	calls := withOpeners(t)

	cases := []BatchOptions{
		{Mode: "aggregate"},
		{Mode: ModeTransform, Entity: "merchant"},
		{Mode: ModeLoad},
	}
	for _, opts := range cases {
		if err := RunBatch(context.Background(), batchConfig("mem://"), opts); err == nil {
			t.Fatalf("expected error for %+v", opts)
		}
	}
	if *calls != 0 {
		t.Fatalf("store must not be opened for invalid options")
	}
}

func TestRunBatch_StoreUnreachable(t *testing.T) {
	old := postgresOpener
	postgresOpener = func(config.Config) (*sql.DB, error) { return nil, errors.New("connection refused") }
	t.Cleanup(func() { postgresOpener = old })

	err := RunBatch(context.Background(), batchConfig("mem://"), BatchOptions{Mode: ModeRun})
	if !errors.Is(err, pipeline.ErrConnectivity) {
		t.Fatalf("expected ErrConnectivity, got %v", err)
	}
}

func TestRunBatch_LoadWithoutHandoff(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	withOpeners(t, db)

	err = RunBatch(context.Background(), batchConfig("mem://"), BatchOptions{Mode: ModeLoad, Entity: "bank"})
	if !errors.Is(err, handoff.ErrNoHandoff) {
		t.Fatalf("expected ErrNoHandoff, got %v", err)
	}
}

func TestRunBatch_TransformThenLoad(t *testing.T) {
	handoffURL := "file://" + t.TempDir()

	transformDB, tmock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	loadDB, lmock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	withOpeners(t, transformDB, loadDB)

	tmock.ExpectQuery(regexp.QuoteMeta(`SELECT columns FROM stg_batch_log WHERE staging_table = $1`)).
		WithArgs("stg_transactions").
		WillReturnRows(sqlmock.NewRows([]string{"columns"}).
			AddRow("{transaction_id,bank_id,customer_id,transaction_date,transaction_amount}"))
	tmock.ExpectQuery(`SELECT transaction_id, bank_id, customer_id, transaction_date, transaction_amount\s+FROM "stg_transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"transaction_id", "bank_id", "customer_id", "transaction_date", "transaction_amount"}).
			AddRow("t1", "1", "10", "2025-01-01", "100").
			AddRow("t2", "1", "10", "2025-01-01", "-5").
			AddRow("t3", "2", nil, "2025-01-01", "50"))

	if err := RunBatch(context.Background(), batchConfig(handoffURL), BatchOptions{Mode: ModeTransform, Entity: "bank"}); err != nil {
		t.Fatalf("transform: %v", err)
	}
	if err := tmock.ExpectationsWereMet(); err != nil {
		t.Fatalf("transform expectations: %v", err)
	}

	lmock.ExpectBegin()
	lmock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "ana_bank_daily_summary" WHERE agg_date = ANY($1::date[])`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	prep := lmock.ExpectPrepare(".*")
	prep.ExpectExec().WithArgs(int64(1), "2025-01-01", "100", int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(int64(2), "2025-01-01", "50", int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	lmock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	lmock.ExpectCommit()

	if err := RunBatch(context.Background(), batchConfig(handoffURL), BatchOptions{Mode: ModeLoad, Entity: "bank"}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := lmock.ExpectationsWereMet(); err != nil {
		t.Fatalf("load expectations: %v", err)
	}
}
