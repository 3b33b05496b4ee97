//go:build integration
// +build integration

package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	goose "github.com/pressly/goose/v3"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/guttosm/eftpulse/internal/domain/models"
	"github.com/guttosm/eftpulse/internal/ingestion"
	"github.com/guttosm/eftpulse/internal/storage"
)

func startDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "eft_db",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(host string, port nat.Port) string {
			return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=eft_db sslmode=disable", host, port.Port())
		}).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container start: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432/tcp")
	db, err := sql.Open("postgres", fmt.Sprintf("postgres://postgres:postgres@%s:%s/eft_db?sslmode=disable", host, port.Port()))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := goose.SetDialect("postgres"); err != nil {
		t.Fatalf("dialect: %v", err)
	}
	if err := goose.Up(db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	return db
}

type summaryRow struct {
	id    int64
	date  string
	total string
	n     int64
}

func dump(t *testing.T, db *sql.DB, table string) []summaryRow {
	t.Helper()
	rows, err := db.Query(fmt.Sprintf(
		`SELECT entity_id, agg_date::text, total_amount::text, num_transactions FROM %s ORDER BY agg_date, entity_id`, table))
	if err != nil {
		t.Fatalf("dump %s: %v", table, err)
	}
	defer rows.Close()
	var out []summaryRow
	for rows.Next() {
		var r summaryRow
		if err := rows.Scan(&r.id, &r.date, &r.total, &r.n); err != nil {
			t.Fatalf("scan: %v", err)
		}
		out = append(out, r)
	}
	return out
}

func TestPipeline_FileToTables_Replay(t *testing.T) {
	db := startDB(t)
	ctx := context.Background()

	csv := "transaction_id,bank_id,customer_id,transaction_date,transaction_amount\n" +
		"t1,1,10,2025-01-01,100\n" +
		"t2,1,10,2025-01-01,-5\n" +
		"t3,2,,2025-01-01,50\n" +
		"t4,2,11,2025-01-02,12.3456\n"
	path := filepath.Join(t.TempDir(), "tx.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	staging := storage.NewStagingRepository(db, "stg_transactions")
	if _, err := ingestion.IngestToStaging(ctx, path, staging); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	tbls := Tables{models.EntityBank: "ana_bank_daily_summary", models.EntityCustomer: "ana_customer_daily_summary"}
	summaries := storage.NewSummaryRepository(db, tbls[models.EntityBank], tbls[models.EntityCustomer])
	runLog := storage.NewRunLogRepository(db)
	o := New(staging, summaries, tbls, WithRunLog(runLog), WithPing(db.PingContext))

	first := o.Run(ctx)
	if first.Status != models.RunSucceeded {
		t.Fatalf("first run: %+v", first)
	}
	bankAfterFirst := dump(t, db, "ana_bank_daily_summary")
	custAfterFirst := dump(t, db, "ana_customer_daily_summary")

	wantBank := []summaryRow{
		{1, "2025-01-01", "100.0000", 1},
		{2, "2025-01-01", "50.0000", 1},
		{2, "2025-01-02", "12.3456", 1},
	}
	if fmt.Sprint(bankAfterFirst) != fmt.Sprint(wantBank) {
		t.Fatalf("bank table: got %v want %v", bankAfterFirst, wantBank)
	}

	second := o.Run(ctx)
	if second.Status != models.RunSucceeded {
		t.Fatalf("second run: %+v", second)
	}
	if fmt.Sprint(dump(t, db, "ana_bank_daily_summary")) != fmt.Sprint(bankAfterFirst) ||
		fmt.Sprint(dump(t, db, "ana_customer_daily_summary")) != fmt.Sprint(custAfterFirst) {
		t.Fatalf("replay changed table contents")
	}

	latest, err := runLog.LatestRun(ctx)
	if err != nil || latest == nil || latest.RunID != second.RunID {
		t.Fatalf("latest run: %+v err=%v", latest, err)
	}
}
