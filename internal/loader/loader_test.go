package loader

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/guttosm/eftpulse/internal/domain/models"
	"github.com/shopspring/decimal"
)

type rowKey struct {
	entity int64
	date   string
}

// memSummaries is an in-memory SummaryRepository with all-or-nothing replace semantics.
type memSummaries struct {
	tables  map[string]map[rowKey]models.AggregateRow
	failOn  string
	calls   int
	lastArg []string
}

func newMem() *memSummaries {
	return &memSummaries{tables: map[string]map[rowKey]models.AggregateRow{}}
}

func (m *memSummaries) ReplaceByDates(_ context.Context, table string, dates []string, rows []models.AggregateRow) (int64, error) {
	m.calls++
	m.lastArg = dates
	if table == m.failOn {
		return 0, errors.New("connection reset")
	}
	current := m.tables[table]
	next := map[rowKey]models.AggregateRow{}
	in := map[string]bool{}
	for _, d := range dates {
		in[d] = true
	}
	var deleted int64
	for k, v := range current {
		if in[k.date] {
			deleted++
			continue
		}
		next[k] = v
	}
	for _, r := range rows {
		k := rowKey{r.EntityID, r.AggDate.Format(models.DateLayout)}
		if _, dup := next[k]; dup {
			return 0, errors.New("unique violation")
		}
		next[k] = r
	}
	m.tables[table] = next
	return deleted, nil
}

func (m *memSummaries) ListByDate(_ context.Context, table, date string) ([]models.AggregateRow, error) {
	var out []models.AggregateRow
	for k, v := range m.tables[table] {
		if k.date == date {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

var (
	d1 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 = d1.AddDate(0, 0, 1)
)

func agg(id int64, d time.Time, total string, n int64) models.AggregateRow {
	return models.AggregateRow{EntityID: id, AggDate: d, TotalAmount: decimal.RequireFromString(total), NumTransactions: n}
}

func TestLoad_Empty(t *testing.T) {
	repo := newMem()
	out, err := Load(context.Background(), repo, nil, "t")
	if err != nil || !out.NothingToLoad {
		t.Fatalf("want no-op, got out=%+v err=%v", out, err)
	}
	if repo.calls != 0 {
		t.Fatalf("store must not be touched")
	}
}

func TestLoad_Idempotent(t *testing.T) {
	repo := newMem()
	rows := []models.AggregateRow{agg(1, d1, "100", 1), agg(2, d1, "50", 1)}

	first, err := Load(context.Background(), repo, rows, "t")
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	afterFirst, _ := repo.ListByDate(context.Background(), "t", "2025-01-01")

	second, err := Load(context.Background(), repo, rows, "t")
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	afterSecond, _ := repo.ListByDate(context.Background(), "t", "2025-01-01")

	if first.RowsReplaced != 0 || second.RowsReplaced != 2 || second.RowsLoaded != 2 {
		t.Fatalf("unexpected outcomes first=%+v second=%+v", first, second)
	}
	if len(afterFirst) != len(afterSecond) {
		t.Fatalf("row count changed: %d -> %d", len(afterFirst), len(afterSecond))
	}
	for i := range afterFirst {
		if afterFirst[i].EntityID != afterSecond[i].EntityID || !afterFirst[i].TotalAmount.Equal(afterSecond[i].TotalAmount) {
			t.Fatalf("row %d differs after replay", i)
		}
	}
}

func TestLoad_DateIsolation(t *testing.T) {
	repo := newMem()
	if _, err := Load(context.Background(), repo, []models.AggregateRow{agg(1, d1, "10", 1), agg(1, d2, "20", 2)}, "t"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := Load(context.Background(), repo, []models.AggregateRow{agg(3, d2, "5", 1)}, "t")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out.Dates) != 1 || out.Dates[0] != "2025-01-02" {
		t.Fatalf("dates=%v", out.Dates)
	}

	day1, _ := repo.ListByDate(context.Background(), "t", "2025-01-01")
	day2, _ := repo.ListByDate(context.Background(), "t", "2025-01-02")
	if len(day1) != 1 || !day1[0].TotalAmount.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("day1 altered: %+v", day1)
	}
	if len(day2) != 1 || day2[0].EntityID != 3 {
		t.Fatalf("day2 not superseded: %+v", day2)
	}
}

func TestLoad_Failure(t *testing.T) {
	repo := newMem()
	repo.failOn = "t"

	_, err := Load(context.Background(), repo, []models.AggregateRow{agg(1, d1, "1", 1)}, "t")
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if le.Table != "t" || len(le.Dates) != 1 || le.Unwrap() == nil {
		t.Fatalf("unexpected LoadError %+v", le)
	}
}

func TestLoad_CancelledContext(t *testing.T) {
	repo := newMem()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, repo, []models.AggregateRow{agg(1, d1, "1", 1)}, "t")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("store must not be touched after cancellation")
	}
}
