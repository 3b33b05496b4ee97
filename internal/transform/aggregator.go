package transform

import (
	"sort"
	"time"

	"github.com/guttosm/eftpulse/internal/domain/models"
	"github.com/shopspring/decimal"
)

type groupKey struct {
	entityID int64
	date     time.Time
}

type groupAcc struct {
	total decimal.Decimal
	count int64
}

// Aggregate groups cleaned rows by (entity key, transaction date).
//
// total_amount is the exact decimal sum of the group and num_transactions counts
// every row, including rows sharing a transaction id. Rows without the stream key
// are ignored. Output is sorted by date then entity id; callers must not rely on it.
func Aggregate(rows []models.CleanTransaction, entity models.Entity) []models.AggregateRow {
	groups := make(map[groupKey]*groupAcc)

	for _, r := range rows {
		id, ok := entityID(r, entity)
		if !ok {
			continue
		}
		k := groupKey{entityID: id, date: r.Date}
		acc, found := groups[k]
		if !found {
			acc = &groupAcc{total: decimal.Zero}
			groups[k] = acc
		}
		acc.total = acc.total.Add(r.Amount)
		acc.count++
	}

	out := make([]models.AggregateRow, 0, len(groups))
	for k, acc := range groups {
		out = append(out, models.AggregateRow{
			EntityID:        k.entityID,
			AggDate:         k.date,
			TotalAmount:     acc.total,
			NumTransactions: acc.count,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].AggDate.Equal(out[j].AggDate) {
			return out[i].AggDate.Before(out[j].AggDate)
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}

func entityID(r models.CleanTransaction, entity models.Entity) (int64, bool) {
	if entity == models.EntityCustomer {
		if r.CustomerID == nil {
			return 0, false
		}
		return *r.CustomerID, true
	}
	return r.BankID, true
}
