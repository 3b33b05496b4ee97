package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format of aggregation dates.
const DateLayout = "2006-01-02"

// Entity identifies one of the two summary streams.
type Entity string

const (
	EntityBank     Entity = "bank"
	EntityCustomer Entity = "customer"
)

// Entities lists the streams in a stable order.
var Entities = []Entity{EntityBank, EntityCustomer}

// ParseEntity converts user input ("bank", "Customer", ...) into an Entity.
func ParseEntity(s string) (Entity, error) {
	switch Entity(strings.ToLower(strings.TrimSpace(s))) {
	case EntityBank:
		return EntityBank, nil
	case EntityCustomer:
		return EntityCustomer, nil
	default:
		return "", fmt.Errorf("unknown entity %q (want bank or customer)", s)
	}
}

// KeyColumn is the raw column the stream groups by.
func (e Entity) KeyColumn() string {
	if e == EntityCustomer {
		return ColCustomerID
	}
	return ColBankID
}

// AggregateRow represents one daily summary of a bank or a customer.
//
// Fields:
//   - EntityID: bank id or customer id, depending on the stream.
//   - AggDate: calendar day (UTC midnight).
//   - TotalAmount: exact sum of the cleaned amounts.
//   - NumTransactions: number of cleaned rows in the group.
type AggregateRow struct {
	EntityID        int64           `json:"entity_id" example:"1"`
	AggDate         time.Time       `json:"agg_date" example:"2025-01-01T00:00:00Z"`
	TotalAmount     decimal.Decimal `json:"total_amount" swaggertype:"string" example:"100.50"`
	NumTransactions int64           `json:"num_transactions" example:"3"`
}

// DistinctDates returns the unique aggregation dates of rows, formatted as
// YYYY-MM-DD, in first-seen order.
func DistinctDates(rows []AggregateRow) []string {
	seen := make(map[string]struct{}, len(rows))
	out := make([]string, 0)
	for _, r := range rows {
		d := r.AggDate.Format(DateLayout)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
