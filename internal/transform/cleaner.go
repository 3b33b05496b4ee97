package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/guttosm/eftpulse/internal/domain/models"
	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order when coercing transaction_date.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006/01/02",
}

// SchemaError reports required columns that are structurally absent from a batch.
// It is fatal for the affected stream and always raised before any write.
type SchemaError struct {
	Entity  models.Entity
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s stream: missing columns: %s", e.Entity, strings.Join(e.Missing, ", "))
}

// CleanResult is the filtered view produced by Clean.
//
// Read counts every input row. Kept rows plus Dropped.Total() always equals Read.
// Skipped is set when the customer stream short-circuits on a batch without customer_id.
type CleanResult struct {
	Rows    []models.CleanTransaction
	Read    int
	Dropped models.DropCounts
	Skipped bool
}

// RequiredColumns returns the columns a stream needs structurally.
func RequiredColumns(entity models.Entity) []string {
	return []string{
		entity.KeyColumn(),
		models.ColTransactionDate,
		models.ColTransactionAmount,
		models.ColTransactionID,
	}
}

// CheckColumns returns a *SchemaError listing every required column absent from batch.
func CheckColumns(batch models.RawBatch, entity models.Entity, required []string) error {
	var missing []string
	for _, c := range required {
		if !batch.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Entity: entity, Missing: missing}
	}
	return nil
}

// Clean coerces and filters a raw batch for one entity stream.
//
// Behavior:
//   - A customer stream over a batch without customer_id yields an empty, skipped result.
//   - Missing required columns fail with *SchemaError.
//   - Rows missing the date, the amount or the stream key are dropped as MissingKey.
//   - Rows whose values are present but cannot be coerced are dropped as Unparsable.
//   - Rows with a negative amount are dropped as NegativeAmount.
//
// The input batch is never modified.
func Clean(batch models.RawBatch, entity models.Entity) (CleanResult, error) {
	res := CleanResult{Read: len(batch.Rows)}

	if entity == models.EntityCustomer && !batch.HasColumn(models.ColCustomerID) {
		res.Skipped = true
		return res, nil
	}
	if err := CheckColumns(batch, entity, RequiredColumns(entity)); err != nil {
		return res, err
	}

	res.Rows = make([]models.CleanTransaction, 0, len(batch.Rows))
	key := entity.KeyColumn()

	for _, raw := range batch.Rows {
		if blank(raw.Value(key)) || blank(raw.TransactionDate) || blank(raw.TransactionAmount) {
			res.Dropped.MissingKey++
			continue
		}

		ct, ok := coerce(raw, entity)
		if !ok {
			res.Dropped.Unparsable++
			continue
		}
		if ct.Amount.IsNegative() {
			res.Dropped.NegativeAmount++
			continue
		}
		res.Rows = append(res.Rows, ct)
	}

	return res, nil
}

// coerce converts the cells of raw; ok is false when a value the stream needs is unparsable.
// The other stream's key is optional here and becomes nil if it cannot be parsed.
func coerce(raw models.RawTransaction, entity models.Entity) (models.CleanTransaction, bool) {
	var ct models.CleanTransaction

	d, ok := ParseDate(*raw.TransactionDate)
	if !ok {
		return ct, false
	}
	amt, ok := ParseAmount(*raw.TransactionAmount)
	if !ok {
		return ct, false
	}
	ct.Date = d
	ct.Amount = amt
	ct.TransactionID = raw.TransactionID

	bank, bankOK := parseOptionalID(raw.BankID)
	cust, custOK := parseOptionalID(raw.CustomerID)

	switch entity {
	case models.EntityBank:
		if !bankOK {
			return ct, false
		}
		ct.BankID = *bank
		ct.CustomerID = cust
	case models.EntityCustomer:
		if !custOK {
			return ct, false
		}
		ct.CustomerID = cust
		if bank != nil {
			ct.BankID = *bank
		}
	}
	return ct, true
}

// ParseDate coerces s into a calendar date at UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// ParseAmount coerces s into an exact decimal.
func ParseAmount(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseID coerces s into an integer id. Integral decimal spellings such as "7.0"
// are accepted; fractional or out of range values are not.
func ParseID(s string) (int64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, false
	}
	id := d.IntPart()
	if !decimal.NewFromInt(id).Equal(d) {
		return 0, false
	}
	return id, true
}

// parseOptionalID returns (nil, false) for blank or unparsable cells.
func parseOptionalID(s *string) (*int64, bool) {
	if blank(s) {
		return nil, false
	}
	id, ok := ParseID(*s)
	if !ok {
		return nil, false
	}
	return &id, true
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
