package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Column names of the raw transaction feed.
const (
	ColTransactionID     = "transaction_id"
	ColBankID            = "bank_id"
	ColCustomerID        = "customer_id"
	ColTransactionDate   = "transaction_date"
	ColTransactionAmount = "transaction_amount"
)

// RawColumns lists every column the pipeline understands, in staging order.
var RawColumns = []string{
	ColTransactionID,
	ColBankID,
	ColCustomerID,
	ColTransactionDate,
	ColTransactionAmount,
}

// RawTransaction represents a single row of the ingested batch, exactly as staged.
// Each cell is kept as text; nil means the cell was empty (or NULL in staging).
//
// Values are coerced by the transform stage; nothing here is validated.
type RawTransaction struct {
	TransactionID     *string
	BankID            *string
	CustomerID        *string
	TransactionDate   *string
	TransactionAmount *string
}

// Value returns the cell of the given column, or nil if the column is unknown.
func (r RawTransaction) Value(column string) *string {
	switch column {
	case ColTransactionID:
		return r.TransactionID
	case ColBankID:
		return r.BankID
	case ColCustomerID:
		return r.CustomerID
	case ColTransactionDate:
		return r.TransactionDate
	case ColTransactionAmount:
		return r.TransactionAmount
	default:
		return nil
	}
}

// RawBatch is the shared raw input of one pipeline run.
//
// Columns records which columns were structurally present in the source. A column
// that is absent differs from a column whose cells are all empty: the former is a
// schema problem, the latter a row-level null.
type RawBatch struct {
	Columns []string
	Rows    []RawTransaction
}

// HasColumn reports whether the batch carried the given column.
func (b RawBatch) HasColumn(name string) bool {
	for _, c := range b.Columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// CleanTransaction is a raw row after coercion and filtering.
//
// CustomerID stays optional: rows without a customer are still valid for the bank stream.
type CleanTransaction struct {
	TransactionID *string
	BankID        int64
	CustomerID    *int64
	Date          time.Time
	Amount        decimal.Decimal
}
