package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies which half of a reconciliation a record came from.
type Side string

const (
	SideSource Side = "source" // loyalty / rewards exports
	SidePOS    Side = "pos"
)

// Record is one normalized row from an uploaded export.
type Record struct {
	ID           string
	Side         Side
	File         string
	Row          int    // 1-based data row number
	SourceSystem string // file type guess, e.g. "pos_transactions"
	CustomerName string
	Service      string
	Amount       decimal.Decimal
	Date         time.Time // zero if the cell could not be parsed
	Phone        string    // digits only
	Email        string    // lower-cased
	Raw          map[string]string
}
