// Package models defines data structures and domain types.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateRecord represents one priced half-hour tariff interval.
// ValidFrom is the unique key within a series; intervals are half-open,
// [ValidFrom, ValidTo). Prices are pence per kWh.
type RateRecord struct {
	ValidFrom   time.Time
	ValidTo     time.Time
	ValueExcVAT decimal.Decimal
	ValueIncVAT decimal.Decimal
}

// Contains reports whether t falls within the record's interval.
// The start is inclusive, the end exclusive.
func (r RateRecord) Contains(t time.Time) bool {
	return !t.Before(r.ValidFrom) && t.Before(r.ValidTo)
}

// Valid reports whether the record satisfies ValidFrom < ValidTo.
func (r RateRecord) Valid() bool {
	return r.ValidFrom.Before(r.ValidTo)
}

// Duration returns the length of the interval.
func (r RateRecord) Duration() time.Duration {
	return r.ValidTo.Sub(r.ValidFrom)
}

// IsNegative reports whether the tax-inclusive price is below zero.
// Agile-style tariffs occasionally pay customers to consume.
func (r RateRecord) IsNegative() bool {
	return r.ValueIncVAT.IsNegative()
}

// MaxValidTo returns the latest interval end in the series, or the zero
// time for an empty series.
func MaxValidTo(series []RateRecord) time.Time {
	var max time.Time
	for _, r := range series {
		if r.ValidTo.After(max) {
			max = r.ValidTo
		}
	}
	return max
}
