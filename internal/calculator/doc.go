// Package calculator holds the split ledger: pure functions that derive
// balances and display data from expenses. Nothing here performs I/O or keeps
// state; every function is deterministic for its inputs.
//
// Money arithmetic goes through shopspring/decimal so that differences such
// as 120 - 80 come out exact, and results are converted back to float64 at the
// boundary.
package calculator

import "github.com/shopspring/decimal"

// centPlaces is the precision money values are compared and rounded at.
const centPlaces = 2

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func cents(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(centPlaces)
}
