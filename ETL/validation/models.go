package validation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSummary is the count and total amount of payments in the window
type PaymentSummary struct {
	Count int64
	Total decimal.Decimal
}

// Aggregator recomputes the reconciliation aggregates of one store over the
// events whose calendar date is strictly after cutoff
type Aggregator interface {
	PaymentSummary(ctx context.Context, cutoff time.Time) (PaymentSummary, error)
	RentalCount(ctx context.Context, cutoff time.Time) (int64, error)
	// StoreRevenue maps a source store id to its payment total
	StoreRevenue(ctx context.Context, cutoff time.Time) (map[int64]decimal.Decimal, error)
}

// Check is one source/target comparison
type Check struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Target string `json:"target"`
	OK     bool   `json:"ok"`
}

// Result is the outcome of a reconciliation run
type Result struct {
	Cutoff     time.Time `json:"cutoff"`
	Checks     []Check   `json:"checks"`
	Mismatches int       `json:"mismatches"`
}

// Passed reports whether every check agreed
func (r *Result) Passed() bool {
	return r.Mismatches == 0
}

// FailedChecks returns the names of the checks that disagreed
func (r *Result) FailedChecks() []string {
	var names []string
	for _, c := range r.Checks {
		if !c.OK {
			names = append(names, c.Name)
		}
	}
	return names
}
