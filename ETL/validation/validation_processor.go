package validation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LilVoxy/sakila_analytics/ETL/metrics"
	"github.com/LilVoxy/sakila_analytics/ETL/utils"
)

// Config of the reconciliation check
type Config struct {
	// Trailing window in days
	LookbackDays int
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		LookbackDays: 30,
	}
}

// Checker compares aggregates recomputed from both stores. Mismatches are
// reported, never raised as errors.
type Checker struct {
	source Aggregator
	target Aggregator
	logger *utils.ETLLogger
	config Config
	now    func() time.Time
}

// NewChecker creates a new Checker
func NewChecker(source, target Aggregator, logger *utils.ETLLogger, config Config) *Checker {
	return &Checker{
		source: source,
		target: target,
		logger: logger,
		config: config,
		now:    time.Now,
	}
}

// Cutoff returns the calendar date lookback days before the date of now;
// events dated strictly after it are compared
func Cutoff(now time.Time, lookbackDays int) time.Time {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -lookbackDays)
}

// Validate runs every check. An error means a store could not be queried.
func (c *Checker) Validate(ctx context.Context) (*Result, error) {
	startTime := time.Now()
	cutoff := Cutoff(c.now(), c.config.LookbackDays)
	c.logger.Info("Validating events after %s (last %d days)", cutoff.Format("2006-01-02"), c.config.LookbackDays)

	result := &Result{Cutoff: cutoff}

	// 1. Payments
	sourcePayments, err := c.source.PaymentSummary(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	targetPayments, err := c.target.PaymentSummary(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	c.compare(result, "payment_count",
		strconv.FormatInt(sourcePayments.Count, 10), strconv.FormatInt(targetPayments.Count, 10))
	c.compare(result, "payment_sum", money(sourcePayments.Total), money(targetPayments.Total))

	// 2. Rentals
	sourceRentals, err := c.source.RentalCount(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	targetRentals, err := c.target.RentalCount(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	c.compare(result, "rental_count", strconv.FormatInt(sourceRentals, 10), strconv.FormatInt(targetRentals, 10))

	// 3. Revenue per store, over the stores seen on either side
	sourceRevenue, err := c.source.StoreRevenue(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	targetRevenue, err := c.target.StoreRevenue(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	for _, storeID := range storeIDs(sourceRevenue, targetRevenue) {
		c.compare(result, fmt.Sprintf("store_revenue:%d", storeID),
			money(sourceRevenue[storeID]), money(targetRevenue[storeID]))
	}

	metrics.RecordValidation(result.FailedChecks())

	if result.Passed() {
		c.logger.Info("Validation PASSED: %d checks in %v", len(result.Checks), time.Since(startTime))
	} else {
		c.logger.Warn("Validation FAILED: %d of %d checks mismatched", result.Mismatches, len(result.Checks))
	}
	return result, nil
}

func (c *Checker) compare(result *Result, name, source, target string) {
	check := Check{Name: name, Source: source, Target: target, OK: source == target}
	result.Checks = append(result.Checks, check)
	if check.OK {
		c.logger.Debug("%s OK: %s", name, source)
		return
	}
	result.Mismatches++
	c.logger.Warn("%s mismatch: source=%s target=%s", name, source, target)
}

// money renders an amount with two decimals; the zero value renders as 0.00
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func storeIDs(a, b map[int64]decimal.Decimal) []int64 {
	seen := make(map[int64]struct{}, len(a)+len(b))
	for id := range a {
		seen[id] = struct{}{}
	}
	for id := range b {
		seen[id] = struct{}{}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
