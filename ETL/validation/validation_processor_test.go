package validation

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/sakila_analytics/ETL/config"
	"github.com/LilVoxy/sakila_analytics/ETL/load"
	"github.com/LilVoxy/sakila_analytics/ETL/models"
	"github.com/LilVoxy/sakila_analytics/ETL/schema"
	"github.com/LilVoxy/sakila_analytics/ETL/transform"
	"github.com/LilVoxy/sakila_analytics/ETL/utils"
)

// stubAggregator returns fixed aggregates
type stubAggregator struct {
	payments PaymentSummary
	rentals  int64
	revenue  map[int64]decimal.Decimal
	err      error
}

func (s stubAggregator) PaymentSummary(context.Context, time.Time) (PaymentSummary, error) {
	return s.payments, s.err
}

func (s stubAggregator) RentalCount(context.Context, time.Time) (int64, error) {
	return s.rentals, s.err
}

func (s stubAggregator) StoreRevenue(context.Context, time.Time) (map[int64]decimal.Decimal, error) {
	return s.revenue, s.err
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var now = time.Date(2024, 2, 1, 15, 0, 0, 0, time.UTC)

func newChecker(source, target Aggregator) *Checker {
	c := NewChecker(source, target, utils.NewNopLogger(), DefaultConfig())
	c.now = func() time.Time { return now }
	return c
}

// seedTarget loads two stores, one customer and the given facts
func seedTarget(t *testing.T, rentals []time.Time, payments []models.Payment) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := config.OpenTarget(ctx, config.TargetConfig{Path: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, schema.Create(ctx, db))

	l := load.NewLoader(db, utils.NewNopLogger())
	keys := models.NewKeyMaps()
	updated := time.Date(2006, 2, 15, 0, 0, 0, 0, time.UTC)

	_, err = l.UpsertStores(ctx, []models.DimStore{
		{StoreID: 1, City: "Lethbridge", Country: "Canada", LastUpdate: updated},
		{StoreID: 2, City: "Woodridge", Country: "Australia", LastUpdate: updated},
	}, keys.Stores)
	require.NoError(t, err)
	_, err = l.UpsertCustomers(ctx, []models.DimCustomer{
		{CustomerID: 1, FirstName: "MARY", LastName: "SMITH", Active: true, City: "Sasebo", Country: "Japan", LastUpdate: updated},
	}, keys.Customers)
	require.NoError(t, err)
	_, err = l.UpsertFilms(ctx, []models.DimFilm{
		{FilmID: 1, Title: "ACADEMY DINOSAUR", Language: "English", LastUpdate: updated},
	}, keys.Films)
	require.NoError(t, err)

	var rentalRows []models.Rental
	for i, rented := range rentals {
		rentalRows = append(rentalRows, models.Rental{
			RentalID:   int64(i + 1),
			RentalDate: rented,
			CustomerID: 1,
			StaffID:    1,
			FilmID:     sql.NullInt64{Int64: 1, Valid: true},
			StoreID:    sql.NullInt64{Int64: 1, Valid: true},
		})
	}

	dates := transform.CollectDates(rentalRows, payments)
	_, err = l.InsertDates(ctx, dates.Dates(), keys.Dates)
	require.NoError(t, err)

	facts, dropped := transform.ComposeRentals(rentalRows, keys)
	require.Empty(t, dropped)
	_, err = l.UpsertRentals(ctx, facts, keys.Rentals)
	require.NoError(t, err)

	paymentFacts, dropped := transform.ComposePayments(payments, keys)
	require.Empty(t, dropped)
	_, err = l.UpsertPayments(ctx, paymentFacts, keys.Payments)
	require.NoError(t, err)

	return db
}

func payment(id, store int64, amount string, paid time.Time) models.Payment {
	return models.Payment{
		PaymentID:   id,
		CustomerID:  1,
		StaffID:     store,
		StoreID:     sql.NullInt64{Int64: store, Valid: true},
		Amount:      dec(amount),
		PaymentDate: paid,
	}
}

func TestCutoff(t *testing.T) {
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Cutoff(now, 30))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Cutoff(now, 0))
}

func TestTargetRepositoryFiltersOnCalendarDate(t *testing.T) {
	ctx := context.Background()
	db := seedTarget(t,
		[]time.Time{
			time.Date(2024, 1, 2, 23, 0, 0, 0, time.UTC), // on the cutoff date, excluded
			time.Date(2024, 1, 3, 1, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC),
		},
		[]models.Payment{
			payment(1, 1, "2.99", time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)),
			payment(2, 1, "0.99", time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)),
			payment(3, 2, "4.99", time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)),
			payment(4, 2, "5.99", time.Date(2024, 1, 31, 11, 0, 0, 0, time.UTC)),
		},
	)
	repo := NewTargetRepository(db)
	cutoff := Cutoff(now, 30)

	summary, err := repo.PaymentSummary(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Count)
	assert.Equal(t, "11.97", money(summary.Total))

	rentals, err := repo.RentalCount(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rentals)

	revenue, err := repo.StoreRevenue(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, revenue, 2)
	assert.Equal(t, "0.99", money(revenue[1]))
	assert.Equal(t, "10.98", money(revenue[2]))
}

func TestValidateConsistentLoadHasNoMismatches(t *testing.T) {
	db := seedTarget(t,
		[]time.Time{time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)},
		[]models.Payment{
			payment(1, 1, "2.99", time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)),
			payment(2, 2, "4.99", time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC)),
		},
	)
	source := stubAggregator{
		payments: PaymentSummary{Count: 2, Total: dec("7.98")},
		rentals:  1,
		revenue:  map[int64]decimal.Decimal{1: dec("2.99"), 2: dec("4.99")},
	}

	result, err := newChecker(source, NewTargetRepository(db)).Validate(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Passed())
	assert.Zero(t, result.Mismatches)
	var names []string
	for _, c := range result.Checks {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"payment_count", "payment_sum", "rental_count", "store_revenue:1", "store_revenue:2"}, names)
}

func TestValidateReportsMismatches(t *testing.T) {
	source := stubAggregator{
		payments: PaymentSummary{Count: 3, Total: dec("10.97")},
		rentals:  2,
		revenue:  map[int64]decimal.Decimal{1: dec("5.98"), 2: dec("4.99")},
	}
	target := stubAggregator{
		payments: PaymentSummary{Count: 2, Total: dec("7.98")},
		rentals:  2,
		revenue:  map[int64]decimal.Decimal{1: dec("2.99"), 3: dec("4.99")},
	}

	result, err := newChecker(source, target).Validate(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Passed())
	assert.Equal(t, 5, result.Mismatches)
	assert.Equal(t, []string{"payment_count", "payment_sum", "store_revenue:1", "store_revenue:2", "store_revenue:3"}, result.FailedChecks())

	for _, c := range result.Checks {
		if c.Name == "store_revenue:3" {
			assert.Equal(t, "0.00", c.Source)
			assert.Equal(t, "4.99", c.Target)
		}
	}
}

func TestValidateComparesSumsAtTwoDecimals(t *testing.T) {
	source := stubAggregator{payments: PaymentSummary{Count: 1, Total: dec("3.98")}}
	target := stubAggregator{payments: PaymentSummary{Count: 1, Total: dec("3.9800000000000004")}}

	result, err := newChecker(source, target).Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Passed())
}

func TestValidateStoreErrorIsFatal(t *testing.T) {
	boom := errors.New("target unreachable")
	_, err := newChecker(stubAggregator{}, stubAggregator{err: boom}).Validate(context.Background())
	assert.ErrorIs(t, err, boom)
}
