package validation

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cutoff = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newSourceMock(t *testing.T) (*SourceService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSourceService(db), mock
}

func TestSourcePaymentSummaryStartsAfterCutoffDate(t *testing.T) {
	s, mock := newSourceMock(t)

	mock.ExpectQuery(`FROM payment p WHERE p\.payment_date >= \?`).
		WithArgs(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(2, []byte("7.98")))

	summary, err := s.PaymentSummary(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Count)
	assert.Equal(t, "7.98", summary.Total.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSourcePaymentSummaryEmptyWindow(t *testing.T) {
	s, mock := newSourceMock(t)

	mock.ExpectQuery(`FROM payment p`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(0, nil))

	summary, err := s.PaymentSummary(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Zero(t, summary.Count)
	assert.Equal(t, "0.00", summary.Total.StringFixed(2))
}

func TestSourceRentalCount(t *testing.T) {
	s, mock := newSourceMock(t)

	mock.ExpectQuery(`FROM rental r WHERE r\.rental_date >= \?`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(16044))

	count, err := s.RentalCount(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(16044), count)
}

func TestSourceStoreRevenueJoinsStaff(t *testing.T) {
	s, mock := newSourceMock(t)

	mock.ExpectQuery(`FROM payment p JOIN staff st ON st\.staff_id = p\.staff_id .+ GROUP BY st\.store_id`).
		WillReturnRows(sqlmock.NewRows([]string{"store_id", "sum"}).
			AddRow(1, []byte("33489.47")).
			AddRow(2, []byte("33927.04")))

	revenue, err := s.StoreRevenue(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, revenue, 2)
	assert.True(t, decimal.RequireFromString("33489.47").Equal(revenue[1]))
	assert.True(t, decimal.RequireFromString("33927.04").Equal(revenue[2]))
	assert.NoError(t, mock.ExpectationsWereMet())
}
