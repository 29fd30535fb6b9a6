package validation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SourceService computes the aggregates on the transactional store
type SourceService struct {
	db *sql.DB
}

// NewSourceService creates a new SourceService
func NewSourceService(db *sql.DB) *SourceService {
	return &SourceService{
		db: db,
	}
}

// from is the first instant after the cutoff date
func from(cutoff time.Time) time.Time {
	return cutoff.AddDate(0, 0, 1)
}

// PaymentSummary counts and sums payments made after the cutoff date
func (s *SourceService) PaymentSummary(ctx context.Context, cutoff time.Time) (PaymentSummary, error) {
	query := `
	SELECT COUNT(*), SUM(p.amount)
	FROM payment p
	WHERE p.payment_date >= ?`

	var (
		summary PaymentSummary
		total   decimal.NullDecimal
	)
	if err := s.db.QueryRowContext(ctx, query, from(cutoff)).Scan(&summary.Count, &total); err != nil {
		return PaymentSummary{}, fmt.Errorf("failed to aggregate source payments: %w", err)
	}
	summary.Total = total.Decimal
	return summary, nil
}

// RentalCount counts rentals made after the cutoff date
func (s *SourceService) RentalCount(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
	SELECT COUNT(*)
	FROM rental r
	WHERE r.rental_date >= ?`

	var count int64
	if err := s.db.QueryRowContext(ctx, query, from(cutoff)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count source rentals: %w", err)
	}
	return count, nil
}

// StoreRevenue sums payments per store of the staff member who took them
func (s *SourceService) StoreRevenue(ctx context.Context, cutoff time.Time) (map[int64]decimal.Decimal, error) {
	query := `
	SELECT st.store_id, SUM(p.amount)
	FROM payment p
	JOIN staff st ON st.staff_id = p.staff_id
	WHERE p.payment_date >= ?
	GROUP BY st.store_id`

	rows, err := s.db.QueryContext(ctx, query, from(cutoff))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate source store revenue: %w", err)
	}
	defer rows.Close()

	return scanRevenue(rows)
}

func scanRevenue(rows *sql.Rows) (map[int64]decimal.Decimal, error) {
	revenue := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var (
			storeID int64
			total   decimal.NullDecimal
		)
		if err := rows.Scan(&storeID, &total); err != nil {
			return nil, fmt.Errorf("failed to scan store revenue: %w", err)
		}
		revenue[storeID] = total.Decimal
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate store revenue: %w", err)
	}
	return revenue, nil
}
