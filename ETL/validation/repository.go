package validation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TargetRepository computes the aggregates on the analytics store. Facts are
// joined to dim_date and filtered on its date attribute.
type TargetRepository struct {
	db *sql.DB
}

// NewTargetRepository creates a new TargetRepository
func NewTargetRepository(db *sql.DB) *TargetRepository {
	return &TargetRepository{
		db: db,
	}
}

func dateParam(cutoff time.Time) string {
	return cutoff.Format("2006-01-02")
}

// PaymentSummary counts and sums fact_payment rows paid after the cutoff date
func (r *TargetRepository) PaymentSummary(ctx context.Context, cutoff time.Time) (PaymentSummary, error) {
	query := `
	SELECT COUNT(*), SUM(f.amount)
	FROM fact_payment f
	JOIN dim_date d ON d.date_key = f.date_key_paid
	WHERE d.date > ?`

	var (
		summary PaymentSummary
		total   decimal.NullDecimal
	)
	if err := r.db.QueryRowContext(ctx, query, dateParam(cutoff)).Scan(&summary.Count, &total); err != nil {
		return PaymentSummary{}, fmt.Errorf("failed to aggregate target payments: %w", err)
	}
	summary.Total = total.Decimal
	return summary, nil
}

// RentalCount counts fact_rental rows rented after the cutoff date
func (r *TargetRepository) RentalCount(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
	SELECT COUNT(*)
	FROM fact_rental f
	JOIN dim_date d ON d.date_key = f.date_key_rented
	WHERE d.date > ?`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, dateParam(cutoff)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count target rentals: %w", err)
	}
	return count, nil
}

// StoreRevenue sums fact_payment amounts per source store id
func (r *TargetRepository) StoreRevenue(ctx context.Context, cutoff time.Time) (map[int64]decimal.Decimal, error) {
	query := `
	SELECT s.store_id, SUM(f.amount)
	FROM fact_payment f
	JOIN dim_date d ON d.date_key = f.date_key_paid
	JOIN dim_store s ON s.store_key = f.store_key
	WHERE d.date > ?
	GROUP BY s.store_id`

	rows, err := r.db.QueryContext(ctx, query, dateParam(cutoff))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate target store revenue: %w", err)
	}
	defer rows.Close()

	return scanRevenue(rows)
}

var (
	_ Aggregator = (*SourceService)(nil)
	_ Aggregator = (*TargetRepository)(nil)
)
