package extractors

import (
	"context"
	"database/sql"
	"time"

	"github.com/LilVoxy/sakila_analytics/ETL/models"
)

var (
	filmActorQuery = extractQuery{
		entity:  "film_actor",
		base:    `SELECT fa.actor_id, fa.film_id, fa.last_update FROM film_actor fa`,
		markers: []string{"fa.last_update"},
		order:   "fa.film_id, fa.actor_id",
	}

	filmCategoryQuery = extractQuery{
		entity:  "film_category",
		base:    `SELECT fc.film_id, fc.category_id, fc.last_update FROM film_category fc`,
		markers: []string{"fc.last_update"},
		order:   "fc.film_id, fc.category_id",
	}

	// Film and store are resolved through inventory. A rental is picked up
	// again when it is modified, e.g. when its return date is set.
	rentalQuery = extractQuery{
		entity: "rental",
		base: `SELECT r.rental_id, r.rental_date, r.return_date, r.customer_id, r.staff_id,
				i.film_id, i.store_id, r.last_update
			FROM rental r
			LEFT JOIN inventory i ON i.inventory_id = r.inventory_id`,
		markers: []string{"r.rental_date", "r.last_update"},
		order:   "r.rental_id",
	}

	// The store of a payment is the store of the staff member who took it
	paymentQuery = extractQuery{
		entity: "payment",
		base: `SELECT p.payment_id, p.customer_id, p.staff_id, st.store_id, p.amount, p.payment_date, p.last_update
			FROM payment p
			LEFT JOIN staff st ON st.staff_id = p.staff_id`,
		markers: []string{"p.payment_date", "p.last_update"},
		order:   "p.payment_id",
	}
)

// FilmActors extracts film_actor links
func (e *MySQLExtractor) FilmActors(ctx context.Context, since time.Time) ([]models.FilmActor, error) {
	return extract(ctx, e, filmActorQuery, since, func(rows *sql.Rows, fa *models.FilmActor) error {
		return rows.Scan(&fa.ActorID, &fa.FilmID, &fa.LastUpdate)
	})
}

// FilmCategories extracts film_category links
func (e *MySQLExtractor) FilmCategories(ctx context.Context, since time.Time) ([]models.FilmCategory, error) {
	return extract(ctx, e, filmCategoryQuery, since, func(rows *sql.Rows, fc *models.FilmCategory) error {
		return rows.Scan(&fc.FilmID, &fc.CategoryID, &fc.LastUpdate)
	})
}

// Rentals extracts rental rows
func (e *MySQLExtractor) Rentals(ctx context.Context, since time.Time) ([]models.Rental, error) {
	return extract(ctx, e, rentalQuery, since, func(rows *sql.Rows, r *models.Rental) error {
		return rows.Scan(&r.RentalID, &r.RentalDate, &r.ReturnDate, &r.CustomerID, &r.StaffID,
			&r.FilmID, &r.StoreID, &r.LastUpdate)
	})
}

// Payments extracts payment rows
func (e *MySQLExtractor) Payments(ctx context.Context, since time.Time) ([]models.Payment, error) {
	return extract(ctx, e, paymentQuery, since, func(rows *sql.Rows, p *models.Payment) error {
		return rows.Scan(&p.PaymentID, &p.CustomerID, &p.StaffID, &p.StoreID, &p.Amount, &p.PaymentDate, &p.LastUpdate)
	})
}

var _ Source = (*MySQLExtractor)(nil)
