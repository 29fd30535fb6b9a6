package extractors

import (
	"context"
	"database/sql"
	"time"

	"github.com/LilVoxy/sakila_analytics/ETL/models"
)

var (
	actorQuery = extractQuery{
		entity:  "actor",
		base:    `SELECT a.actor_id, a.first_name, a.last_name, a.last_update FROM actor a`,
		markers: []string{"a.last_update"},
		order:   "a.actor_id",
	}

	categoryQuery = extractQuery{
		entity:  "category",
		base:    `SELECT c.category_id, c.name, c.last_update FROM category c`,
		markers: []string{"c.last_update"},
		order:   "c.category_id",
	}

	// store -> address -> city -> country
	storeQuery = extractQuery{
		entity: "store",
		base: `SELECT s.store_id, ci.city, co.country, s.last_update
			FROM store s
			LEFT JOIN address ad ON ad.address_id = s.address_id
			LEFT JOIN city ci ON ci.city_id = ad.city_id
			LEFT JOIN country co ON co.country_id = ci.country_id`,
		markers: []string{"s.last_update"},
		order:   "s.store_id",
	}

	// customer -> address -> city -> country
	customerQuery = extractQuery{
		entity: "customer",
		base: `SELECT cu.customer_id, cu.first_name, cu.last_name, cu.active, ci.city, co.country, cu.last_update
			FROM customer cu
			LEFT JOIN address ad ON ad.address_id = cu.address_id
			LEFT JOIN city ci ON ci.city_id = ad.city_id
			LEFT JOIN country co ON co.country_id = ci.country_id`,
		markers: []string{"cu.last_update"},
		order:   "cu.customer_id",
	}

	filmQuery = extractQuery{
		entity: "film",
		base: `SELECT f.film_id, f.title, f.release_year, f.length, f.rating, l.name, f.last_update
			FROM film f
			LEFT JOIN language l ON l.language_id = f.language_id`,
		markers: []string{"f.last_update"},
		order:   "f.film_id",
	}
)

// Actors extracts actor rows
func (e *MySQLExtractor) Actors(ctx context.Context, since time.Time) ([]models.Actor, error) {
	return extract(ctx, e, actorQuery, since, func(rows *sql.Rows, a *models.Actor) error {
		return rows.Scan(&a.ActorID, &a.FirstName, &a.LastName, &a.LastUpdate)
	})
}

// Categories extracts category rows
func (e *MySQLExtractor) Categories(ctx context.Context, since time.Time) ([]models.Category, error) {
	return extract(ctx, e, categoryQuery, since, func(rows *sql.Rows, c *models.Category) error {
		return rows.Scan(&c.CategoryID, &c.Name, &c.LastUpdate)
	})
}

// Stores extracts store rows with their city and country
func (e *MySQLExtractor) Stores(ctx context.Context, since time.Time) ([]models.Store, error) {
	return extract(ctx, e, storeQuery, since, func(rows *sql.Rows, s *models.Store) error {
		return rows.Scan(&s.StoreID, &s.City, &s.Country, &s.LastUpdate)
	})
}

// Customers extracts customer rows with their city and country
func (e *MySQLExtractor) Customers(ctx context.Context, since time.Time) ([]models.Customer, error) {
	return extract(ctx, e, customerQuery, since, func(rows *sql.Rows, c *models.Customer) error {
		return rows.Scan(&c.CustomerID, &c.FirstName, &c.LastName, &c.Active, &c.City, &c.Country, &c.LastUpdate)
	})
}

// Films extracts film rows with their language
func (e *MySQLExtractor) Films(ctx context.Context, since time.Time) ([]models.Film, error) {
	return extract(ctx, e, filmQuery, since, func(rows *sql.Rows, f *models.Film) error {
		return rows.Scan(&f.FilmID, &f.Title, &f.ReleaseYear, &f.Length, &f.Rating, &f.Language, &f.LastUpdate)
	})
}
