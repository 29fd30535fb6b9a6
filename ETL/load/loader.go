package load

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/LilVoxy/sakila_analytics/ETL/models"
	"github.com/LilVoxy/sakila_analytics/ETL/schema"
	"github.com/LilVoxy/sakila_analytics/ETL/utils"
)

// ErrTargetNotEmpty is returned by EnsureEmpty when the analytics store already holds data
var ErrTargetNotEmpty = errors.New("target store is not empty")

// DBTX is satisfied by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Counts reports how many rows a writer inserted and updated
type Counts struct {
	Inserted int
	Updated  int
}

// Loader writes conformed rows to the analytics store
type Loader struct {
	db     DBTX
	logger *utils.ETLLogger
}

// NewLoader creates a new Loader bound to db (normally the run transaction)
func NewLoader(db DBTX, logger *utils.ETLLogger) *Loader {
	return &Loader{
		db:     db,
		logger: logger,
	}
}

// upsertQueries pairs the INSERT (natural key first, then attributes) and the
// UPDATE (attributes, then surrogate key) of one table
type upsertQueries struct {
	table  string
	insert string
	update string
}

// upsertRows updates rows that carry a surrogate key and inserts the rest.
// Inserted surrogate keys are recorded into keys.
func upsertRows[T any](ctx context.Context, l *Loader, q upsertQueries, rows []T, keys models.KeyMap,
	bind func(T) (surrogate, natural int64, attrs []interface{})) (Counts, error) {

	var counts Counts
	if len(rows) == 0 {
		l.logger.Debug("No %s rows to load", q.table)
		return counts, nil
	}

	startTime := time.Now()

	insertStmt, err := l.db.PrepareContext(ctx, q.insert)
	if err != nil {
		return counts, fmt.Errorf("failed to prepare insert into %s: %w", q.table, err)
	}
	defer insertStmt.Close()

	updateStmt, err := l.db.PrepareContext(ctx, q.update)
	if err != nil {
		return counts, fmt.Errorf("failed to prepare update of %s: %w", q.table, err)
	}
	defer updateStmt.Close()

	for _, row := range rows {
		surrogate, natural, attrs := bind(row)

		if surrogate != 0 {
			if _, err := updateStmt.ExecContext(ctx, append(attrs, surrogate)...); err != nil {
				return counts, fmt.Errorf("failed to update %s %d: %w", q.table, natural, err)
			}
			counts.Updated++
			continue
		}

		result, err := insertStmt.ExecContext(ctx, append([]interface{}{natural}, attrs...)...)
		if err != nil {
			return counts, fmt.Errorf("failed to insert %s %d: %w", q.table, natural, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return counts, fmt.Errorf("failed to get %s surrogate key: %w", q.table, err)
		}
		keys.Put(natural, id)
		counts.Inserted++
	}

	l.logger.Debug("Loaded %s: %d inserted, %d updated in %v", q.table, counts.Inserted, counts.Updated, time.Since(startTime))
	return counts, nil
}

var (
	actorQueries = upsertQueries{
		table:  "dim_actor",
		insert: `INSERT INTO dim_actor (actor_id, first_name, last_name, last_update) VALUES (?, ?, ?, ?)`,
		update: `UPDATE dim_actor SET first_name = ?, last_name = ?, last_update = ? WHERE actor_key = ?`,
	}
	categoryQueries = upsertQueries{
		table:  "dim_category",
		insert: `INSERT INTO dim_category (category_id, name, last_update) VALUES (?, ?, ?)`,
		update: `UPDATE dim_category SET name = ?, last_update = ? WHERE category_key = ?`,
	}
	storeQueries = upsertQueries{
		table:  "dim_store",
		insert: `INSERT INTO dim_store (store_id, city, country, last_update) VALUES (?, ?, ?, ?)`,
		update: `UPDATE dim_store SET city = ?, country = ?, last_update = ? WHERE store_key = ?`,
	}
	customerQueries = upsertQueries{
		table: "dim_customer",
		insert: `INSERT INTO dim_customer (customer_id, first_name, last_name, active, city, country, last_update)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		update: `UPDATE dim_customer SET first_name = ?, last_name = ?, active = ?, city = ?, country = ?, last_update = ?
			WHERE customer_key = ?`,
	}
	filmQueries = upsertQueries{
		table: "dim_film",
		insert: `INSERT INTO dim_film (film_id, title, rating, length, language, release_year, last_update)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		update: `UPDATE dim_film SET title = ?, rating = ?, length = ?, language = ?, release_year = ?, last_update = ?
			WHERE film_key = ?`,
	}
	rentalQueries = upsertQueries{
		table: "fact_rental",
		insert: `INSERT INTO fact_rental (rental_id, date_key_rented, date_key_returned, film_key, store_key,
			customer_key, staff_id, rental_duration_days) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		update: `UPDATE fact_rental SET date_key_rented = ?, date_key_returned = ?, film_key = ?, store_key = ?,
			customer_key = ?, staff_id = ?, rental_duration_days = ? WHERE fact_rental_key = ?`,
	}
	paymentQueries = upsertQueries{
		table: "fact_payment",
		insert: `INSERT INTO fact_payment (payment_id, date_key_paid, customer_key, store_key, staff_id, amount)
			VALUES (?, ?, ?, ?, ?, ?)`,
		update: `UPDATE fact_payment SET date_key_paid = ?, customer_key = ?, store_key = ?, staff_id = ?, amount = ?
			WHERE fact_payment_key = ?`,
	}
)

// UpsertActors writes dim_actor rows
func (l *Loader) UpsertActors(ctx context.Context, rows []models.DimActor, keys models.KeyMap) (Counts, error) {
	return upsertRows(ctx, l, actorQueries, rows, keys, func(r models.DimActor) (int64, int64, []interface{}) {
		return r.ActorKey, r.ActorID, []interface{}{r.FirstName, r.LastName, r.LastUpdate}
	})
}

// UpsertCategories writes dim_category rows
func (l *Loader) UpsertCategories(ctx context.Context, rows []models.DimCategory, keys models.KeyMap) (Counts, error) {
	return upsertRows(ctx, l, categoryQueries, rows, keys, func(r models.DimCategory) (int64, int64, []interface{}) {
		return r.CategoryKey, r.CategoryID, []interface{}{r.Name, r.LastUpdate}
	})
}

// UpsertStores writes dim_store rows
func (l *Loader) UpsertStores(ctx context.Context, rows []models.DimStore, keys models.KeyMap) (Counts, error) {
	return upsertRows(ctx, l, storeQueries, rows, keys, func(r models.DimStore) (int64, int64, []interface{}) {
		return r.StoreKey, r.StoreID, []interface{}{r.City, r.Country, r.LastUpdate}
	})
}

// UpsertCustomers writes dim_customer rows
func (l *Loader) UpsertCustomers(ctx context.Context, rows []models.DimCustomer, keys models.KeyMap) (Counts, error) {
	return upsertRows(ctx, l, customerQueries, rows, keys, func(r models.DimCustomer) (int64, int64, []interface{}) {
		return r.CustomerKey, r.CustomerID, []interface{}{r.FirstName, r.LastName, r.Active, r.City, r.Country, r.LastUpdate}
	})
}

// UpsertFilms writes dim_film rows
func (l *Loader) UpsertFilms(ctx context.Context, rows []models.DimFilm, keys models.KeyMap) (Counts, error) {
	return upsertRows(ctx, l, filmQueries, rows, keys, func(r models.DimFilm) (int64, int64, []interface{}) {
		return r.FilmKey, r.FilmID, []interface{}{r.Title, r.Rating, r.Length, r.Language, r.ReleaseYear, r.LastUpdate}
	})
}

// UpsertRentals writes fact_rental rows
func (l *Loader) UpsertRentals(ctx context.Context, rows []models.FactRental, keys models.KeyMap) (Counts, error) {
	return upsertRows(ctx, l, rentalQueries, rows, keys, func(r models.FactRental) (int64, int64, []interface{}) {
		return r.FactRentalKey, r.RentalID, []interface{}{
			r.DateKeyRented, r.DateKeyReturned, r.FilmKey, r.StoreKey,
			r.CustomerKey, r.StaffID, r.RentalDurationDays,
		}
	})
}

// UpsertPayments writes fact_payment rows
func (l *Loader) UpsertPayments(ctx context.Context, rows []models.FactPayment, keys models.KeyMap) (Counts, error) {
	return upsertRows(ctx, l, paymentQueries, rows, keys, func(r models.FactPayment) (int64, int64, []interface{}) {
		return r.FactPaymentKey, r.PaymentID, []interface{}{
			r.DateKeyPaid, r.CustomerKey, r.StoreKey, r.StaffID, r.Amount,
		}
	})
}

// InsertDates writes the calendar rows whose key is not persisted yet and
// records them into keys
func (l *Loader) InsertDates(ctx context.Context, dates []models.DimDate, keys models.DateKeySet) (int, error) {
	stmt, err := l.db.PrepareContext(ctx, `
		INSERT INTO dim_date (date_key, date, year, quarter, month, day_of_month, day_of_week, is_weekend)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (date_key) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert into dim_date: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, d := range dates {
		if keys.Has(d.DateKey) {
			continue
		}
		_, err := stmt.ExecContext(ctx,
			d.DateKey, d.Date, d.Year, d.Quarter, d.Month, d.DayOfMonth, d.DayOfWeek, d.IsWeekend)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert dim_date %d: %w", d.DateKey, err)
		}
		keys.Add(d.DateKey)
		inserted++
	}
	return inserted, nil
}

// InsertFilmActors writes bridge_film_actor rows; existing links are left untouched
func (l *Loader) InsertFilmActors(ctx context.Context, rows []models.BridgeFilmActor) (int, error) {
	pairs := make([][2]int64, 0, len(rows))
	for _, r := range rows {
		pairs = append(pairs, [2]int64{r.FilmKey, r.ActorKey})
	}
	return l.insertBridge(ctx, "bridge_film_actor", `
		INSERT INTO bridge_film_actor (film_key, actor_key) VALUES (?, ?)
		ON CONFLICT (film_key, actor_key) DO NOTHING
	`, pairs)
}

// InsertFilmCategories writes bridge_film_category rows; existing links are left untouched
func (l *Loader) InsertFilmCategories(ctx context.Context, rows []models.BridgeFilmCategory) (int, error) {
	pairs := make([][2]int64, 0, len(rows))
	for _, r := range rows {
		pairs = append(pairs, [2]int64{r.FilmKey, r.CategoryKey})
	}
	return l.insertBridge(ctx, "bridge_film_category", `
		INSERT INTO bridge_film_category (film_key, category_key) VALUES (?, ?)
		ON CONFLICT (film_key, category_key) DO NOTHING
	`, pairs)
}

func (l *Loader) insertBridge(ctx context.Context, table, query string, pairs [][2]int64) (int, error) {
	if len(pairs) == 0 {
		return 0, nil
	}

	stmt, err := l.db.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	inserted := 0
	for _, p := range pairs {
		result, err := stmt.ExecContext(ctx, p[0], p[1])
		if err != nil {
			return inserted, fmt.Errorf("failed to insert %s (%d, %d): %w", table, p[0], p[1], err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to read %s rows affected: %w", table, err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

// EnsureEmpty fails with ErrTargetNotEmpty if any dimension, bridge or fact table holds rows
func (l *Loader) EnsureEmpty(ctx context.Context) error {
	for _, table := range schema.DataTables {
		var exists bool
		err := l.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+")").Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", table, err)
		}
		if exists {
			return fmt.Errorf("%w: %s has rows", ErrTargetNotEmpty, table)
		}
	}
	return nil
}
