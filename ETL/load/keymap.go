package load

import (
	"context"
	"fmt"

	"github.com/LilVoxy/sakila_analytics/ETL/models"
)

// KeySpec names the natural and surrogate key columns of a table
type KeySpec struct {
	Table     string
	Natural   string
	Surrogate string
}

// Key specs of every table that carries a natural key
var (
	ActorKeys    = KeySpec{Table: "dim_actor", Natural: "actor_id", Surrogate: "actor_key"}
	CategoryKeys = KeySpec{Table: "dim_category", Natural: "category_id", Surrogate: "category_key"}
	StoreKeys    = KeySpec{Table: "dim_store", Natural: "store_id", Surrogate: "store_key"}
	CustomerKeys = KeySpec{Table: "dim_customer", Natural: "customer_id", Surrogate: "customer_key"}
	FilmKeys     = KeySpec{Table: "dim_film", Natural: "film_id", Surrogate: "film_key"}
	RentalKeys   = KeySpec{Table: "fact_rental", Natural: "rental_id", Surrogate: "fact_rental_key"}
	PaymentKeys  = KeySpec{Table: "fact_payment", Natural: "payment_id", Surrogate: "fact_payment_key"}
)

// BuildKeyMap reads every natural -> surrogate pair persisted in a table
func BuildKeyMap(ctx context.Context, db DBTX, spec KeySpec) (models.KeyMap, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM %s", spec.Natural, spec.Surrogate, spec.Table)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s keys: %w", spec.Table, err)
	}
	defer rows.Close()

	keys := models.KeyMap{}
	for rows.Next() {
		var natural, surrogate int64
		if err := rows.Scan(&natural, &surrogate); err != nil {
			return nil, fmt.Errorf("failed to scan %s key: %w", spec.Table, err)
		}
		keys.Put(natural, surrogate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s keys: %w", spec.Table, err)
	}
	return keys, nil
}

// BuildDateKeys reads every calendar key persisted in dim_date
func BuildDateKeys(ctx context.Context, db DBTX) (models.DateKeySet, error) {
	rows, err := db.QueryContext(ctx, "SELECT date_key FROM dim_date")
	if err != nil {
		return nil, fmt.Errorf("failed to read dim_date keys: %w", err)
	}
	defer rows.Close()

	keys := models.DateKeySet{}
	for rows.Next() {
		var key int
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan dim_date key: %w", err)
		}
		keys.Add(key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dim_date keys: %w", err)
	}
	return keys, nil
}

// BuildKeyMaps reads every key map the composers need
func BuildKeyMaps(ctx context.Context, db DBTX) (*models.KeyMaps, error) {
	keys := models.NewKeyMaps()

	targets := []struct {
		spec KeySpec
		dst  *models.KeyMap
	}{
		{ActorKeys, &keys.Actors},
		{CategoryKeys, &keys.Categories},
		{StoreKeys, &keys.Stores},
		{CustomerKeys, &keys.Customers},
		{FilmKeys, &keys.Films},
		{RentalKeys, &keys.Rentals},
		{PaymentKeys, &keys.Payments},
	}
	for _, t := range targets {
		m, err := BuildKeyMap(ctx, db, t.spec)
		if err != nil {
			return nil, err
		}
		*t.dst = m
	}

	dates, err := BuildDateKeys(ctx, db)
	if err != nil {
		return nil, err
	}
	keys.Dates = dates

	return keys, nil
}
