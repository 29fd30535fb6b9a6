// Package schema holds the explicit DDL of the analytics store.
package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// Table is one target table with its secondary indexes
type Table struct {
	Name    string
	Create  string
	Indexes []string
}

// Tables lists the analytics store in dependency order: referenced tables come first
var Tables = []Table{
	{
		Name: "dim_date",
		Create: `CREATE TABLE IF NOT EXISTS dim_date (
			date_key     INTEGER PRIMARY KEY,
			date         TEXT    NOT NULL,
			year         INTEGER NOT NULL,
			quarter      INTEGER NOT NULL,
			month        INTEGER NOT NULL,
			day_of_month INTEGER NOT NULL,
			day_of_week  INTEGER NOT NULL,
			is_weekend   INTEGER NOT NULL
		)`,
		Indexes: []string{
			`CREATE INDEX IF NOT EXISTS idx_dim_date_date ON dim_date (date)`,
		},
	},
	{
		Name: "dim_actor",
		Create: `CREATE TABLE IF NOT EXISTS dim_actor (
			actor_key   INTEGER PRIMARY KEY AUTOINCREMENT,
			actor_id    INTEGER  NOT NULL,
			first_name  TEXT     NOT NULL,
			last_name   TEXT     NOT NULL,
			last_update DATETIME NOT NULL
		)`,
		Indexes: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS ux_dim_actor_actor_id ON dim_actor (actor_id)`,
		},
	},
	{
		Name: "dim_category",
		Create: `CREATE TABLE IF NOT EXISTS dim_category (
			category_key INTEGER PRIMARY KEY AUTOINCREMENT,
			category_id  INTEGER  NOT NULL,
			name         TEXT     NOT NULL,
			last_update  DATETIME NOT NULL
		)`,
		Indexes: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS ux_dim_category_category_id ON dim_category (category_id)`,
		},
	},
	{
		Name: "dim_store",
		Create: `CREATE TABLE IF NOT EXISTS dim_store (
			store_key   INTEGER PRIMARY KEY AUTOINCREMENT,
			store_id    INTEGER  NOT NULL,
			city        TEXT     NOT NULL,
			country     TEXT     NOT NULL,
			last_update DATETIME NOT NULL
		)`,
		Indexes: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS ux_dim_store_store_id ON dim_store (store_id)`,
		},
	},
	{
		Name: "dim_customer",
		Create: `CREATE TABLE IF NOT EXISTS dim_customer (
			customer_key INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_id  INTEGER  NOT NULL,
			first_name   TEXT     NOT NULL,
			last_name    TEXT     NOT NULL,
			active       INTEGER  NOT NULL,
			city         TEXT     NOT NULL,
			country      TEXT     NOT NULL,
			last_update  DATETIME NOT NULL
		)`,
		Indexes: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS ux_dim_customer_customer_id ON dim_customer (customer_id)`,
		},
	},
	{
		Name: "dim_film",
		Create: `CREATE TABLE IF NOT EXISTS dim_film (
			film_key     INTEGER PRIMARY KEY AUTOINCREMENT,
			film_id      INTEGER  NOT NULL,
			title        TEXT     NOT NULL,
			rating       TEXT,
			length       INTEGER,
			language     TEXT     NOT NULL,
			release_year INTEGER,
			last_update  DATETIME NOT NULL
		)`,
		Indexes: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS ux_dim_film_film_id ON dim_film (film_id)`,
		},
	},
	{
		Name: "bridge_film_actor",
		Create: `CREATE TABLE IF NOT EXISTS bridge_film_actor (
			film_key  INTEGER NOT NULL REFERENCES dim_film (film_key),
			actor_key INTEGER NOT NULL REFERENCES dim_actor (actor_key),
			PRIMARY KEY (film_key, actor_key)
		)`,
	},
	{
		Name: "bridge_film_category",
		Create: `CREATE TABLE IF NOT EXISTS bridge_film_category (
			film_key     INTEGER NOT NULL REFERENCES dim_film (film_key),
			category_key INTEGER NOT NULL REFERENCES dim_category (category_key),
			PRIMARY KEY (film_key, category_key)
		)`,
	},
	{
		Name: "fact_rental",
		Create: `CREATE TABLE IF NOT EXISTS fact_rental (
			fact_rental_key      INTEGER PRIMARY KEY AUTOINCREMENT,
			rental_id            INTEGER NOT NULL,
			date_key_rented      INTEGER NOT NULL REFERENCES dim_date (date_key),
			date_key_returned    INTEGER REFERENCES dim_date (date_key),
			film_key             INTEGER NOT NULL REFERENCES dim_film (film_key),
			store_key            INTEGER NOT NULL REFERENCES dim_store (store_key),
			customer_key         INTEGER NOT NULL REFERENCES dim_customer (customer_key),
			staff_id             INTEGER NOT NULL,
			rental_duration_days INTEGER
		)`,
		Indexes: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS ux_fact_rental_rental_id ON fact_rental (rental_id)`,
			`CREATE INDEX IF NOT EXISTS idx_fact_rental_date_key_rented ON fact_rental (date_key_rented)`,
		},
	},
	{
		Name: "fact_payment",
		Create: `CREATE TABLE IF NOT EXISTS fact_payment (
			fact_payment_key INTEGER PRIMARY KEY AUTOINCREMENT,
			payment_id       INTEGER NOT NULL,
			date_key_paid    INTEGER NOT NULL REFERENCES dim_date (date_key),
			customer_key     INTEGER NOT NULL REFERENCES dim_customer (customer_key),
			store_key        INTEGER NOT NULL REFERENCES dim_store (store_key),
			staff_id         INTEGER NOT NULL,
			amount           NUMERIC NOT NULL
		)`,
		Indexes: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS ux_fact_payment_payment_id ON fact_payment (payment_id)`,
			`CREATE INDEX IF NOT EXISTS idx_fact_payment_date_key_paid ON fact_payment (date_key_paid)`,
		},
	},
	{
		Name: "sync_state",
		Create: `CREATE TABLE IF NOT EXISTS sync_state (
			table_name TEXT PRIMARY KEY,
			last_run   DATETIME NOT NULL
		)`,
	},
	{
		Name: "etl_run_log",
		Create: `CREATE TABLE IF NOT EXISTS etl_run_log (
			id                     INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id                 TEXT     NOT NULL,
			mode                   TEXT     NOT NULL,
			start_time             DATETIME NOT NULL,
			end_time               DATETIME,
			status                 TEXT     NOT NULL DEFAULT 'in_progress'
				CHECK (status IN ('in_progress', 'success', 'failed')),
			rows_inserted          INTEGER  NOT NULL DEFAULT 0,
			rows_updated           INTEGER  NOT NULL DEFAULT 0,
			rows_dropped           INTEGER  NOT NULL DEFAULT 0,
			error_message          TEXT,
			execution_time_seconds REAL,
			report                 BLOB
		)`,
	},
}

// DataTables are the dimension, bridge and fact tables written by a sync run
var DataTables = []string{
	"dim_date", "dim_actor", "dim_category", "dim_store", "dim_customer", "dim_film",
	"bridge_film_actor", "bridge_film_category", "fact_rental", "fact_payment",
}

// Names returns the table names in creation order
func Names() []string {
	names := make([]string, 0, len(Tables))
	for _, t := range Tables {
		names = append(names, t.Name)
	}
	return names
}

// Execer is satisfied by *sql.DB and *sql.Tx
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Create creates every missing table and index
func Create(ctx context.Context, db Execer) error {
	for _, t := range Tables {
		if _, err := db.ExecContext(ctx, t.Create); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.Name, err)
		}
		for _, idx := range t.Indexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return fmt.Errorf("failed to create index on %s: %w", t.Name, err)
			}
		}
	}
	return nil
}

// Reset drops every table in reverse dependency order and recreates the schema
func Reset(ctx context.Context, db Execer) error {
	for i := len(Tables) - 1; i >= 0; i-- {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+Tables[i].Name); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", Tables[i].Name, err)
		}
	}
	return Create(ctx, db)
}
