package transform

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/LilVoxy/sakila_analytics/ETL/models"
)

const day = 24 * time.Hour

// RentalDurationDays is the absolute day difference between start and end,
// rounded up to whole days. It is null while the rental is open.
func RentalDurationDays(start time.Time, end sql.NullTime) sql.NullInt64 {
	if !end.Valid {
		return sql.NullInt64{}
	}
	diff := end.Time.Sub(start)
	if diff < 0 {
		diff = -diff
	}
	days := int64(math.Ceil(float64(diff) / float64(day)))
	return sql.NullInt64{Int64: days, Valid: true}
}

func dropped(table, naturalKey, format string, args ...interface{}) models.DroppedRow {
	return models.DroppedRow{
		Table:      table,
		NaturalKey: naturalKey,
		Reason:     fmt.Sprintf(format, args...),
	}
}

// ComposeFilmActors resolves film_actor links into bridge rows.
// Links whose film or actor is not in the analytics store are dropped.
func ComposeFilmActors(rows []models.FilmActor, keys *models.KeyMaps) ([]models.BridgeFilmActor, []models.DroppedRow) {
	var (
		out  = make([]models.BridgeFilmActor, 0, len(rows))
		drop []models.DroppedRow
	)
	for _, r := range rows {
		nk := fmt.Sprintf("film:%d/actor:%d", r.FilmID, r.ActorID)
		filmKey, ok := keys.Films.Lookup(r.FilmID)
		if !ok {
			drop = append(drop, dropped("bridge_film_actor", nk, "film %d not found", r.FilmID))
			continue
		}
		actorKey, ok := keys.Actors.Lookup(r.ActorID)
		if !ok {
			drop = append(drop, dropped("bridge_film_actor", nk, "actor %d not found", r.ActorID))
			continue
		}
		out = append(out, models.BridgeFilmActor{FilmKey: filmKey, ActorKey: actorKey})
	}
	return out, drop
}

// ComposeFilmCategories resolves film_category links into bridge rows
func ComposeFilmCategories(rows []models.FilmCategory, keys *models.KeyMaps) ([]models.BridgeFilmCategory, []models.DroppedRow) {
	var (
		out  = make([]models.BridgeFilmCategory, 0, len(rows))
		drop []models.DroppedRow
	)
	for _, r := range rows {
		nk := fmt.Sprintf("film:%d/category:%d", r.FilmID, r.CategoryID)
		filmKey, ok := keys.Films.Lookup(r.FilmID)
		if !ok {
			drop = append(drop, dropped("bridge_film_category", nk, "film %d not found", r.FilmID))
			continue
		}
		categoryKey, ok := keys.Categories.Lookup(r.CategoryID)
		if !ok {
			drop = append(drop, dropped("bridge_film_category", nk, "category %d not found", r.CategoryID))
			continue
		}
		out = append(out, models.BridgeFilmCategory{FilmKey: filmKey, CategoryKey: categoryKey})
	}
	return out, drop
}

// ComposeRentals builds fact_rental rows. A rental already in the analytics
// store keeps its surrogate key and is written as an update.
func ComposeRentals(rows []models.Rental, keys *models.KeyMaps) ([]models.FactRental, []models.DroppedRow) {
	var (
		out  = make([]models.FactRental, 0, len(rows))
		drop []models.DroppedRow
	)
	for _, r := range rows {
		nk := fmt.Sprintf("rental:%d", r.RentalID)

		customerKey, ok := keys.Customers.Lookup(r.CustomerID)
		if !ok {
			drop = append(drop, dropped("fact_rental", nk, "customer %d not found", r.CustomerID))
			continue
		}
		if !r.FilmID.Valid {
			drop = append(drop, dropped("fact_rental", nk, "inventory has no film"))
			continue
		}
		filmKey, ok := keys.Films.Lookup(r.FilmID.Int64)
		if !ok {
			drop = append(drop, dropped("fact_rental", nk, "film %d not found", r.FilmID.Int64))
			continue
		}
		if !r.StoreID.Valid {
			drop = append(drop, dropped("fact_rental", nk, "inventory has no store"))
			continue
		}
		storeKey, ok := keys.Stores.Lookup(r.StoreID.Int64)
		if !ok {
			drop = append(drop, dropped("fact_rental", nk, "store %d not found", r.StoreID.Int64))
			continue
		}

		rented := DateKey(r.RentalDate)
		if !keys.Dates.Has(rented) {
			drop = append(drop, dropped("fact_rental", nk, "date %d not found", rented))
			continue
		}
		var returned sql.NullInt64
		if r.ReturnDate.Valid {
			k := DateKey(r.ReturnDate.Time)
			if !keys.Dates.Has(k) {
				drop = append(drop, dropped("fact_rental", nk, "date %d not found", k))
				continue
			}
			returned = sql.NullInt64{Int64: int64(k), Valid: true}
		}

		factKey, _ := keys.Rentals.Lookup(r.RentalID)
		out = append(out, models.FactRental{
			FactRentalKey:      factKey,
			RentalID:           r.RentalID,
			DateKeyRented:      rented,
			DateKeyReturned:    returned,
			FilmKey:            filmKey,
			StoreKey:           storeKey,
			CustomerKey:        customerKey,
			StaffID:            r.StaffID,
			RentalDurationDays: RentalDurationDays(r.RentalDate, r.ReturnDate),
		})
	}
	return out, drop
}

// ComposePayments builds fact_payment rows; the store is the one of the staff member
func ComposePayments(rows []models.Payment, keys *models.KeyMaps) ([]models.FactPayment, []models.DroppedRow) {
	var (
		out  = make([]models.FactPayment, 0, len(rows))
		drop []models.DroppedRow
	)
	for _, p := range rows {
		nk := fmt.Sprintf("payment:%d", p.PaymentID)

		customerKey, ok := keys.Customers.Lookup(p.CustomerID)
		if !ok {
			drop = append(drop, dropped("fact_payment", nk, "customer %d not found", p.CustomerID))
			continue
		}
		if !p.StoreID.Valid {
			drop = append(drop, dropped("fact_payment", nk, "staff %d has no store", p.StaffID))
			continue
		}
		storeKey, ok := keys.Stores.Lookup(p.StoreID.Int64)
		if !ok {
			drop = append(drop, dropped("fact_payment", nk, "store %d not found", p.StoreID.Int64))
			continue
		}
		paid := DateKey(p.PaymentDate)
		if !keys.Dates.Has(paid) {
			drop = append(drop, dropped("fact_payment", nk, "date %d not found", paid))
			continue
		}

		factKey, _ := keys.Payments.Lookup(p.PaymentID)
		out = append(out, models.FactPayment{
			FactPaymentKey: factKey,
			PaymentID:      p.PaymentID,
			DateKeyPaid:    paid,
			CustomerKey:    customerKey,
			StoreKey:       storeKey,
			StaffID:        p.StaffID,
			Amount:         p.Amount,
		})
	}
	return out, drop
}
