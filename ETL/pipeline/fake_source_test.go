package pipeline

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LilVoxy/sakila_analytics/ETL/models"
)

var sourceUpdate = time.Date(2006, 2, 15, 4, 34, 33, 0, time.UTC)

// fakeSource is an in-memory sakila with last_update filtering
type fakeSource struct {
	mu sync.Mutex

	actors         []models.Actor
	categories     []models.Category
	stores         []models.Store
	customers      []models.Customer
	films          []models.Film
	filmActors     []models.FilmActor
	filmCategories []models.FilmCategory
	rentals        []models.Rental
	payments       []models.Payment

	// errors returned by the named extraction
	fail map[string]error

	// when set, Categories signals started and waits for release. The run
	// has written the actor dimension by then.
	started chan struct{}
	release chan struct{}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func nullInt(i int64) sql.NullInt64 {
	return sql.NullInt64{Int64: i, Valid: true}
}

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		actors: []models.Actor{
			{ActorID: 1, FirstName: "SPENCER", LastName: "DEARMAN", LastUpdate: sourceUpdate},
			{ActorID: 2, FirstName: "NICK", LastName: "WAHLBERG", LastUpdate: sourceUpdate},
		},
		categories: []models.Category{
			{CategoryID: 1, Name: "Action", LastUpdate: sourceUpdate},
			{CategoryID: 2, Name: "Comedy", LastUpdate: sourceUpdate},
		},
		stores: []models.Store{
			{StoreID: 1, City: nullString("Lethbridge"), Country: nullString("Canada"), LastUpdate: sourceUpdate},
			{StoreID: 2, LastUpdate: sourceUpdate},
		},
		customers: []models.Customer{
			{CustomerID: 1, FirstName: "MARY", LastName: "SMITH", Active: 1, City: nullString("Sasebo"), Country: nullString("Japan"), LastUpdate: sourceUpdate},
			{CustomerID: 2, FirstName: "PATRICIA", LastName: "JOHNSON", Active: 0, LastUpdate: sourceUpdate},
		},
		films: []models.Film{
			{FilmID: 1, Title: "ACADEMY DINOSAUR", ReleaseYear: nullInt(2006), Length: nullInt(86), Rating: nullString("PG"), Language: nullString("English"), LastUpdate: sourceUpdate},
			{FilmID: 2, Title: "ACE GOLDFINGER", LastUpdate: sourceUpdate},
		},
		filmActors: []models.FilmActor{
			{ActorID: 1, FilmID: 1, LastUpdate: sourceUpdate},
			{ActorID: 2, FilmID: 1, LastUpdate: sourceUpdate},
			{ActorID: 1, FilmID: 2, LastUpdate: sourceUpdate},
		},
		filmCategories: []models.FilmCategory{
			{FilmID: 1, CategoryID: 1, LastUpdate: sourceUpdate},
			{FilmID: 2, CategoryID: 2, LastUpdate: sourceUpdate},
		},
		rentals: []models.Rental{
			{RentalID: 1, RentalDate: day(2024, 1, 1, 10), CustomerID: 1, StaffID: 1, FilmID: nullInt(1), StoreID: nullInt(1), LastUpdate: day(2024, 1, 1, 10)},
			{RentalID: 2, RentalDate: day(2024, 1, 2, 9), ReturnDate: sql.NullTime{Time: day(2024, 1, 3, 18), Valid: true}, CustomerID: 2, StaffID: 2, FilmID: nullInt(2), StoreID: nullInt(2), LastUpdate: day(2024, 1, 3, 18)},
		},
		payments: []models.Payment{
			{PaymentID: 1, CustomerID: 1, StaffID: 1, StoreID: nullInt(1), Amount: decimal.RequireFromString("2.99"), PaymentDate: day(2024, 1, 1, 10), LastUpdate: day(2024, 1, 1, 10)},
			{PaymentID: 2, CustomerID: 2, StaffID: 2, StoreID: nullInt(2), Amount: decimal.RequireFromString("4.99"), PaymentDate: day(2024, 1, 3, 18), LastUpdate: day(2024, 1, 3, 18)},
		},
		fail: map[string]error{},
	}
}

func changedSince[T any](f *fakeSource, name string, rows []T, since time.Time, changed func(T) []time.Time) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[name]; err != nil {
		return nil, err
	}

	var out []T
	for _, row := range rows {
		if since.Unix() <= 0 {
			out = append(out, row)
			continue
		}
		for _, t := range changed(row) {
			if t.After(since) {
				out = append(out, row)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeSource) Actors(_ context.Context, since time.Time) ([]models.Actor, error) {
	return changedSince(f, "actor", f.actors, since, func(a models.Actor) []time.Time { return []time.Time{a.LastUpdate} })
}

func (f *fakeSource) Categories(_ context.Context, since time.Time) ([]models.Category, error) {
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	return changedSince(f, "category", f.categories, since, func(c models.Category) []time.Time { return []time.Time{c.LastUpdate} })
}

func (f *fakeSource) Stores(_ context.Context, since time.Time) ([]models.Store, error) {
	return changedSince(f, "store", f.stores, since, func(s models.Store) []time.Time { return []time.Time{s.LastUpdate} })
}

func (f *fakeSource) Customers(_ context.Context, since time.Time) ([]models.Customer, error) {
	return changedSince(f, "customer", f.customers, since, func(c models.Customer) []time.Time { return []time.Time{c.LastUpdate} })
}

func (f *fakeSource) Films(_ context.Context, since time.Time) ([]models.Film, error) {
	return changedSince(f, "film", f.films, since, func(m models.Film) []time.Time { return []time.Time{m.LastUpdate} })
}

func (f *fakeSource) FilmActors(_ context.Context, since time.Time) ([]models.FilmActor, error) {
	return changedSince(f, "film_actor", f.filmActors, since, func(fa models.FilmActor) []time.Time { return []time.Time{fa.LastUpdate} })
}

func (f *fakeSource) FilmCategories(_ context.Context, since time.Time) ([]models.FilmCategory, error) {
	return changedSince(f, "film_category", f.filmCategories, since, func(fc models.FilmCategory) []time.Time { return []time.Time{fc.LastUpdate} })
}

func (f *fakeSource) Rentals(_ context.Context, since time.Time) ([]models.Rental, error) {
	return changedSince(f, "rental", f.rentals, since, func(r models.Rental) []time.Time { return []time.Time{r.RentalDate, r.LastUpdate} })
}

func (f *fakeSource) Payments(_ context.Context, since time.Time) ([]models.Payment, error) {
	return changedSince(f, "payment", f.payments, since, func(p models.Payment) []time.Time { return []time.Time{p.PaymentDate, p.LastUpdate} })
}

// clock is a settable wall clock
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}
