package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Actor is an actor row of the source store
type Actor struct {
	ActorID    int64
	FirstName  string
	LastName   string
	LastUpdate time.Time
}

// Category is a film category row of the source store
type Category struct {
	CategoryID int64
	Name       string
	LastUpdate time.Time
}

// Store is a store row with its address chain (address -> city -> country) joined in
type Store struct {
	StoreID    int64
	City       sql.NullString
	Country    sql.NullString
	LastUpdate time.Time
}

// Customer is a customer row with its address chain joined in
type Customer struct {
	CustomerID int64
	FirstName  string
	LastName   string
	Active     int
	City       sql.NullString
	Country    sql.NullString
	LastUpdate time.Time
}

// Film is a film row with its language joined in
type Film struct {
	FilmID      int64
	Title       string
	ReleaseYear sql.NullInt64
	Length      sql.NullInt64
	Rating      sql.NullString
	Language    sql.NullString
	LastUpdate  time.Time
}

// FilmActor links a film to an actor
type FilmActor struct {
	ActorID    int64
	FilmID     int64
	LastUpdate time.Time
}

// FilmCategory links a film to a category
type FilmCategory struct {
	FilmID     int64
	CategoryID int64
	LastUpdate time.Time
}

// Rental is a rental row; film and store come through inventory
type Rental struct {
	RentalID   int64
	RentalDate time.Time
	ReturnDate sql.NullTime
	CustomerID int64
	StaffID    int64
	FilmID     sql.NullInt64
	StoreID    sql.NullInt64
	LastUpdate time.Time
}

// Payment is a payment row; store comes through staff
type Payment struct {
	PaymentID   int64
	CustomerID  int64
	StaffID     int64
	StoreID     sql.NullInt64
	Amount      decimal.Decimal
	PaymentDate time.Time
	LastUpdate  time.Time
}
