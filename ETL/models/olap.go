package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// DimDate is a calendar dimension row; DateKey encodes YYYYMMDD
type DimDate struct {
	DateKey    int
	Date       string // YYYY-MM-DD
	Year       int
	Quarter    int
	Month      int
	DayOfMonth int
	DayOfWeek  int // 0=Sunday, 6=Saturday
	IsWeekend  bool
}

// DimActor is the actor dimension
type DimActor struct {
	ActorKey   int64
	ActorID    int64
	FirstName  string
	LastName   string
	LastUpdate time.Time
}

// DimCategory is the category dimension
type DimCategory struct {
	CategoryKey int64
	CategoryID  int64
	Name        string
	LastUpdate  time.Time
}

// DimStore is the store dimension with the address chain flattened
type DimStore struct {
	StoreKey   int64
	StoreID    int64
	City       string
	Country    string
	LastUpdate time.Time
}

// DimCustomer is the customer dimension with the address chain flattened
type DimCustomer struct {
	CustomerKey int64
	CustomerID  int64
	FirstName   string
	LastName    string
	Active      bool
	City        string
	Country     string
	LastUpdate  time.Time
}

// DimFilm is the film dimension
type DimFilm struct {
	FilmKey     int64
	FilmID      int64
	Title       string
	Rating      sql.NullString
	Length      sql.NullInt64
	Language    string
	ReleaseYear sql.NullInt64
	LastUpdate  time.Time
}

// BridgeFilmActor resolves film <-> actor
type BridgeFilmActor struct {
	FilmKey  int64
	ActorKey int64
}

// BridgeFilmCategory resolves film <-> category
type BridgeFilmCategory struct {
	FilmKey     int64
	CategoryKey int64
}

// FactRental is one rental event
type FactRental struct {
	FactRentalKey      int64
	RentalID           int64
	DateKeyRented      int
	DateKeyReturned    sql.NullInt64
	FilmKey            int64
	StoreKey           int64
	CustomerKey        int64
	StaffID            int64
	RentalDurationDays sql.NullInt64
}

// FactPayment is one payment event
type FactPayment struct {
	FactPaymentKey int64
	PaymentID      int64
	DateKeyPaid    int
	CustomerKey    int64
	StoreKey       int64
	StaffID        int64
	Amount         decimal.Decimal
}

// SyncState is a watermark row
type SyncState struct {
	TableName string    `json:"table_name"`
	LastRun   time.Time `json:"last_run"`
}
