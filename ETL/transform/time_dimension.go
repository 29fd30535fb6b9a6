package transform

import (
	"sort"
	"time"

	"github.com/LilVoxy/sakila_analytics/ETL/models"
)

// DateKey encodes the calendar date of t as YYYYMMDD
func DateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// DeriveDate builds the calendar record of the date of t; the time of day is ignored
func DeriveDate(t time.Time) models.DimDate {
	month := int(t.Month())
	dayOfWeek := int(t.Weekday()) // 0=Sunday, 6=Saturday

	return models.DimDate{
		DateKey:    DateKey(t),
		Date:       t.Format("2006-01-02"),
		Year:       t.Year(),
		Quarter:    (month-1)/3 + 1,
		Month:      month,
		DayOfMonth: t.Day(),
		DayOfWeek:  dayOfWeek,
		IsWeekend:  dayOfWeek == 0 || dayOfWeek == 6,
	}
}

// DateSet collects calendar records de-duplicated by date key
type DateSet struct {
	dates map[int]models.DimDate
}

// NewDateSet creates an empty DateSet
func NewDateSet() *DateSet {
	return &DateSet{dates: make(map[int]models.DimDate)}
}

// Add derives the calendar record of t unless its date is already present
func (s *DateSet) Add(t time.Time) {
	key := DateKey(t)
	if _, ok := s.dates[key]; ok {
		return
	}
	s.dates[key] = DeriveDate(t)
}

// Len returns the number of distinct dates
func (s *DateSet) Len() int {
	return len(s.dates)
}

// Dates returns the records ordered by date key
func (s *DateSet) Dates() []models.DimDate {
	out := make([]models.DimDate, 0, len(s.dates))
	for _, d := range s.dates {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateKey < out[j].DateKey })
	return out
}

// CollectDates derives the calendar records referenced by rentals (rented and
// returned dates) and payments (paid date)
func CollectDates(rentals []models.Rental, payments []models.Payment) *DateSet {
	set := NewDateSet()
	for _, r := range rentals {
		set.Add(r.RentalDate)
		if r.ReturnDate.Valid {
			set.Add(r.ReturnDate.Time)
		}
	}
	for _, p := range payments {
		set.Add(p.PaymentDate)
	}
	return set
}
