package transform

import (
	"database/sql"

	"github.com/LilVoxy/sakila_analytics/ETL/models"
)

// Unknown substitutes an attribute whose relation is absent in the source
const Unknown = "Unknown"

func orUnknown(s sql.NullString) string {
	if !s.Valid || s.String == "" {
		return Unknown
	}
	return s.String
}

// ConformActors maps source actors to dim_actor rows.
// Rows whose natural key is already mapped carry the existing surrogate key.
func ConformActors(rows []models.Actor, keys models.KeyMap) []models.DimActor {
	out := make([]models.DimActor, 0, len(rows))
	for _, r := range rows {
		key, _ := keys.Lookup(r.ActorID)
		out = append(out, models.DimActor{
			ActorKey:   key,
			ActorID:    r.ActorID,
			FirstName:  r.FirstName,
			LastName:   r.LastName,
			LastUpdate: r.LastUpdate,
		})
	}
	return out
}

// ConformCategories maps source categories to dim_category rows
func ConformCategories(rows []models.Category, keys models.KeyMap) []models.DimCategory {
	out := make([]models.DimCategory, 0, len(rows))
	for _, r := range rows {
		key, _ := keys.Lookup(r.CategoryID)
		out = append(out, models.DimCategory{
			CategoryKey: key,
			CategoryID:  r.CategoryID,
			Name:        r.Name,
			LastUpdate:  r.LastUpdate,
		})
	}
	return out
}

// ConformStores flattens store -> address -> city -> country into dim_store rows
func ConformStores(rows []models.Store, keys models.KeyMap) []models.DimStore {
	out := make([]models.DimStore, 0, len(rows))
	for _, r := range rows {
		key, _ := keys.Lookup(r.StoreID)
		out = append(out, models.DimStore{
			StoreKey:   key,
			StoreID:    r.StoreID,
			City:       orUnknown(r.City),
			Country:    orUnknown(r.Country),
			LastUpdate: r.LastUpdate,
		})
	}
	return out
}

// ConformCustomers flattens customer -> address -> city -> country into dim_customer rows
func ConformCustomers(rows []models.Customer, keys models.KeyMap) []models.DimCustomer {
	out := make([]models.DimCustomer, 0, len(rows))
	for _, r := range rows {
		key, _ := keys.Lookup(r.CustomerID)
		out = append(out, models.DimCustomer{
			CustomerKey: key,
			CustomerID:  r.CustomerID,
			FirstName:   r.FirstName,
			LastName:    r.LastName,
			Active:      r.Active == 1,
			City:        orUnknown(r.City),
			Country:     orUnknown(r.Country),
			LastUpdate:  r.LastUpdate,
		})
	}
	return out
}

// ConformFilms maps source films to dim_film rows; a missing language becomes Unknown
func ConformFilms(rows []models.Film, keys models.KeyMap) []models.DimFilm {
	out := make([]models.DimFilm, 0, len(rows))
	for _, r := range rows {
		key, _ := keys.Lookup(r.FilmID)
		out = append(out, models.DimFilm{
			FilmKey:     key,
			FilmID:      r.FilmID,
			Title:       r.Title,
			Rating:      r.Rating,
			Length:      r.Length,
			Language:    orUnknown(r.Language),
			ReleaseYear: r.ReleaseYear,
			LastUpdate:  r.LastUpdate,
		})
	}
	return out
}
