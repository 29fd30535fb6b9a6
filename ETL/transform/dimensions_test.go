package transform

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/sakila_analytics/ETL/models"
)

var updated = time.Date(2006, 2, 15, 4, 34, 33, 0, time.UTC)

func TestConformActorsPreservesExistingKeys(t *testing.T) {
	rows := []models.Actor{
		{ActorID: 1, FirstName: "PENELOPE", LastName: "GUINESS", LastUpdate: updated},
		{ActorID: 201, FirstName: "JEST", LastName: "TEST", LastUpdate: updated},
	}
	keys := models.KeyMap{1: 17}

	out := ConformActors(rows, keys)

	require.Len(t, out, 2)
	assert.Equal(t, int64(17), out[0].ActorKey)
	assert.Equal(t, "GUINESS", out[0].LastName)
	assert.Zero(t, out[1].ActorKey)
	assert.Equal(t, int64(201), out[1].ActorID)
}

func TestConformStoresDefaultsMissingAddress(t *testing.T) {
	rows := []models.Store{
		{StoreID: 1, City: sql.NullString{String: "Lethbridge", Valid: true}, Country: sql.NullString{String: "Canada", Valid: true}},
		{StoreID: 2},
	}

	out := ConformStores(rows, models.KeyMap{})

	require.Len(t, out, 2)
	assert.Equal(t, "Lethbridge", out[0].City)
	assert.Equal(t, "Canada", out[0].Country)
	assert.Equal(t, Unknown, out[1].City)
	assert.Equal(t, Unknown, out[1].Country)
}

func TestConformCustomersActiveFlag(t *testing.T) {
	rows := []models.Customer{
		{CustomerID: 1, FirstName: "MARY", LastName: "SMITH", Active: 1},
		{CustomerID: 16, FirstName: "SANDRA", LastName: "MARTIN", Active: 0},
	}

	out := ConformCustomers(rows, models.KeyMap{16: 3})

	require.Len(t, out, 2)
	assert.True(t, out[0].Active)
	assert.False(t, out[1].Active)
	assert.Equal(t, int64(3), out[1].CustomerKey)
	assert.Equal(t, Unknown, out[1].City)
}

func TestConformFilmsDefaultsLanguage(t *testing.T) {
	rows := []models.Film{
		{
			FilmID:   1,
			Title:    "ACADEMY DINOSAUR",
			Rating:   sql.NullString{String: "PG", Valid: true},
			Length:   sql.NullInt64{Int64: 86, Valid: true},
			Language: sql.NullString{String: "English", Valid: true},
		},
		{FilmID: 2, Title: "ACE GOLDFINGER"},
	}

	out := ConformFilms(rows, models.KeyMap{})

	require.Len(t, out, 2)
	assert.Equal(t, "English", out[0].Language)
	assert.Equal(t, int64(86), out[0].Length.Int64)
	assert.Equal(t, Unknown, out[1].Language)
	assert.False(t, out[1].Rating.Valid)
}

func TestConformCategories(t *testing.T) {
	out := ConformCategories([]models.Category{{CategoryID: 1, Name: "Action"}}, models.KeyMap{1: 1})
	require.Len(t, out, 1)
	assert.Equal(t, models.DimCategory{CategoryKey: 1, CategoryID: 1, Name: "Action"}, out[0])
}
