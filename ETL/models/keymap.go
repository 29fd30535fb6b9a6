package models

// KeyMap maps a natural key to the surrogate key persisted in the analytics store
type KeyMap map[int64]int64

// Lookup returns the surrogate key of a natural key
func (m KeyMap) Lookup(naturalKey int64) (int64, bool) {
	key, ok := m[naturalKey]
	return key, ok
}

// Put records a mapping
func (m KeyMap) Put(naturalKey, surrogateKey int64) {
	m[naturalKey] = surrogateKey
}

// DateKeySet is the set of calendar keys persisted in dim_date
type DateKeySet map[int]struct{}

// Has reports whether the calendar key is persisted
func (s DateKeySet) Has(key int) bool {
	_, ok := s[key]
	return ok
}

// Add records a calendar key
func (s DateKeySet) Add(key int) {
	s[key] = struct{}{}
}

// KeyMaps bundles every lookup the composers need
type KeyMaps struct {
	Actors     KeyMap
	Categories KeyMap
	Stores     KeyMap
	Customers  KeyMap
	Films      KeyMap

	// Existing fact rows by source id
	Rentals  KeyMap
	Payments KeyMap

	Dates DateKeySet
}

// NewKeyMaps returns empty key maps
func NewKeyMaps() *KeyMaps {
	return &KeyMaps{
		Actors:     KeyMap{},
		Categories: KeyMap{},
		Stores:     KeyMap{},
		Customers:  KeyMap{},
		Films:      KeyMap{},
		Rentals:    KeyMap{},
		Payments:   KeyMap{},
		Dates:      DateKeySet{},
	}
}
