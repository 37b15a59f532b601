// Package inventory holds the catalog snapshot the assistant searches.
//
// A Snapshot is built once from a Source and never changes afterwards; a
// refresh builds a new one and swaps it into the Store. Readers that took a
// snapshot keep a consistent view for as long as they hold it.
package inventory

import (
	"errors"
	"time"

	"github.com/kulmaganbetov/overbot123/models"
	"github.com/kulmaganbetov/overbot123/textmatch"
)

// ErrNoSnapshot is returned while no catalog has been loaded yet.
var ErrNoSnapshot = errors.New("catalog snapshot not loaded")

// Entry is a catalog product with the normalized forms of its searchable fields.
type Entry struct {
	Product  models.Product
	Name     string
	Brand    string
	Category string
	Article  string
	SKU      string
}

// Snapshot is an immutable, ordered catalog.
type Snapshot struct {
	entries  []Entry
	bySKU    map[string]int
	source   string
	loadedAt time.Time
}

// NewSnapshot copies products into a new snapshot, normalizing the
// searchable fields once up front.
func NewSnapshot(source string, products []models.Product) *Snapshot {
	s := &Snapshot{
		entries:  make([]Entry, len(products)),
		bySKU:    make(map[string]int, len(products)),
		source:   source,
		loadedAt: time.Now(),
	}
	for i, p := range products {
		if p.Stock != nil {
			stock := *p.Stock
			p.Stock = &stock
		}
		s.entries[i] = Entry{
			Product:  p,
			Name:     textmatch.Normalize(p.Name),
			Brand:    textmatch.Normalize(p.Brand),
			Category: textmatch.Normalize(p.Category),
			Article:  textmatch.Normalize(p.Article),
			SKU:      textmatch.Normalize(p.SKU),
		}
		if _, dup := s.bySKU[p.SKU]; !dup && p.SKU != "" {
			s.bySKU[p.SKU] = i
		}
	}
	return s
}

// Entries exposes the catalog in order. The slice is shared and must not be modified.
func (s *Snapshot) Entries() []Entry {
	return s.entries
}

func (s *Snapshot) Len() int {
	return len(s.entries)
}

func (s *Snapshot) Source() string {
	return s.source
}

func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Lookup finds a product by its exact SKU.
func (s *Snapshot) Lookup(sku string) (models.Product, error) {
	i, ok := s.bySKU[sku]
	if !ok {
		return models.Product{}, models.ErrProductNotFound
	}
	return s.entries[i].Product, nil
}

// Categories counts products per category in order of first appearance.
func (s *Snapshot) Categories() []models.Category {
	index := make(map[string]int)
	var out []models.Category
	for _, e := range s.entries {
		if e.Product.Category == "" {
			continue
		}
		if i, ok := index[e.Product.Category]; ok {
			out[i].Count++
			continue
		}
		index[e.Product.Category] = len(out)
		out = append(out, models.Category{Name: e.Product.Category, Count: 1})
	}
	return out
}
