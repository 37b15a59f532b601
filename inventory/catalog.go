package inventory

import (
	"context"

	"github.com/kulmaganbetov/overbot123/models"
	"github.com/kulmaganbetov/overbot123/textmatch"
)

// Catalog serves browsing requests from the snapshot in effect.
type Catalog struct {
	store *Store
	// normalized category label -> slot it is searched for
	slots map[string]models.Slot
}

func NewCatalog(store *Store, slotLabels map[models.Slot]string) *Catalog {
	slots := make(map[string]models.Slot, len(slotLabels))
	for s, label := range slotLabels {
		slots[textmatch.Normalize(label)] = s
	}
	return &Catalog{store: store, slots: slots}
}

// GetFilteredProducts returns one page of matching products and the total
// number of matches. Products keep their snapshot order.
func (c *Catalog) GetFilteredProducts(_ context.Context, offset, limit int, filters models.ProductFilters) ([]models.Product, int, error) {
	snap, err := c.store.Current()
	if err != nil {
		return nil, 0, err
	}

	category := textmatch.Normalize(filters.Category)
	var matched []models.Product
	for i := range snap.Entries() {
		e := &snap.Entries()[i]
		if category != "" && e.Category != category {
			continue
		}
		if filters.PriceLessThan != nil && !e.Product.EffectivePrice().LessThan(*filters.PriceLessThan) {
			continue
		}
		matched = append(matched, e.Product)
	}

	total := len(matched)
	start := min(max(offset, 0), total)
	end := min(start+max(limit, 0), total)
	return matched[start:end], total, nil
}

func (c *Catalog) GetBySKU(_ context.Context, sku string) (*models.Product, error) {
	snap, err := c.store.Current()
	if err != nil {
		return nil, err
	}
	p, err := snap.Lookup(sku)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetAllCategories lists snapshot categories, marking the ones builds are
// assembled from.
func (c *Catalog) GetAllCategories(_ context.Context) ([]models.Category, error) {
	snap, err := c.store.Current()
	if err != nil {
		return nil, err
	}
	categories := snap.Categories()
	for i := range categories {
		if s, ok := c.slots[textmatch.Normalize(categories[i].Name)]; ok {
			categories[i].Slot = s.String()
		}
	}
	return categories, nil
}
