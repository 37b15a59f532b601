// Package search ranks catalog products against free text and filters.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/kulmaganbetov/overbot123/inventory"
	"github.com/kulmaganbetov/overbot123/models"
	"github.com/kulmaganbetov/overbot123/textmatch"
)

// DefaultLimit caps the result size when the caller passes no limit.
const DefaultLimit = 10

// ErrEngineUnavailable is returned when there is no catalog to search.
var ErrEngineUnavailable = errors.New("search engine unavailable")

// Candidate is a matching product with its ranking score.
type Candidate struct {
	models.ProductSummary
	Score int `json:"score"`
}

// SnapshotProvider hands out the catalog snapshot in effect.
type SnapshotProvider interface {
	Current() (*inventory.Snapshot, error)
}

type Engine struct {
	catalog SnapshotProvider
	logger  *slog.Logger
}

func NewEngine(catalog SnapshotProvider, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{catalog: catalog, logger: logger}
}

// Search ranks the current snapshot. It fails only when no snapshot is
// loaded or ctx ends mid-scan; an empty result is not an error.
func (e *Engine) Search(ctx context.Context, query string, filters Filters, limit int) ([]Candidate, error) {
	snap, err := e.catalog.Current()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}

	results, err := rank(ctx, snap, query, filters, limit)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("search finished",
		"query", query,
		"results", len(results),
		"catalog_size", snap.Len())
	return results, nil
}

// Rank is the pure form of Engine.Search over an explicit snapshot.
func Rank(snap *inventory.Snapshot, query string, filters Filters, limit int) []Candidate {
	results, _ := rank(context.Background(), snap, query, filters, limit)
	return results
}

// Keywords builds the deduplicated, normalized keyword set of a query:
// the whole query text plus every keyword, brand and category filter.
func Keywords(query string, filters Filters) []string {
	all := make([]string, 0, 1+len(filters.Keywords)+len(filters.Brand)+len(filters.Category))
	all = append(all, query)
	all = append(all, filters.Keywords...)
	all = append(all, filters.Brand...)
	all = append(all, filters.Category...)

	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, kw := range textmatch.NormalizeAll(all) {
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// how many entries are scanned between context checks
const checkEvery = 256

func rank(ctx context.Context, snap *inventory.Snapshot, query string, filters Filters, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	keywords := Keywords(query, filters)
	if len(keywords) == 0 || snap == nil {
		return []Candidate{}, nil
	}

	brands := textmatch.NormalizeAll(filters.Brand)
	categories := textmatch.NormalizeAll(filters.Category)

	var results []Candidate
	for i := range snap.Entries() {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		e := &snap.Entries()[i]
		if !matchesKeywords(e, keywords) || !passesFilters(e, brands, categories, filters) {
			continue
		}
		results = append(results, Candidate{
			ProductSummary: e.Product.Summary(),
			Score:          score(e.Name, keywords),
		})
	}

	slices.SortStableFunc(results, func(a, b Candidate) int {
		return b.Score - a.Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []Candidate{}
	}
	return results, nil
}

func matchesKeywords(e *inventory.Entry, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(e.Name, kw) ||
			strings.Contains(e.Brand, kw) ||
			strings.Contains(e.Category, kw) ||
			strings.Contains(e.Article, kw) ||
			strings.Contains(e.SKU, kw) ||
			textmatch.IsSimilar(e.Name, kw) ||
			textmatch.IsSimilar(e.Category, kw) {
			return true
		}
	}
	return false
}

func passesFilters(e *inventory.Entry, brands, categories []string, filters Filters) bool {
	if len(brands) > 0 && !anyMatch(e.Brand, brands) {
		return false
	}
	if len(categories) > 0 && !anyMatch(e.Category, categories) {
		return false
	}

	price := e.Product.EffectivePrice()
	if filters.MaxPrice != nil && price.GreaterThan(*filters.MaxPrice) {
		return false
	}
	if filters.MinPrice != nil && price.LessThan(*filters.MinPrice) {
		return false
	}
	return true
}

func anyMatch(field string, wanted []string) bool {
	for _, w := range wanted {
		if strings.Contains(field, w) || textmatch.IsSimilar(field, w) {
			return true
		}
	}
	return false
}

// score adds 3 per keyword found in the name and, independently, 2 per
// keyword the name is fuzzily similar to.
func score(name string, keywords []string) int {
	total := 0
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			total += 3
		}
		if textmatch.IsSimilar(name, kw) {
			total += 2
		}
	}
	return total
}
