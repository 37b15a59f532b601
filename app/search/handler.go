package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kulmaganbetov/overbot123/app/respond"
	"github.com/kulmaganbetov/overbot123/search"
)

type Request struct {
	Query   string               `json:"query"`
	Filters search.FilterRequest `json:"filters"`
	Limit   int                  `json:"limit,omitempty"`
}

type Result struct {
	SKU   string  `json:"sku"`
	Name  string  `json:"name"`
	Brand string  `json:"brand"`
	Price float64 `json:"price"`
	Stock *int    `json:"stock,omitempty"`
	Score int     `json:"score"`
}

type Searcher interface {
	Search(ctx context.Context, query string, filters search.Filters, limit int) ([]search.Candidate, error)
}

type SearchHandler struct {
	engine Searcher
}

func NewSearchHandler(engine Searcher) *SearchHandler {
	return &SearchHandler{engine: engine}
}

func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var input Request
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	limit := search.DefaultLimit
	if input.Limit > 0 {
		limit = min(input.Limit, search.DefaultLimit)
	}

	found, err := h.engine.Search(r.Context(), input.Query, input.Filters.Filters(), limit)
	if errors.Is(err, search.ErrEngineUnavailable) {
		respond.Error(w, http.StatusServiceUnavailable, "catalog is not loaded yet")
		return
	}
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "search failed")
		return
	}

	results := make([]Result, len(found))
	for i, c := range found {
		results[i] = Result{
			SKU:   c.SKU,
			Name:  c.Name,
			Brand: c.Brand,
			Price: c.Price.InexactFloat64(),
			Stock: c.Stock,
			Score: c.Score,
		}
	}
	respond.JSON(w, http.StatusOK, results)
}
