package build

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kulmaganbetov/overbot123/app/respond"
	"github.com/kulmaganbetov/overbot123/assembly"
	"github.com/kulmaganbetov/overbot123/assistant"
	"github.com/kulmaganbetov/overbot123/models"
	"github.com/kulmaganbetov/overbot123/search"
	"github.com/kulmaganbetov/overbot123/session"
)

type Request struct {
	Budget  search.Price         `json:"budget"`
	Filters search.FilterRequest `json:"filters"`
}

type Part struct {
	SKU   string  `json:"sku"`
	Name  string  `json:"name"`
	Brand string  `json:"brand"`
	Price float64 `json:"price"`
	Stock *int    `json:"stock,omitempty"`
}

type Response struct {
	Budget  float64         `json:"budget"`
	Total   float64         `json:"total"`
	Parts   map[string]Part `json:"parts"`
	Missing []string        `json:"missing"`
}

type OrderResponse struct {
	Ready   bool    `json:"ready"`
	Total   float64 `json:"total"`
	Summary string  `json:"summary"`
}

type Builder interface {
	Assemble(ctx context.Context, sessionID string, req assembly.Request) (models.Build, error)
	Current(ctx context.Context, sessionID string) models.Build
}

type BuildHandler struct {
	builder Builder
}

func NewBuildHandler(b Builder) *BuildHandler {
	return &BuildHandler{builder: b}
}

// HandleAssemble assembles a build for the budget and makes it the
// session's current build. Without a budget the max price filter is used.
func (h *BuildHandler) HandleAssemble(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusBadRequest, "missing session")
		return
	}

	var input Request
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	filters := input.Filters.Filters()
	budget := input.Budget.Ptr()
	if budget == nil {
		budget = filters.MaxPrice
	}
	if budget == nil {
		respond.Error(w, http.StatusBadRequest, assembly.ErrInvalidBudget.Error())
		return
	}

	b, err := h.builder.Assemble(r.Context(), sessionID, assembly.Request{
		Budget:   *budget,
		Keywords: filters.Keywords,
		Brands:   filters.Brand,
	})
	if errors.Is(err, assembly.ErrInvalidBudget) {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to assemble build")
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(b))
}

func (h *BuildHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusBadRequest, "missing session")
		return
	}
	respond.JSON(w, http.StatusOK, toResponse(h.builder.Current(r.Context(), sessionID)))
}

// HandleOrder summarizes the current build for ordering. It never reassembles.
func (h *BuildHandler) HandleOrder(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusBadRequest, "missing session")
		return
	}

	b := h.builder.Current(r.Context(), sessionID)
	respond.JSON(w, http.StatusOK, OrderResponse{
		Ready:   !b.Empty(),
		Total:   b.Total.InexactFloat64(),
		Summary: assistant.OrderSummary(b),
	})
}

func toResponse(b models.Build) Response {
	resp := Response{
		Budget:  b.Budget.InexactFloat64(),
		Total:   b.Total.InexactFloat64(),
		Parts:   make(map[string]Part),
		Missing: []string{},
	}
	for _, s := range models.Slots {
		p, ok := b.Part(s)
		if !ok {
			resp.Missing = append(resp.Missing, s.String())
			continue
		}
		resp.Parts[s.String()] = Part{
			SKU:   p.SKU,
			Name:  p.Name,
			Brand: p.Brand,
			Price: p.Price.InexactFloat64(),
			Stock: p.Stock,
		}
	}
	return resp
}
