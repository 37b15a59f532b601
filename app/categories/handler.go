package categories

import (
	"context"
	"errors"
	"net/http"

	"github.com/kulmaganbetov/overbot123/app/respond"
	"github.com/kulmaganbetov/overbot123/inventory"
	"github.com/kulmaganbetov/overbot123/models"
)

type CategoryResponse struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Slot  string `json:"slot,omitempty"`
}

type CategoryProvider interface {
	GetAllCategories(ctx context.Context) ([]models.Category, error)
}

type CategoryHandler struct {
	repo CategoryProvider
}

func NewCategoryHandler(r CategoryProvider) *CategoryHandler {
	return &CategoryHandler{repo: r}
}

func (h *CategoryHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.GetAllCategories(r.Context())
	if errors.Is(err, inventory.ErrNoSnapshot) {
		respond.Error(w, http.StatusServiceUnavailable, "catalog is not loaded yet")
		return
	}
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to fetch categories")
		return
	}

	response := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		response[i] = CategoryResponse{
			Name:  c.Name,
			Count: c.Count,
			Slot:  c.Slot,
		}
	}

	respond.JSON(w, http.StatusOK, response)
}
