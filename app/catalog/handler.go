package catalog

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kulmaganbetov/overbot123/app/respond"
	"github.com/kulmaganbetov/overbot123/inventory"
	"github.com/kulmaganbetov/overbot123/models"
)

type Response struct {
	Total    int       `json:"total"`
	Products []Product `json:"products"`
}

type Product struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Stock    *int    `json:"stock,omitempty"`
}

type ProductDetail struct {
	Product
	KaspiCode string   `json:"kaspiCode,omitempty"`
	Article   string   `json:"article,omitempty"`
	ListPrice float64  `json:"list_price"`
	Retail    float64  `json:"retail,omitempty"`
	Credit    *float64 `json:"credit,omitempty"`
	Warranty  string   `json:"warranty,omitempty"`
}

type ProductProvider interface {
	GetFilteredProducts(ctx context.Context, offset, limit int, filters models.ProductFilters) ([]models.Product, int, error)
	GetBySKU(ctx context.Context, sku string) (*models.Product, error)
}

type CatalogHandler struct {
	repo ProductProvider
}

func NewCatalogHandler(r ProductProvider) *CatalogHandler {
	return &CatalogHandler{
		repo: r,
	}
}

func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	// Parse pagination query params
	offset := 0
	limit := 10

	if oStr := r.URL.Query().Get("offset"); oStr != "" {
		if o, err := strconv.Atoi(oStr); err == nil && o >= 0 {
			offset = o
		}
	}

	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if l, err := strconv.Atoi(lStr); err == nil {
			limit = min(max(l, 1), 100)
		}
	}

	// Parse filters
	filters := models.ProductFilters{
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
	}
	if priceStr := r.URL.Query().Get("price_lt"); priceStr != "" {
		if val, err := decimal.NewFromString(priceStr); err == nil {
			filters.PriceLessThan = &val
		}
	}

	res, total, err := h.repo.GetFilteredProducts(r.Context(), offset, limit, filters)
	if errors.Is(err, inventory.ErrNoSnapshot) {
		respond.Error(w, http.StatusServiceUnavailable, "catalog is not loaded yet")
		return
	}
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to get products")
		return
	}

	products := make([]Product, len(res))
	for i := range res {
		products[i] = toProduct(&res[i])
	}

	respond.JSON(w, http.StatusOK, Response{
		Total:    total,
		Products: products,
	})
}

func (h *CatalogHandler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	sku := r.PathValue("sku")

	product, err := h.repo.GetBySKU(r.Context(), sku)
	switch {
	case errors.Is(err, models.ErrProductNotFound):
		respond.Error(w, http.StatusNotFound, "Product not found")
		return
	case errors.Is(err, inventory.ErrNoSnapshot):
		respond.Error(w, http.StatusServiceUnavailable, "catalog is not loaded yet")
		return
	case err != nil:
		respond.Error(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	detail := ProductDetail{
		Product:   toProduct(product),
		KaspiCode: product.KaspiCode,
		Article:   product.Article,
		ListPrice: product.Price.InexactFloat64(),
		Retail:    product.Retail.InexactFloat64(),
		Warranty:  product.Warranty,
	}
	if product.Credit.Valid {
		credit := product.Credit.Decimal.InexactFloat64()
		detail.Credit = &credit
	}

	respond.JSON(w, http.StatusOK, detail)
}

// toProduct exposes the effective price, the one customers pay.
func toProduct(p *models.Product) Product {
	return Product{
		SKU:      p.SKU,
		Name:     p.Name,
		Brand:    p.Brand,
		Category: p.Category,
		Price:    p.EffectivePrice().InexactFloat64(),
		Stock:    p.Stock,
	}
}
