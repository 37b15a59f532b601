package models

import (
	"github.com/shopspring/decimal"
)

// Product represents an item of the dealer catalog snapshot.
// Credit holds the credit/installment price, which takes precedence over
// the list price wherever a single price is needed.
type Product struct {
	ID        uint                `gorm:"primaryKey" json:"-"`
	SKU       string              `gorm:"uniqueIndex;not null" json:"sku"`
	KaspiCode string              `json:"kaspiCode,omitempty"`
	Name      string              `gorm:"not null" json:"name"`
	Brand     string              `gorm:"index" json:"brand"`
	Category  string              `gorm:"index" json:"category"`
	Article   string              `json:"article"`
	Supplier  string              `json:"supplier,omitempty"`
	Price     decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"price"`
	Retail    decimal.Decimal     `gorm:"type:decimal(12,2)" json:"retail"`
	Credit    decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"credit"`
	Stock     *int                `json:"stock,omitempty"`
	Warranty  string              `json:"warranty,omitempty"`
}

func (p *Product) TableName() string {
	return "products"
}

// EffectivePrice returns the credit price when the dealer set one, the list price otherwise.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.Credit.Valid && !p.Credit.Decimal.IsZero() {
		return p.Credit.Decimal
	}
	return p.Price
}

// Presentable reports whether the product may be shown to a customer.
func (p *Product) Presentable() bool {
	return p.Summary().Presentable()
}

// Summary reduces the product to the fields exposed by search and builds.
func (p *Product) Summary() ProductSummary {
	s := ProductSummary{
		SKU:   p.SKU,
		Name:  p.Name,
		Brand: p.Brand,
		Price: p.EffectivePrice(),
	}
	if p.Stock != nil {
		stock := *p.Stock
		s.Stock = &stock
	}
	return s
}

// ProductSummary is the presentation-safe subset of a Product.
type ProductSummary struct {
	SKU   string          `json:"sku"`
	Name  string          `json:"name"`
	Brand string          `json:"brand"`
	Price decimal.Decimal `json:"price"`
	Stock *int            `json:"stock,omitempty"`
}

// Presentable requires a name, a positive price and a non-negative stock when stock is known.
func (s ProductSummary) Presentable() bool {
	if s.Name == "" || !s.Price.IsPositive() {
		return false
	}
	return s.Stock == nil || *s.Stock >= 0
}

// Equal compares summaries by value.
func (s ProductSummary) Equal(o ProductSummary) bool {
	if s.SKU != o.SKU || s.Name != o.Name || s.Brand != o.Brand || !s.Price.Equal(o.Price) {
		return false
	}
	if (s.Stock == nil) != (o.Stock == nil) {
		return false
	}
	return s.Stock == nil || *s.Stock == *o.Stock
}

// ProductFilters narrow a catalog listing. Zero values impose no constraint.
type ProductFilters struct {
	Category      string
	PriceLessThan *decimal.Decimal
}
