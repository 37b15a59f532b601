package search

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Filters narrow a search. List fields are compared after normalization;
// an empty list imposes no constraint.
type Filters struct {
	Keywords []string
	Brand    []string
	Category []string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// FilterRequest is the wire form of Filters. Decoding never fails:
// values of the wrong shape are dropped, since filters are advisory.
type FilterRequest struct {
	Keywords StringList `json:"keywords"`
	Brand    StringList `json:"brand"`
	Category StringList `json:"category"`
	MinPrice Price      `json:"min_price"`
	MaxPrice Price      `json:"max_price"`
}

func (r FilterRequest) Filters() Filters {
	return Filters{
		Keywords: r.Keywords,
		Brand:    r.Brand,
		Category: r.Category,
		MinPrice: r.MinPrice.Ptr(),
		MaxPrice: r.MaxPrice.Ptr(),
	}
}

// StringList accepts a JSON array of strings or a single string.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	*l = nil

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if strings.TrimSpace(single) != "" {
			*l = StringList{single}
		}
		return nil
	}

	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			*l = append(*l, s)
		}
	}
	return nil
}

// Price accepts a JSON number or a numeric string. Anything else, and any
// non-positive amount, leaves the bound unset.
type Price struct {
	Value decimal.Decimal
	Set   bool
}

func (p *Price) UnmarshalJSON(data []byte) error {
	*p = Price{}

	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	}

	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsPositive() {
		return nil
	}
	p.Value, p.Set = d, true
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Set {
		return []byte("null"), nil
	}
	return []byte(p.Value.String()), nil
}

// Ptr returns the bound, or nil when unset.
func (p Price) Ptr() *decimal.Decimal {
	if !p.Set {
		return nil
	}
	v := p.Value
	return &v
}
