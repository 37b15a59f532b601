package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/kulmaganbetov/overbot123/models"
)

// Source loads the full catalog written by the ingestion job.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]models.Product, error)
}

// ProductLister is the read side of the products table.
type ProductLister interface {
	GetAllProducts(ctx context.Context) ([]models.Product, error)
}

// DBSource reads the catalog from the products table.
type DBSource struct {
	repo ProductLister
}

func NewDBSource(repo ProductLister) *DBSource {
	return &DBSource{repo: repo}
}

func (s *DBSource) Name() string { return "database" }

func (s *DBSource) Load(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.GetAllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading products table: %w", err)
	}
	return products, nil
}

// FileSource reads a dealer JSON export from disk.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file:" + s.path }

func (s *FileSource) Path() string { return s.path }

func (s *FileSource) Load(ctx context.Context) ([]models.Product, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return DecodeDealerJSON(bytes.NewReader(data))
}

// dealerRecord mirrors one element of the dealer export. Numeric columns
// arrive either as JSON numbers or as strings with thousand separators.
type dealerRecord struct {
	SKU       string      `json:"sku"`
	KaspiCode string      `json:"kaspiCode"`
	Name      string      `json:"name"`
	Supplier  string      `json:"supplier"`
	Stock     *flexNumber `json:"stock"`
	Price     *flexNumber `json:"price"`
	Retail    *flexNumber `json:"retail"`
	Article   string      `json:"article"`
	Brand     string      `json:"brand"`
	Credit    *flexNumber `json:"credit"`
	Warranty  string      `json:"warranty"`
	Category  string      `json:"category"`
}

// DecodeDealerJSON decodes a dealer export. Records without a name are skipped.
func DecodeDealerJSON(r io.Reader) ([]models.Product, error) {
	var records []dealerRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding dealer export: %w", err)
	}

	products := make([]models.Product, 0, len(records))
	for _, rec := range records {
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			continue
		}
		p := models.Product{
			SKU:       strings.TrimSpace(rec.SKU),
			KaspiCode: strings.TrimSpace(rec.KaspiCode),
			Name:      name,
			Supplier:  strings.TrimSpace(rec.Supplier),
			Article:   strings.TrimSpace(rec.Article),
			Brand:     strings.TrimSpace(rec.Brand),
			Category:  strings.TrimSpace(rec.Category),
			Warranty:  strings.TrimSpace(rec.Warranty),
			Price:     rec.Price.decimalOrZero(),
			Retail:    rec.Retail.decimalOrZero(),
		}
		if rec.Credit.valid() {
			p.Credit = decimal.NewNullDecimal(rec.Credit.value)
		}
		if rec.Stock.valid() {
			stock := int(rec.Stock.value.IntPart())
			p.Stock = &stock
		}
		products = append(products, p)
	}
	return products, nil
}

type flexNumber struct {
	value decimal.Decimal
	ok    bool
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, s)
	}
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		// unparsable cells count as missing
		return nil
	}
	n.value, n.ok = d, true
	return nil
}

func (n *flexNumber) valid() bool {
	return n != nil && n.ok
}

func (n *flexNumber) decimalOrZero() decimal.Decimal {
	if !n.valid() {
		return decimal.Zero
	}
	return n.value
}
