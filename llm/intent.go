// Package llm talks to a chat-completion model: it classifies customer
// questions and rewrites prepared answers in a friendlier tone.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kulmaganbetov/overbot123/search"
)

// IntentKind is what the customer wants from a message.
type IntentKind string

const (
	IntentSearchProduct IntentKind = "search_product"
	IntentBuildPC       IntentKind = "build_pc"
	IntentOrderBuild    IntentKind = "order_build"
	IntentOther         IntentKind = "other"
)

// ParseIntentKind maps unknown kinds to IntentOther.
func ParseIntentKind(s string) IntentKind {
	switch k := IntentKind(strings.ToLower(strings.TrimSpace(s))); k {
	case IntentSearchProduct, IntentBuildPC, IntentOrderBuild:
		return k
	default:
		return IntentOther
	}
}

// Intent is a classified customer question.
type Intent struct {
	Kind                IntentKind
	NormalizedQuery     string
	OriginalQuery       string
	Budget              *decimal.Decimal
	Filters             search.Filters
	NeedsClarification  bool
	ClarificationPrompt string
}

// BuildBudget is the explicit budget, or the max price filter when the
// customer only gave an upper bound.
func (i Intent) BuildBudget() (decimal.Decimal, bool) {
	if i.Budget != nil && i.Budget.IsPositive() {
		return *i.Budget, true
	}
	if i.Filters.MaxPrice != nil && i.Filters.MaxPrice.IsPositive() {
		return *i.Filters.MaxPrice, true
	}
	return decimal.Zero, false
}

// IntentResult is the JSON document the model answers a classification with.
type IntentResult struct {
	Intent              string               `json:"intent"`
	NormalizedQuery     string               `json:"normalized_query"`
	OriginalQuery       string               `json:"original_query"`
	Budget              search.Price         `json:"budget"`
	Filters             search.FilterRequest `json:"filters"`
	NeedsClarification  bool                 `json:"needs_clarification"`
	ClarificationPrompt string               `json:"clarification_prompt"`
}

// DecodeIntent parses a classification answer. Loose values inside
// filters are tolerated; a document that is not a JSON object is not.
func DecodeIntent(raw string) (Intent, error) {
	var res IntentResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &res); err != nil {
		return Intent{}, fmt.Errorf("decoding intent: %w", err)
	}
	return res.ToIntent(), nil
}

// ToIntent converts the raw answer, mapping unknown kinds to IntentOther.
func (r IntentResult) ToIntent() Intent {
	return Intent{
		Kind:                ParseIntentKind(r.Intent),
		NormalizedQuery:     strings.TrimSpace(r.NormalizedQuery),
		OriginalQuery:       strings.TrimSpace(r.OriginalQuery),
		Budget:              r.Budget.Ptr(),
		Filters:             r.Filters.Filters(),
		NeedsClarification:  r.NeedsClarification,
		ClarificationPrompt: strings.TrimSpace(r.ClarificationPrompt),
	}
}
