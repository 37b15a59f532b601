package llm

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kulmaganbetov/overbot123/textmatch"
)

// Passthrough is the writer used when no model is configured: drafts are
// returned as they are and free questions get a fixed hint.
type Passthrough struct{}

const passthroughReply = "Я могу найти товар в каталоге, собрать ПК под ваш бюджет или оформить заказ на последнюю сборку. Уточните, пожалуйста, что вас интересует."

func (Passthrough) Rephrase(_ context.Context, draft, _ string, _ []Turn) (string, error) {
	return draft, nil
}

func (Passthrough) Reply(context.Context, string, []Turn) (string, error) {
	return passthroughReply, nil
}

// KeywordClassifier recognizes intents by word stems. It is the
// classifier used when no model is configured.
type KeywordClassifier struct{}

var (
	orderStems = []string{"заказ", "оформ", "order", "куплю сборку"}
	buildStems = []string{"собер", "собрат", "сборк", "пк", "компьютер", "build", "pc"}
	smallTalk  = []string{"привет", "здравств", "спасибо", "hello", "hi"}

	// 500 000, 500000, 500к or 500 тысяч
	amountRe = regexp.MustCompile(`(\d{1,3}(?: \d{3})+|\d+)(?: ?(к|k|тысяч|тыс)(?:\s|$))?`)
	thousand = decimal.NewFromInt(1000)
)

const budgetQuestion = "Какой бюджет на сборку? Напишите сумму в тенге, например «собери ПК за 500 000»."

func (KeywordClassifier) Classify(_ context.Context, question string) (Intent, error) {
	norm := textmatch.Normalize(question)
	intent := Intent{
		Kind:            IntentOther,
		OriginalQuery:   question,
		NormalizedQuery: norm,
	}
	if norm == "" {
		return intent, nil
	}

	switch {
	case containsAny(norm, orderStems):
		intent.Kind = IntentOrderBuild
	case containsWordStem(norm, buildStems):
		intent.Kind = IntentBuildPC
		if budget, ok := largestAmount(norm); ok {
			intent.Budget = &budget
		} else {
			intent.NeedsClarification = true
			intent.ClarificationPrompt = budgetQuestion
		}
	case containsWordStem(norm, smallTalk):
		intent.Kind = IntentOther
	default:
		intent.Kind = IntentSearchProduct
		intent.Filters.Keywords = strings.Fields(norm)
	}
	return intent, nil
}

func containsAny(s string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// containsWordStem matches stems at word starts, so "pc" does not fire on "rtx pcie".
func containsWordStem(s string, stems []string) bool {
	for _, w := range strings.Fields(s) {
		for _, stem := range stems {
			if w == stem || (len([]rune(stem)) > 2 && strings.HasPrefix(w, stem)) {
				return true
			}
		}
	}
	return false
}

func largestAmount(s string) (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for _, m := range amountRe.FindAllStringSubmatch(s, -1) {
		v, err := decimal.NewFromString(strings.ReplaceAll(m[1], " ", ""))
		if err != nil {
			continue
		}
		if m[2] != "" {
			v = v.Mul(thousand)
		}
		if v.IsPositive() && (!found || v.GreaterThan(best)) {
			best, found = v, true
		}
	}
	return best, found
}
