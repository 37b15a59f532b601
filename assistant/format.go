package assistant

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kulmaganbetov/overbot123/models"
	"github.com/kulmaganbetov/overbot123/search"
)

const currency = "₸"

var printer = message.NewPrinter(language.Russian)

// Money formats an amount with Russian digit grouping, e.g. "450 000 ₸".
// Grouping separators are plain spaces.
func Money(d decimal.Decimal) string {
	var s string
	if d.Equal(d.Truncate(0)) {
		s = printer.Sprintf("%d", d.IntPart())
	} else {
		s = printer.Sprintf("%.2f", d.InexactFloat64())
	}
	return foldSpaces(s) + " " + currency
}

func foldSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}

// draft is a prepared answer plus the fragments a rewrite must keep.
type draft struct {
	text     string
	facts    []string
	rephrase bool
}

func (d *draft) fact(s string) string {
	if s != "" {
		d.facts = append(d.facts, s)
	}
	return s
}

// preserved reports whether every fact survives in text. Whitespace
// variants are treated as equal.
func preserved(text string, facts []string) bool {
	text = foldSpaces(text)
	for _, f := range facts {
		if !strings.Contains(text, foldSpaces(f)) {
			return false
		}
	}
	return true
}

func slotTitle(s models.Slot) string {
	return strings.ToUpper(s.String())
}

func searchDraft(query string, found []search.Candidate) draft {
	if len(found) == 0 {
		return draft{text: fmt.Sprintf(
			"Я не нашёл точных совпадений по запросу «%s».\nПопробуйте уточнить, например: «iPhone 16 Pro 256GB чёрный».", query)}
	}

	d := draft{rephrase: true}
	var b strings.Builder
	fmt.Fprintf(&b, "Нашёл подходящие варианты по запросу «%s»:\n", query)
	for i, c := range found {
		stock := "?"
		if c.Stock != nil {
			stock = fmt.Sprint(*c.Stock)
		}
		sku := "-"
		if c.SKU != "" {
			sku = d.fact(c.SKU)
		}
		fmt.Fprintf(&b, "\n%d. %s\nЦена: %s | SKU: %s | В наличии: %s шт.\n",
			i+1, d.fact(c.Name), d.fact(Money(c.Price)), sku, stock)
	}
	b.WriteString("\nХотите, подберу по цвету, объёму памяти или бюджету?")
	d.text = b.String()
	return d
}

var (
	overBudget   = decimal.RequireFromString("1.1")
	underBudget  = decimal.RequireFromString("0.8")
	noPartsReply = "К сожалению, сейчас не удалось подобрать комплектующие под этот бюджет. Попробуйте изменить сумму или пожелания."
)

func buildDraft(build models.Build) draft {
	if build.Empty() {
		return draft{text: noPartsReply}
	}

	d := draft{rephrase: true}
	var b strings.Builder
	fmt.Fprintf(&b, "Собрал компьютер на бюджет %s:\n", d.fact(Money(build.Budget)))
	for _, s := range models.Slots {
		p, ok := build.Part(s)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n— **%s**: %s\nЦена: %s\n", slotTitle(s), d.fact(p.Name), d.fact(Money(p.Price)))
	}
	fmt.Fprintf(&b, "\n**Общая сумма:** %s\n", d.fact(Money(build.Total)))

	switch {
	case build.Total.GreaterThan(build.Budget.Mul(overBudget)):
		fmt.Fprintf(&b, "Сборка немного превышает бюджет (на %s).", d.fact(Money(build.Total.Sub(build.Budget))))
	case build.Total.LessThan(build.Budget.Mul(underBudget)):
		b.WriteString("Есть запас бюджета, можно улучшить видеокарту или процессор.")
	default:
		b.WriteString("Сборка укладывается в бюджет.")
	}
	if missing := len(models.Slots) - build.Filled(); missing > 0 {
		fmt.Fprintf(&b, "\nНе нашлось подходящих позиций для %d комплектующих, их можно подобрать отдельно.", missing)
	}

	d.text = b.String()
	return d
}

func orderDraft(build models.Build) draft {
	if build.Empty() {
		return draft{text: "У вас пока нет сохранённой сборки. Сначала соберите ПК, а потом я помогу оформить заказ."}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Вы хотите оформить заказ на последнюю сборку ПК стоимостью %s?\n\n", Money(build.Total))
	for _, s := range models.Slots {
		if p, ok := build.Part(s); ok {
			fmt.Fprintf(&b, "— **%s**: %s\n", slotTitle(s), p.Name)
		}
	}
	b.WriteString("\nПодтвердите заказ или уточните детали доставки и оплаты.")
	return draft{text: b.String()}
}

// buildContext describes the saved build for the rewriting step.
func buildContext(build models.Build) string {
	if build.Empty() {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "У покупателя уже есть сохранённая сборка ПК стоимостью %s.\nКомпоненты:\n", Money(build.Total))
	for _, s := range models.Slots {
		if p, ok := build.Part(s); ok {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", s, p.Name, Money(p.Price))
		}
	}
	return b.String()
}

var months = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

func dateReply(now time.Time) string {
	return fmt.Sprintf("Сегодня %d %s %d года, сейчас %02d:%02d.",
		now.Day(), months[now.Month()-1], now.Year(), now.Hour(), now.Minute())
}

// OrderSummary is the order confirmation text for a saved build.
func OrderSummary(build models.Build) string {
	return orderDraft(build).text
}
