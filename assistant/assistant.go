// Package assistant answers customer chat messages using the catalog
// search and the build assembler.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/kulmaganbetov/overbot123/assembly"
	"github.com/kulmaganbetov/overbot123/llm"
	"github.com/kulmaganbetov/overbot123/models"
	"github.com/kulmaganbetov/overbot123/search"
)

// ErrEmptyQuestion is returned for a blank message.
var ErrEmptyQuestion = errors.New("empty question")

type Classifier interface {
	Classify(ctx context.Context, question string) (llm.Intent, error)
}

// Writer polishes prepared answers and handles free conversation.
type Writer interface {
	Rephrase(ctx context.Context, draft, buildContext string, history []llm.Turn) (string, error)
	Reply(ctx context.Context, question string, history []llm.Turn) (string, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, filters search.Filters, limit int) ([]search.Candidate, error)
}

type Builder interface {
	Assemble(ctx context.Context, sessionID string, req assembly.Request) (models.Build, error)
	Current(ctx context.Context, sessionID string) models.Build
}

type History interface {
	Append(ctx context.Context, sessionID, question, answer string) error
	Recent(ctx context.Context, sessionID string, limit int) ([]models.Message, error)
}

const (
	// how many past messages the writer sees
	historyLimit = 20
	// how many products a search answer lists
	answerResults = 5

	unavailableReply = "Каталог сейчас обновляется, поэтому я не могу проверить наличие. Попробуйте, пожалуйста, через пару минут."
	budgetReply      = "Какой бюджет на сборку? Напишите сумму в тенге, например «собери ПК за 500 000»."
	fallbackReply    = "Извините, не получилось ответить. Попробуйте переформулировать вопрос."
)

var dateQuestion = regexp.MustCompile(`(?i)(дата|время|число|сегодня|сейчас)`)

// Reply is the answer to one customer message.
type Reply struct {
	Text   string
	Intent llm.IntentKind
}

type Assistant struct {
	classifier Classifier
	writer     Writer
	searcher   Searcher
	builder    Builder
	history    History
	logger     *slog.Logger
	now        func() time.Time
}

// kazakhstanTime is UTC+5, the single time zone of Kazakhstan.
var kazakhstanTime = time.FixedZone("KZT", 5*60*60)

func New(classifier Classifier, writer Writer, searcher Searcher, builder Builder, history History, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		classifier: classifier,
		writer:     writer,
		searcher:   searcher,
		builder:    builder,
		history:    history,
		logger:     logger,
		now:        func() time.Time { return time.Now().In(kazakhstanTime) },
	}
}

// Answer handles one message of a session and records the exchange.
func (a *Assistant) Answer(ctx context.Context, sessionID, question string) (Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Reply{}, ErrEmptyQuestion
	}

	intent, err := a.classifier.Classify(ctx, question)
	if err != nil {
		a.logger.Warn("intent classification failed", "session", sessionID, "error", err)
		intent = llm.Intent{Kind: llm.IntentOther, OriginalQuery: question}
	}
	a.logger.Info("question received", "session", sessionID, "intent", intent.Kind)

	history := a.recent(ctx, sessionID)

	text, err := a.respond(ctx, sessionID, question, intent, history)
	if err != nil {
		return Reply{}, err
	}

	if err := a.history.Append(ctx, sessionID, question, text); err != nil {
		a.logger.Error("failed to store chat exchange", "session", sessionID, "error", err)
	}
	return Reply{Text: text, Intent: intent.Kind}, nil
}

func (a *Assistant) respond(ctx context.Context, sessionID, question string, intent llm.Intent, history []llm.Turn) (string, error) {
	if intent.NeedsClarification && intent.ClarificationPrompt != "" {
		return intent.ClarificationPrompt, nil
	}

	var d draft
	switch intent.Kind {
	case llm.IntentSearchProduct:
		var err error
		if d, err = a.searchProducts(ctx, question, intent); err != nil {
			return "", err
		}
	case llm.IntentBuildPC:
		var err error
		if d, err = a.assemble(ctx, sessionID, intent); err != nil {
			return "", err
		}
	case llm.IntentOrderBuild:
		d = orderDraft(a.builder.Current(ctx, sessionID))
	default:
		if dateQuestion.MatchString(question) {
			return dateReply(a.now()), nil
		}
		return a.reply(ctx, question, history), nil
	}

	if !d.rephrase {
		return d.text, nil
	}
	return a.polish(ctx, sessionID, d, history), nil
}

func (a *Assistant) searchProducts(ctx context.Context, question string, intent llm.Intent) (draft, error) {
	base := firstNonEmpty(intent.NormalizedQuery, intent.OriginalQuery, question)
	query := strings.ToLower(strings.TrimSpace(base + " " + strings.Join(intent.Filters.Keywords, " ")))

	found, err := a.searcher.Search(ctx, query, intent.Filters, search.DefaultLimit)
	if errors.Is(err, search.ErrEngineUnavailable) {
		a.logger.Warn("search engine unavailable", "error", err)
		return draft{text: unavailableReply}, nil
	}
	if err != nil {
		return draft{}, err
	}

	return searchDraft(base, search.Relevant(found, intent.Filters.Keywords, answerResults)), nil
}

func (a *Assistant) assemble(ctx context.Context, sessionID string, intent llm.Intent) (draft, error) {
	budget, ok := intent.BuildBudget()
	if !ok {
		return draft{text: budgetReply}, nil
	}

	build, err := a.builder.Assemble(ctx, sessionID, assembly.Request{
		Budget:   budget,
		Keywords: intent.Filters.Keywords,
		Brands:   intent.Filters.Brand,
	})
	if errors.Is(err, assembly.ErrInvalidBudget) {
		return draft{text: budgetReply}, nil
	}
	if err != nil {
		return draft{}, err
	}
	return buildDraft(build), nil
}

// polish lets the writer restyle a data-bearing draft and keeps the draft
// whenever the rewrite drops any fact.
func (a *Assistant) polish(ctx context.Context, sessionID string, d draft, history []llm.Turn) string {
	rewritten, err := a.writer.Rephrase(ctx, d.text, buildContext(a.builder.Current(ctx, sessionID)), history)
	if err != nil {
		a.logger.Warn("rephrasing failed, using draft", "error", err)
		return d.text
	}
	if !preserved(rewritten, d.facts) {
		a.logger.Warn("rephrased answer changed catalog data, using draft", "session", sessionID)
		return d.text
	}
	return rewritten
}

func (a *Assistant) reply(ctx context.Context, question string, history []llm.Turn) string {
	text, err := a.writer.Reply(ctx, question, history)
	if err != nil || strings.TrimSpace(text) == "" {
		a.logger.Warn("free reply failed", "error", err)
		return fallbackReply
	}
	return text
}

func (a *Assistant) recent(ctx context.Context, sessionID string) []llm.Turn {
	messages, err := a.history.Recent(ctx, sessionID, historyLimit)
	if err != nil {
		a.logger.Warn("chat history unavailable", "session", sessionID, "error", err)
		return nil
	}
	turns := make([]llm.Turn, len(messages))
	for i, m := range messages {
		turns[i] = llm.Turn{Role: llm.Role(m.Role), Content: m.Content}
	}
	return turns
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
