package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fake chat-completion endpoint ---

type recordedRequest struct {
	Model          string   `json:"model"`
	MaxTokens      int      `json:"max_tokens"`
	Temperature    *float64 `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type fakeAPI struct {
	mu       sync.Mutex
	answer   string
	status   int
	requests []recordedRequest
}

func (f *fakeAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req recordedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		f.mu.Lock()
		f.requests = append(f.requests, req)
		answer, status := f.answer, f.status
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": answer},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}
}

func (f *fakeAPI) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, api *fakeAPI, cfg Config) *Client {
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL
	return NewClient(cfg, nil)
}

// --- Tests ---

func TestClientClassify(t *testing.T) {
	api := &fakeAPI{answer: `{
		"intent": "build_pc",
		"normalized_query": "игровой пк",
		"budget": "500 000",
		"filters": {"keywords": "игровой", "brand": ["ASUS"], "max_price": null},
		"needs_clarification": false
	}`}
	client := newTestClient(t, api, Config{})

	intent, err := client.Classify(context.Background(), "Собери игровой ПК за 500 000")
	require.NoError(t, err)

	assert.Equal(t, IntentBuildPC, intent.Kind)
	assert.Equal(t, "игровой пк", intent.NormalizedQuery)
	assert.Equal(t, "Собери игровой ПК за 500 000", intent.OriginalQuery)
	require.NotNil(t, intent.Budget)
	assert.True(t, intent.Budget.Equal(decimal.NewFromInt(500000)))
	assert.Equal(t, []string{"игровой"}, intent.Filters.Keywords)
	assert.Equal(t, []string{"ASUS"}, intent.Filters.Brand)
	assert.Nil(t, intent.Filters.MaxPrice)

	req := api.last()
	assert.Equal(t, defaultModel, req.Model)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, "json_object", req.ResponseFormat.Type)
	require.NotNil(t, req.Temperature, "classification must send its temperature")
	assert.InDelta(t, 0, *req.Temperature, 1e-6)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "Собери игровой ПК за 500 000", req.Messages[1].Content)
}

func TestClientClassifyErrors(t *testing.T) {
	t.Run("Not JSON", func(t *testing.T) {
		client := newTestClient(t, &fakeAPI{answer: "search please"}, Config{})
		_, err := client.Classify(context.Background(), "iphone")
		assert.ErrorContains(t, err, "decoding intent")
	})

	t.Run("Server error", func(t *testing.T) {
		client := newTestClient(t, &fakeAPI{status: http.StatusInternalServerError}, Config{})
		_, err := client.Classify(context.Background(), "iphone")
		assert.Error(t, err)
	})

	t.Run("Empty answer", func(t *testing.T) {
		client := newTestClient(t, &fakeAPI{answer: "  "}, Config{})
		_, err := client.Reply(context.Background(), "привет", nil)
		assert.ErrorIs(t, err, ErrEmptyCompletion)
	})
}

func TestClientRephrase(t *testing.T) {
	api := &fakeAPI{answer: "Вот что я нашёл: 1. iPhone 16, 450 000 ₸"}
	client := newTestClient(t, api, Config{Model: "test-model", MaxTokens: 99})

	history := make([]Turn, 12)
	for i := range history {
		history[i] = Turn{Role: RoleUser, Content: "q"}
		if i%2 == 1 {
			history[i] = Turn{Role: RoleAssistant, Content: "a"}
		}
	}

	got, err := client.Rephrase(context.Background(), "1. iPhone 16\n450 000 ₸", "Сборка: 500 000 ₸", history)
	require.NoError(t, err)
	assert.Equal(t, "Вот что я нашёл: 1. iPhone 16, 450 000 ₸", got)

	req := api.last()
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, 99, req.MaxTokens)
	assert.Nil(t, req.ResponseFormat)
	// system + last 8 turns + draft + instruction
	require.Len(t, req.Messages, 11)
	assert.Contains(t, req.Messages[0].Content, "Сборка: 500 000 ₸")
	assert.Equal(t, "assistant", req.Messages[9].Role)
	assert.Equal(t, "1. iPhone 16\n450 000 ₸", req.Messages[9].Content)
	assert.Equal(t, rephraseInstruction, req.Messages[10].Content)
}

func TestClientReply(t *testing.T) {
	api := &fakeAPI{answer: "Здравствуйте!"}
	client := newTestClient(t, api, Config{})

	got, err := client.Reply(context.Background(), "привет", []Turn{{Role: RoleAssistant, Content: "ранее"}})
	require.NoError(t, err)
	assert.Equal(t, "Здравствуйте!", got)

	req := api.last()
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "assistant", req.Messages[1].Role)
	assert.Equal(t, "user", req.Messages[2].Role)
	assert.Equal(t, "привет", req.Messages[2].Content)
}

func TestClientRateLimit(t *testing.T) {
	api := &fakeAPI{answer: "ok"}
	client := newTestClient(t, api, Config{RequestsPerMinute: 1, Burst: 1})

	_, err := client.Reply(context.Background(), "first", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Reply(ctx, "second", nil)
	assert.ErrorContains(t, err, "rate limiter")
}

func TestParseIntentKind(t *testing.T) {
	assert.Equal(t, IntentSearchProduct, ParseIntentKind(" Search_Product "))
	assert.Equal(t, IntentOrderBuild, ParseIntentKind("order_build"))
	assert.Equal(t, IntentOther, ParseIntentKind("unknown"))
	assert.Equal(t, IntentOther, ParseIntentKind(""))
}

func TestIntentBuildBudget(t *testing.T) {
	v := decimal.NewFromInt(300000)

	_, ok := Intent{}.BuildBudget()
	assert.False(t, ok)

	got, ok := Intent{Budget: &v}.BuildBudget()
	assert.True(t, ok)
	assert.True(t, got.Equal(v))

	in := Intent{}
	in.Filters.MaxPrice = &v
	got, ok = in.BuildBudget()
	assert.True(t, ok)
	assert.True(t, got.Equal(v))
}

func TestKeywordClassifier(t *testing.T) {
	testCases := []struct {
		name           string
		question       string
		expectedKind   IntentKind
		expectedBudget int64
		clarification  bool
	}{
		{name: "Empty", question: "  ", expectedKind: IntentOther},
		{name: "Greeting", question: "Привет!", expectedKind: IntentOther},
		{name: "Product search", question: "iPhone 16 Pro", expectedKind: IntentSearchProduct},
		{name: "Order", question: "Хочу оформить заказ", expectedKind: IntentOrderBuild},
		{name: "Build with grouped budget", question: "Собери ПК за 500 000", expectedKind: IntentBuildPC, expectedBudget: 500000},
		{name: "Build with short budget", question: "собери компьютер за 450к", expectedKind: IntentBuildPC, expectedBudget: 450000},
		{name: "Model numbers are not the budget", question: "собери пк с rtx 4060 за 600 тысяч", expectedKind: IntentBuildPC, expectedBudget: 600000},
		{name: "Build without budget", question: "Собери мне компьютер", expectedKind: IntentBuildPC, clarification: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			intent, err := KeywordClassifier{}.Classify(context.Background(), tc.question)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedKind, intent.Kind)
			assert.Equal(t, tc.question, intent.OriginalQuery)
			assert.Equal(t, tc.clarification, intent.NeedsClarification)
			if tc.clarification {
				assert.NotEmpty(t, intent.ClarificationPrompt)
			}
			if tc.expectedBudget > 0 {
				require.NotNil(t, intent.Budget)
				assert.True(t, intent.Budget.Equal(decimal.NewFromInt(tc.expectedBudget)), "budget %s", intent.Budget)
			} else {
				assert.Nil(t, intent.Budget)
			}
		})
	}

	t.Run("Search keywords come from the question", func(t *testing.T) {
		intent, err := KeywordClassifier{}.Classify(context.Background(), "iPhone 16 Pro")
		require.NoError(t, err)
		assert.Equal(t, "iphone 16 pro", intent.NormalizedQuery)
		assert.Equal(t, []string{"iphone", "16", "pro"}, intent.Filters.Keywords)
	})
}

func TestPassthrough(t *testing.T) {
	got, err := Passthrough{}.Rephrase(context.Background(), "draft", "ctx", nil)
	require.NoError(t, err)
	assert.Equal(t, "draft", got)

	got, err = Passthrough{}.Reply(context.Background(), "что?", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}
