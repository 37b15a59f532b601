package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kulmaganbetov/overbot123/app/build"
	"github.com/kulmaganbetov/overbot123/app/catalog"
	"github.com/kulmaganbetov/overbot123/app/categories"
	"github.com/kulmaganbetov/overbot123/app/chat"
	searchapi "github.com/kulmaganbetov/overbot123/app/search"
	"github.com/kulmaganbetov/overbot123/assembly"
	"github.com/kulmaganbetov/overbot123/assistant"
	"github.com/kulmaganbetov/overbot123/inventory"
	"github.com/kulmaganbetov/overbot123/llm"
	"github.com/kulmaganbetov/overbot123/models"
	"github.com/kulmaganbetov/overbot123/search"
	"github.com/kulmaganbetov/overbot123/session"
)

// --- Fake History ---

type memoryHistory struct {
	mu       sync.Mutex
	messages map[string][]models.Message
}

func (h *memoryHistory) Append(_ context.Context, sessionID, question, answer string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages[sessionID] = append(h.messages[sessionID],
		models.Message{SessionID: sessionID, Role: models.RoleUser, Content: question},
		models.Message{SessionID: sessionID, Role: models.RoleAssistant, Content: answer},
	)
	return nil
}

func (h *memoryHistory) Recent(_ context.Context, sessionID string, limit int) ([]models.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	all := h.messages[sessionID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]models.Message(nil), all...), nil
}

// --- Helpers ---

func newTestServer(t *testing.T, loaded bool) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := inventory.NewStore()
	if loaded {
		store.Swap(inventory.NewSnapshot("test", []models.Product{
			{SKU: "CPU-1", Name: "Процессор Intel Core i5-12400F", Brand: "Intel", Category: "Процессоры", Price: decimal.NewFromInt(95000)},
			{SKU: "GPU-1", Name: "Видеокарта ASUS RTX 4060", Brand: "ASUS", Category: "Видеокарты", Price: decimal.NewFromInt(170000)},
			{SKU: "PH-1", Name: "Смартфон Apple iPhone 16", Brand: "Apple", Category: "Смартфоны", Price: decimal.NewFromInt(450000)},
		}))
	}

	engine := search.NewEngine(store, logger)
	assembler := assembly.New(engine, assembly.NewMemoryStore(), assembly.Options{}, logger)
	history := &memoryHistory{messages: map[string][]models.Message{}}
	bot := assistant.New(llm.KeywordClassifier{}, llm.Passthrough{}, engine, assembler, history, logger)
	products := inventory.NewCatalog(store, assembly.DefaultLabels())

	return New(Config{AllowedOrigins: []string{"http://example.com"}}, Handlers{
		Catalog:    catalog.NewCatalogHandler(products),
		Categories: categories.NewCategoryHandler(products),
		Search:     searchapi.NewSearchHandler(engine),
		Build:      build.NewBuildHandler(assembler),
		Chat:       chat.NewChatHandler(bot, history, logger),
	}, logger)
}

func do(t *testing.T, h http.Handler, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

// --- Tests ---

func TestHealthz(t *testing.T) {
	rec := do(t, newTestServer(t, false).Handler(), "GET", "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCatalogRoutes(t *testing.T) {
	h := newTestServer(t, true).Handler()

	t.Run("List", func(t *testing.T) {
		rec := do(t, h, "GET", "/catalog?category="+url.QueryEscape("смартфоны"), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp catalog.Response
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, 1, resp.Total)
		assert.Equal(t, "PH-1", resp.Products[0].SKU)
	})

	t.Run("Product by SKU", func(t *testing.T) {
		rec := do(t, h, "GET", "/catalog/GPU-1", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "RTX 4060")
	})

	t.Run("Unknown SKU", func(t *testing.T) {
		rec := do(t, h, "GET", "/catalog/NOPE", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Product not found"}`, rec.Body.String())
	})

	t.Run("Categories", func(t *testing.T) {
		rec := do(t, h, "GET", "/categories", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Видеокарты")
	})
}

func TestSearchRoute(t *testing.T) {
	t.Run("Finds products", func(t *testing.T) {
		rec := do(t, newTestServer(t, true).Handler(), "POST", "/api/search", `{"query":"iphone"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var results []searchapi.Result
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&results))
		require.Len(t, results, 1)
		assert.Equal(t, "PH-1", results[0].SKU)
	})

	t.Run("No catalog loaded", func(t *testing.T) {
		rec := do(t, newTestServer(t, false).Handler(), "POST", "/api/search", `{"query":"iphone"}`, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestBuildFlowKeepsSession(t *testing.T) {
	h := newTestServer(t, true).Handler()

	rec := do(t, h, "POST", "/api/build", `{"budget":500000}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)

	var assembled build.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&assembled))
	assert.Equal(t, "CPU-1", assembled.Parts["cpu"].SKU)
	assert.Equal(t, "GPU-1", assembled.Parts["gpu"].SKU)
	assert.Equal(t, 265000.0, assembled.Total)

	rec = do(t, h, "GET", "/api/build", "", cookie)
	var current build.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&current))
	assert.Equal(t, assembled, current)

	rec = do(t, h, "GET", "/api/order", "", cookie)
	var order build.OrderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&order))
	assert.True(t, order.Ready)

	// another visitor has no build
	rec = do(t, h, "GET", "/api/order", "", nil)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&order))
	assert.False(t, order.Ready)
}

func TestChatFlow(t *testing.T) {
	h := newTestServer(t, true).Handler()

	rec := do(t, h, "POST", "/api/chat", `{"question":"собери ПК за 500 000"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)

	var reply chat.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reply))
	assert.Equal(t, string(llm.IntentBuildPC), reply.Intent)
	assert.Contains(t, reply.Answer, "265 000 ₸")

	rec = do(t, h, "POST", "/api/chat", `{"question":"оформи заказ"}`, cookie)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reply))
	assert.Equal(t, string(llm.IntentOrderBuild), reply.Intent)
	assert.Contains(t, reply.Answer, "Intel Core i5-12400F")

	rec = do(t, h, "GET", "/api/chat/history", "", cookie)
	var history chat.HistoryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "собери ПК за 500 000", history.Messages[0].User)

	rec = do(t, h, "POST", "/api/chat", `{"question":""}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, false).Handler()
	req := httptest.NewRequest("OPTIONS", "/api/chat", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := newTestServer(t, false)

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, srv.Start())
}
