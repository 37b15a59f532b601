package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kulmaganbetov/overbot123/app/respond"
	"github.com/kulmaganbetov/overbot123/assistant"
	"github.com/kulmaganbetov/overbot123/models"
	"github.com/kulmaganbetov/overbot123/session"
)

type Request struct {
	Question string `json:"question"`
}

type Response struct {
	Answer string `json:"answer"`
	Intent string `json:"intent"`
}

// Exchange is one question with the answer that followed it.
type Exchange struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
}

type HistoryResponse struct {
	Messages []Exchange `json:"messages"`
}

type Answerer interface {
	Answer(ctx context.Context, sessionID, question string) (assistant.Reply, error)
}

type Transcript interface {
	Recent(ctx context.Context, sessionID string, limit int) ([]models.Message, error)
}

type ChatHandler struct {
	assistant  Answerer
	transcript Transcript
	logger     *slog.Logger
}

func NewChatHandler(a Answerer, t Transcript, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{assistant: a, transcript: t, logger: logger}
}

func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusBadRequest, "missing session")
		return
	}

	var input Request
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	reply, err := h.assistant.Answer(r.Context(), sessionID, input.Question)
	if errors.Is(err, assistant.ErrEmptyQuestion) {
		respond.Error(w, http.StatusBadRequest, "Пустой запрос")
		return
	}
	if err != nil {
		h.logger.Error("chat answer failed", "session", sessionID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "Ошибка сервера")
		return
	}

	respond.JSON(w, http.StatusOK, Response{Answer: reply.Text, Intent: string(reply.Intent)})
}

// HandleHistory returns the whole transcript of the session as
// question/answer pairs.
func (h *ChatHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusBadRequest, "missing session")
		return
	}

	messages, err := h.transcript.Recent(r.Context(), sessionID, 0)
	if err != nil {
		h.logger.Error("chat history failed", "session", sessionID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	respond.JSON(w, http.StatusOK, HistoryResponse{Messages: pair(messages)})
}

// pair folds a transcript into exchanges. An assistant message with no
// question before it gets an empty User, and a trailing question an
// empty Bot.
func pair(messages []models.Message) []Exchange {
	out := []Exchange{}
	for _, m := range messages {
		switch m.Role {
		case models.RoleUser:
			out = append(out, Exchange{User: m.Content})
		case models.RoleAssistant:
			if n := len(out); n > 0 && out[n-1].Bot == "" {
				out[n-1].Bot = m.Content
				continue
			}
			out = append(out, Exchange{Bot: m.Content})
		}
	}
	return out
}
