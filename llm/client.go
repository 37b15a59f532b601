package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the conversation history.
type Turn struct {
	Role    Role
	Content string
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxTokens caps every completion.
	MaxTokens int
	Timeout   time.Duration
	// RequestsPerMinute of zero disables client-side throttling.
	RequestsPerMinute int
	Burst             int
}

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 400
	defaultTimeout   = 30 * time.Second

	rephraseTemperature = 0.3
	replyTemperature    = 0.6
	// omitempty drops an exact zero from the request
	classifyTemperature = math.SmallestNonzeroFloat32

	// rephrasing only sees the tail of the conversation
	rephraseHistory = 8
)

// Client is a chat-completion backed classifier and writer.
type Client struct {
	api     *openai.Client
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), burst)
	}

	return &Client{
		api:     openai.NewClientWithConfig(apiCfg),
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
	}
}

// Rephrase rewrites a prepared answer without changing its data.
// buildContext describes the customer's saved build and may be empty.
func (c *Client) Rephrase(ctx context.Context, draft, buildContext string, history []Turn) (string, error) {
	if len(history) > rephraseHistory {
		history = history[len(history)-rephraseHistory:]
	}

	messages := []openai.ChatCompletionMessage{system(rephrasePrompt(buildContext))}
	messages = append(messages, turns(history)...)
	messages = append(messages,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: draft},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: rephraseInstruction},
	)

	return c.complete(ctx, messages, rephraseTemperature, false)
}

// Reply answers a question that needs no catalog data.
func (c *Client) Reply(ctx context.Context, question string, history []Turn) (string, error) {
	messages := []openai.ChatCompletionMessage{system(replyPrompt)}
	messages = append(messages, turns(history)...)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: question})

	return c.complete(ctx, messages, replyTemperature, false)
}

// Classify asks the model for the intent of a question.
func (c *Client) Classify(ctx context.Context, question string) (Intent, error) {
	content, err := c.complete(ctx, []openai.ChatCompletionMessage{
		system(classifyPrompt),
		{Role: openai.ChatMessageRoleUser, Content: question},
	}, classifyTemperature, true)
	if err != nil {
		return Intent{}, err
	}

	intent, err := DecodeIntent(content)
	if err != nil {
		return Intent{}, err
	}
	if intent.OriginalQuery == "" {
		intent.OriginalQuery = question
	}
	return intent, nil
}

func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessage, temperature float32, jsonMode bool) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: temperature,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	var content string
	if len(resp.Choices) > 0 {
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	c.logger.Debug("chat completion",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"duration", time.Since(start))

	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

func system(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: content}
}

func turns(history []Turn) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, t := range history {
		role := openai.ChatMessageRoleUser
		if t.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	return out
}
