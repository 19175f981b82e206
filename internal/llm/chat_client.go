package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"paper-trade-bot-go/internal/config"
	"paper-trade-bot-go/internal/restclient"

	"go.uber.org/zap"
)

// Completer sends one system and user prompt pair to a model and returns the
// text it produced.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ChatClient talks to an OpenAI-compatible chat completions endpoint, such as
// DeepSeek's.
type ChatClient struct {
	rest        *restclient.Client
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

var _ Completer = (*ChatClient)(nil)

// NewChatClient creates a ChatClient from cfg.
func NewChatClient(cfg config.LLM, logger *zap.Logger) *ChatClient {
	rest := restclient.New(restclient.Options{
		BaseURL:        cfg.BaseURL,
		RateLimit:      cfg.RateLimit,
		RateLimitBurst: cfg.RateLimitBurst,
		Retries:        cfg.Retries,
		Timeout:        time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, logger)

	return &ChatClient{
		rest:        rest,
		apiKey:      cfg.ApiKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// ErrNoChoices is returned when a successful response carries no message.
var ErrNoChoices = errors.New("chat response has no choices")

// Complete implements Completer.
func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var result chatResponse
	req := c.rest.R().
		SetAuthToken(c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&result)

	start := time.Now()
	if _, err := c.rest.Do(ctx, http.MethodPost, "/v1/chat/completions", req); err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", ErrNoChoices
	}

	c.logger.Debug("Chat completion received",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("length", len(result.Choices[0].Message.Content)),
	)
	return result.Choices[0].Message.Content, nil
}
