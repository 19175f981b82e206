package llm

import (
	"context"
	"fmt"
	"time"

	"paper-trade-bot-go/internal/config"
	"paper-trade-bot-go/internal/marketdata"
	"paper-trade-bot-go/internal/portfolio"

	"go.uber.org/zap"
)

// Classifier asks a model to classify every instrument of a day's snapshot.
// Every call is recorded in the audit log, failed ones included.
type Classifier struct {
	completer    Completer
	model        string
	systemPrompt string
	audit        *zap.Logger
	logger       *zap.Logger
}

// NewClassifier creates a Classifier. A nil audit logger disables the audit
// log.
func NewClassifier(completer Completer, model, systemPrompt string, audit, logger *zap.Logger) *Classifier {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if audit == nil {
		audit = zap.NewNop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		completer:    completer,
		model:        model,
		systemPrompt: systemPrompt,
		audit:        audit,
		logger:       logger,
	}
}

// NewCompleter returns the Completer for cfg.Provider.
func NewCompleter(ctx context.Context, cfg config.LLM, logger *zap.Logger) (Completer, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiClient(ctx, cfg, logger)
	case "deepseek", "openai":
		return NewChatClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// Classify returns the raw model text for day. The text is untrusted and must
// go through signals.ParseRawSignals.
func (c *Classifier) Classify(ctx context.Context, day time.Time, snapshot marketdata.Snapshot, positions []portfolio.Position) (string, error) {
	prompt, err := BuildPrompt(day, snapshot, positions)
	if err != nil {
		return "", err
	}

	c.logger.Info("Requesting signals from model",
		zap.String("model", c.model),
		zap.String("date", day.Format(marketdata.DateLayout)),
		zap.Int("symbols", len(snapshot)),
	)
	text, err := c.completer.Complete(ctx, c.systemPrompt, prompt)

	fields := []zap.Field{
		zap.Any("request", map[string]string{
			"model":         c.model,
			"system_prompt": c.systemPrompt,
			"user_prompt":   prompt,
		}),
		zap.String("response", text),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	c.audit.Info("model call", fields...)

	if err != nil {
		return "", fmt.Errorf("classification failed: %w", err)
	}
	return text, nil
}
