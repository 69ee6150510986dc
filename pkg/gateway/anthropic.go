package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
)

// anthropicClient implements Client against the Anthropic API.
type anthropicClient struct {
	log            *slog.Logger
	client         anthropic.Client
	model          anthropic.Model
	maxTokens      int64
	requestTimeout time.Duration
	maxRetries     uint64
	initialBackoff time.Duration
}

func newAnthropicClient(cfg Config) *anthropicClient {
	return &anthropicClient{
		log:            cfg.Logger,
		client:         anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:          anthropic.Model(cfg.Model),
		maxTokens:      cfg.MaxTokens,
		requestTimeout: cfg.RequestTimeout,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
	}
}

// Complete sends the prompt and returns the response text, retrying
// transient failures with exponential backoff.
func (c *anthropicClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.initialBackoff

	text, err := backoff.RetryWithData(func() (string, error) {
		text, err := c.complete(ctx, systemPrompt, userPrompt)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return "", backoff.Permanent(err)
			}
			if c.log != nil {
				c.log.Warn("gateway: completion call failed, may retry", "error", err)
			}
			return "", err
		}
		return text, nil
	}, backoff.WithContext(backoff.WithMaxRetries(expo, c.maxRetries), ctx))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return text, nil
}

func (c *anthropicClient) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	if c.log != nil {
		c.log.Debug("gateway: completion call completed",
			"model", c.model,
			"duration", time.Since(start),
			"stopReason", msg.StopReason)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in response")
}
