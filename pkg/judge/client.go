package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/config"
)

// LLMClient is the capability the Judge calls into. It is intentionally
// narrow: a single-turn system+user completion with a bounded output
// size, matching what a review prompt needs (no tool calling, no
// multi-turn conversation state).
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Model() string
}

// ErrContentModeration is returned by an LLMClient when the provider
// rejected the prompt on a policy/content-moderation ground, signaling
// the Judge's fallback-model retry.
var ErrContentModeration = errors.New("judge: content moderation rejection")

// anthropicClient is grounded on the Anthropic client adapter found
// elsewhere in the example corpus, trimmed to the single-turn
// completion the Judge needs.
type anthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func newAnthropicClient(apiKey, model string, maxOutputChars int) LLMClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	// Roughly 4 output characters per token; a generous ceiling is fine
	// since the reply grammar is two short lines.
	maxTokens := int64(maxOutputChars)/4 + 64
	return &anthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (c *anthropicClient) Model() string { return c.model }

func (c *anthropicClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Type: "text", Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			{Role: anthropic.MessageParamRoleUser, Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(userPrompt)}},
		},
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		if isContentModerationSignal(err) {
			return "", fmt.Errorf("%w: %v", ErrContentModeration, err)
		}
		return "", fmt.Errorf("anthropic judge completion: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// isContentModerationSignal heuristically recognizes a policy/
// inappropriate-content rejection from the provider's error text. The
// Anthropic API does not expose a typed error for this, so the Judge
// matches on the vocabulary providers commonly use.
func isContentModerationSignal(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, signal := range []string{"content policy", "content_policy", "flagged", "inappropriate content", "policy violation"} {
		if strings.Contains(msg, signal) {
			return true
		}
	}
	return false
}

// breakerClient wraps an LLMClient with a circuit breaker so a run of
// failures against the provider fails fast instead of burning the
// 30-second hard timeout on every review.
type breakerClient struct {
	inner   LLMClient
	breaker *gobreaker.CircuitBreaker
}

func newBreakerClient(inner LLMClient, cfg config.JudgeConfig) *breakerClient {
	return &breakerClient{
		inner: inner,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "judge-llm-" + inner.Model(),
			MaxRequests: cfg.BreakerMaxRequests,
			Interval:    cfg.BreakerInterval,
			Timeout:     cfg.BreakerTimeout,
		}),
	}
}

func (c *breakerClient) Model() string { return c.inner.Model() }

func (c *breakerClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.Complete(ctx, systemPrompt, userPrompt)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
