package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/studycampus/qa-api/internal/config"
	"github.com/studycampus/qa-api/internal/generation"
	"google.golang.org/genai"
)

// Client implements generation.ModelClient using the Gemini API.
type Client struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// Ensure Client implements the capability interface.
var _ generation.ModelClient = (*Client)(nil)

// NewClient creates a Client for the Gemini backend.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &Client{
		client: client,
		model:  cfg.Model,
		logger: logger.With(slog.String("component", "gemini_client")),
	}, nil
}

// ComputeAnswer implements generation.ModelClient.ComputeAnswer.
func (c *Client) ComputeAnswer(ctx context.Context, prompt generation.Prompt, timeout time.Duration) generation.Answer {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(callCtx, c.model, genai.Text(prompt.UserMessage()), c.generateConfig())
	if err != nil {
		c.logger.Error("content generation failed",
			slog.String("model", c.model),
			slog.String("error", err.Error()))
		return generation.Answer{Text: generation.FallbackFor(classify(err)), Fallback: true}
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("content generation returned no text", slog.String("model", c.model))
		return generation.Answer{Text: generation.FallbackEmpty, Fallback: true}
	}

	answer := generation.Answer{Text: text}
	if resp.UsageMetadata != nil {
		answer.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return answer
}

// StreamAnswer implements generation.ModelClient.StreamAnswer.
func (c *Client) StreamAnswer(ctx context.Context, prompt generation.Prompt, timeout time.Duration) <-chan generation.Fragment {
	out := make(chan generation.Fragment)

	go func() {
		defer close(out)

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		for resp, err := range c.client.Models.GenerateContentStream(
			callCtx, c.model, genai.Text(prompt.UserMessage()), c.generateConfig(),
		) {
			if err != nil {
				c.logger.Error("content stream broke",
					slog.String("model", c.model),
					slog.String("error", err.Error()))
				send(callCtx, out, generation.Fragment{Err: classify(err)})
				return
			}
			if text := resp.Text(); text != "" {
				if !send(callCtx, out, generation.Fragment{Text: text}) {
					return
				}
			}
		}

		send(callCtx, out, generation.Fragment{Done: true})
	}()

	return out
}

// send delivers one fragment unless the call context ends first. A consumer
// that abandons the channel would otherwise block the producer goroutine
// forever.
func send(ctx context.Context, out chan<- generation.Fragment, frag generation.Fragment) bool {
	select {
	case out <- frag:
		return true
	case <-ctx.Done():
		return false
	}
}

// generateConfig applies the shared system instruction and sampling settings.
func (c *Client) generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(generation.SystemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.3),
		TopP:              genai.Ptr[float32](0.8),
		MaxOutputTokens:   2000,
	}
}

// classify maps SDK/transport errors onto the generation error taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", generation.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", generation.ErrUpstream, err)
}
