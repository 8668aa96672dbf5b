package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/studycampus/qa-api/internal/config"
	"github.com/studycampus/qa-api/internal/generation"
)

// Sampling parameters for the study-companion persona.
const (
	temperature = 0.3
	topP        = 0.8
	maxTokens   = 2000
)

// Client implements generation.ModelClient using the go-openai SDK.
type Client struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// Ensure Client implements the capability interface.
var _ generation.ModelClient = (*Client)(nil)

// NewClient creates a Client for the configured endpoint. BaseURL may point
// at any OpenAI-compatible server; when empty the official endpoint is used.
func NewClient(cfg config.LLMConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: logger.With(slog.String("component", "openai_client")),
	}, nil
}

// ComputeAnswer implements generation.ModelClient.ComputeAnswer.
// Upstream failures are converted to fallback text; the caller never sees a
// bare error from this operation.
func (c *Client) ComputeAnswer(ctx context.Context, prompt generation.Prompt, timeout time.Duration) generation.Answer {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(callCtx, c.chatRequest(prompt, false))
	if err != nil {
		c.logger.Error("chat completion failed",
			slog.String("model", c.model),
			slog.String("error", err.Error()))
		return generation.Answer{Text: generation.FallbackFor(classify(err)), Fallback: true}
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		c.logger.Warn("chat completion returned no content", slog.String("model", c.model))
		return generation.Answer{Text: generation.FallbackEmpty, Fallback: true}
	}

	return generation.Answer{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}
}

// StreamAnswer implements generation.ModelClient.StreamAnswer.
func (c *Client) StreamAnswer(ctx context.Context, prompt generation.Prompt, timeout time.Duration) <-chan generation.Fragment {
	out := make(chan generation.Fragment)

	go func() {
		defer close(out)

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		stream, err := c.client.CreateChatCompletionStream(callCtx, c.chatRequest(prompt, true))
		if err != nil {
			c.logger.Error("failed to open completion stream",
				slog.String("model", c.model),
				slog.String("error", err.Error()))
			send(callCtx, out, generation.Fragment{Err: classify(err)})
			return
		}
		defer func() {
			if err := stream.Close(); err != nil {
				c.logger.Debug("failed to close completion stream", slog.String("error", err.Error()))
			}
		}()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(callCtx, out, generation.Fragment{Done: true})
				return
			}
			if err != nil {
				c.logger.Error("completion stream broke",
					slog.String("model", c.model),
					slog.String("error", err.Error()))
				send(callCtx, out, generation.Fragment{Err: classify(err)})
				return
			}

			if len(resp.Choices) == 0 {
				continue
			}
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				if !send(callCtx, out, generation.Fragment{Text: delta}) {
					return
				}
			}
		}
	}()

	return out
}

// send delivers one fragment unless the call context ends first. A consumer
// that abandons the channel would otherwise block the producer goroutine,
// and with it the open upstream connection, forever.
func send(ctx context.Context, out chan<- generation.Fragment, frag generation.Fragment) bool {
	select {
	case out <- frag:
		return true
	case <-ctx.Done():
		return false
	}
}

// chatRequest builds the outbound request: fixed system instruction plus the
// rendered user message.
func (c *Client) chatRequest(prompt generation.Prompt, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
		Stream:      stream,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generation.SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt.UserMessage()},
		},
	}
}

// classify maps SDK/transport errors onto the generation error taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", generation.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", generation.ErrUpstream, err)
}
