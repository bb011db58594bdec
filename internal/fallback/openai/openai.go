// Package openai implements the fallback Completer using any OpenAI-compatible
// Chat Completions API (OpenAI, vLLM, llama.cpp server, Ollama's /v1).
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nadzzz/domus/internal/config"
)

const (
	defaultModel = "gpt-4o-mini"
	maxTokens    = 100
)

// Client uses the Chat Completions API for fallback interpretation.
type Client struct {
	client     *goopenai.Client
	model      string
	maxRetries int
	backoff    time.Duration
}

// New creates a new OpenAI-compatible client from config.
func New(cfg config.OpenAIConfig) *Client {
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		client:     goopenai.NewClientWithConfig(clientConfig),
		model:      model,
		maxRetries: retries,
		backoff:    time.Second,
	}
}

// Name returns the backend identifier.
func (c *Client) Name() string { return "openai" }

// Complete sends the prompt as a single user message, asking for a JSON
// object, and returns the first choice.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: 0.1,
		TopP:        0.9,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var content string
	err := c.doWithRetry(ctx, func() error {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("no choices in response")
		}
		content = resp.Choices[0].Message.Content
		slog.Debug("chat completion", "model", c.model, "tokens", resp.Usage.TotalTokens)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	return content, nil
}

// Ping lists the models the endpoint serves.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("listing models: %w", err)
	}
	return nil
}

// doWithRetry retries rate-limited and server-side failures with exponential
// backoff, up to maxRetries extra attempts.
func (c *Client) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil || !retryable(lastErr) || attempt == c.maxRetries {
			return lastErr
		}

		wait := c.backoff << attempt
		slog.Debug("chat request failed, retrying", "attempt", attempt+1, "wait_time", wait, "error", lastErr)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func retryable(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
