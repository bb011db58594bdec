// Package ollama implements the fallback Completer on top of a self-hosted
// Ollama server.
//
// Completions go to POST /api/generate with streaming disabled; reachability
// is checked with GET /api/tags. Responses in the OpenAI-compatible chat
// shape are accepted too, so the same client works behind proxies that
// translate between the two.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nadzzz/domus/internal/config"
)

// Generation options tuned for short JSON answers.
const (
	temperature = 0.1
	topP        = 0.9
	numPredict  = 100
)

// stopSequences end generation after the first JSON line.
var stopSequences = []string{"\n", "```"}

// Client talks to an Ollama server.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

// New creates a new Ollama client from config.
func New(cfg config.OllamaConfig) *Client {
	base := strings.TrimRight(cfg.URL, "/")
	if base == "" {
		base = "http://localhost:11434"
	}
	// Older configs point at the generate endpoint itself.
	base = strings.TrimSuffix(base, "/api/generate")

	model := cfg.Model
	if model == "" {
		model = "phi3"
	}
	return &Client{
		baseURL: base,
		model:   model,
		client:  &http.Client{},
	}
}

// Name returns the backend identifier.
func (c *Client) Name() string { return "ollama" }

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	NumPredict  int      `json:"num_predict"`
	Stop        []string `json:"stop"`
}

// Complete sends the prompt to /api/generate and returns the generated text.
// Deadlines come from ctx.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	bodyBytes, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: temperature,
			TopP:        topP,
			NumPredict:  numPredict,
			Stop:        stopSequences,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("ollama failed (status %d): %s", resp.StatusCode, respBody)
	}

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading ollama response: %w", err)
	}

	content := strings.TrimSpace(extractContent(respData))
	slog.Debug("ollama completion", "model", c.model, "response_length", len(content))
	return content, nil
}

// Ping checks that the server answers GET /api/tags with 200.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama ping: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama ping failed (status %d)", resp.StatusCode)
	}
	return nil
}

func extractContent(data []byte) string {
	// Try Ollama format: {"response": "..."}
	var ollamaResp struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(data, &ollamaResp); err == nil && ollamaResp.Response != nil {
		return *ollamaResp.Response
	}

	// Try OpenAI-compatible format: {"choices": [{"message": {"content": "..."}}]}
	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &chatResp); err == nil && len(chatResp.Choices) > 0 {
		return chatResp.Choices[0].Message.Content
	}

	return string(data)
}
