package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/domus/internal/config"
)

func TestComplete(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":    "phi3",
			"response": ` {"intent":"turn_on","device":"luz_sala","negated":false} `,
			"done":     true,
		})
	}))
	defer srv.Close()

	c := New(config.OllamaConfig{URL: srv.URL + "/", Model: "phi3"})
	out, err := c.Complete(context.Background(), "PROMPT")
	require.NoError(t, err)

	assert.Equal(t, `{"intent":"turn_on","device":"luz_sala","negated":false}`, out)
	assert.Equal(t, "phi3", got.Model)
	assert.Equal(t, "PROMPT", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, 0.1, got.Options.Temperature)
	assert.Equal(t, 0.9, got.Options.TopP)
	assert.Equal(t, 100, got.Options.NumPredict)
	assert.Equal(t, []string{"\n", "```"}, got.Options.Stop)
}

func TestCompleteLegacyEndpointURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	c := New(config.OllamaConfig{URL: srv.URL + "/api/generate"})
	out, err := c.Complete(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "phi3", c.model)
}

func TestCompleteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(config.OllamaConfig{URL: srv.URL}).Complete(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestCompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(config.OllamaConfig{URL: srv.URL}).Complete(ctx, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPing(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	c := New(config.OllamaConfig{URL: srv.URL})
	require.NoError(t, c.Ping(context.Background()))

	status.Store(http.StatusServiceUnavailable)
	assert.Error(t, c.Ping(context.Background()))
}

func TestPingUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.Error(t, New(config.OllamaConfig{URL: url}).Ping(context.Background()))
}

func TestExtractContent(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"ollama", `{"response":"{\"intent\":\"open\"}"}`, `{"intent":"open"}`},
		{"ollama empty", `{"response":""}`, ""},
		{"openai", `{"choices":[{"message":{"content":"hola"}}]}`, "hola"},
		{"raw", `not json`, "not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractContent([]byte(tt.data)))
		})
	}
}
