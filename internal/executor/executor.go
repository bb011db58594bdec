// Package executor carries out an interpretation against the IoT backend.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nadzzz/domus/internal/config"
	"github.com/nadzzz/domus/internal/message"
	"github.com/nadzzz/domus/internal/nlp/negation"
)

// Reasons reported when nothing is executed.
const (
	ReasonNegated       = "command negated, action not executed"
	ReasonUnresolved    = "could not identify device or intent"
	ReasonNoBackend     = "executor backend_url not configured"
	noBackendMessage    = "set executor.backend_url to enable command execution"
	maxTextResponseSize = 200
)

// Executor calls the backend endpoint of an interpreted command.
type Executor struct {
	backendURL string
	client     *http.Client
}

// New creates an Executor. An empty backend URL disables execution.
func New(cfg config.ExecutorConfig) *Executor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Executor{
		backendURL: strings.TrimRight(cfg.BackendURL, "/"),
		client:     &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a backend is configured.
func (e *Executor) Enabled() bool { return e != nil && e.backendURL != "" }

// Execute runs in against the backend. endpoints are the device's own
// per-action URLs; an empty one falls back to
// {backend}/api/devices/{key}/{action}. Backend failures are reported in the
// returned Execution, never as an error.
func (e *Executor) Execute(ctx context.Context, in message.Interpretation, endpoints message.Endpoints) message.Execution {
	if in.Negated {
		return message.Execution{
			Reason:  ReasonNegated,
			Message: negation.NegatedResponse(in.Intent),
		}
	}
	if in.Intent == message.IntentUnknown || in.Device == "" {
		return message.Execution{Reason: ReasonUnresolved}
	}
	if !e.Enabled() {
		return message.Execution{Reason: ReasonNoBackend, Message: noBackendMessage}
	}

	action := in.Intent.Action()
	if action == "" {
		return message.Execution{Reason: fmt.Sprintf("action %q not supported for execution", in.Intent)}
	}

	endpoint := endpoints.For(action)
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/api/devices/%s/%s", e.backendURL, url.PathEscape(in.Device), action)
	}
	out := message.Execution{EndpointCalled: endpoint}

	method := http.MethodPost
	if action == "status" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			out.Error = "timeout connecting to the IoT backend"
		} else {
			out.Error = err.Error()
		}
		slog.Warn("device execution failed", "device", in.Device, "action", action, "error", err)
		return out
	}
	defer resp.Body.Close()

	out.StatusCode = resp.StatusCode
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		out.Executed = true
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		out.Error = fmt.Sprintf("reading backend response: %v", err)
		return out
	}
	out.Response = decodeBody(body)

	slog.Info("device action executed",
		"device", in.Device,
		"action", action,
		"status", resp.StatusCode,
		"executed", out.Executed,
	)
	return out
}

// decodeBody returns the body as a JSON value, or as text cut to 200
// characters, or nil when empty.
func decodeBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		return v
	}
	text := []rune(string(body))
	if len(text) > maxTextResponseSize {
		text = text[:maxTextResponseSize]
	}
	return string(text)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
