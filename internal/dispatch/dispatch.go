// Package dispatch is the transport-facing service of the daemon.
//
// Transports decode requests and hand them to the Dispatcher, which
// validates them, runs them through the pipeline and wraps the outcome in
// the response envelopes of package message. Every request gets an id that
// is logged with each step and returned to the caller.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nadzzz/domus/internal/device"
	"github.com/nadzzz/domus/internal/message"
	"github.com/nadzzz/domus/internal/pipeline"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "domus"

var (
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrReadOnly is returned by device writes when no store is attached.
	ErrReadOnly = errors.New("device source is read-only")
)

// FallbackStatus reports the fallback availability ("available",
// "unavailable" or "disabled") and when it was last refreshed.
type FallbackStatus interface {
	Status() string
	LastCheck() time.Time
}

// DeviceStore persists device edits. *device.Repository implements it.
type DeviceStore interface {
	Get(ctx context.Context, key string) (message.Device, error)
	Upsert(ctx context.Context, d message.Device) error
	Delete(ctx context.Context, key string, soft bool) error
}

// ExplainResponse is the rule path trace of a command.
type ExplainResponse struct {
	RequestID    string               `json:"request_id"`
	OriginalText string               `json:"original_text"`
	Explanation  pipeline.Explanation `json:"explanation"`
}

// Dispatcher serves interpretation requests from every transport.
type Dispatcher struct {
	pipeline *pipeline.Pipeline
	fallback FallbackStatus
	store    DeviceStore
	version  string
	validate *validator.Validate
}

// New creates a Dispatcher. fallback may be nil when no fallback is
// configured.
func New(p *pipeline.Pipeline, fallback FallbackStatus, version string) *Dispatcher {
	return &Dispatcher{
		pipeline: p,
		fallback: fallback,
		version:  version,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// WithStore enables device writes. The store should also be the pipeline's
// source so a write is visible after the reload that follows it.
func (d *Dispatcher) WithStore(s DeviceStore) *Dispatcher {
	d.store = s
	return d
}

func (d *Dispatcher) check(req message.CommandRequest) error {
	if err := d.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func newRequest(op string) (string, *slog.Logger) {
	id := uuid.NewString()
	return id, slog.With("request_id", id, "op", op)
}

// Interpret interprets one command. Only an invalid request is an error;
// everything else is reported in the response.
func (d *Dispatcher) Interpret(ctx context.Context, req message.CommandRequest) (message.InterpretResponse, error) {
	if err := d.check(req); err != nil {
		return message.InterpretResponse{}, err
	}

	id, logger := newRequest("interpret")
	start := time.Now()
	logger.Info("interpret started", "text_length", len(req.Text))

	res := d.pipeline.Interpret(ctx, req.Text)

	logger.Info("interpret complete",
		"path", res.Path,
		"intent", res.Interpretation.Intent,
		"device", res.Interpretation.Device,
		"duration", time.Since(start),
	)
	return message.InterpretResponse{
		RequestID:      id,
		Success:        true,
		Data:           res.Interpretation,
		OriginalText:   req.Text,
		ConfidenceNote: res.Note,
	}, nil
}

// Explain traces the rule path of one command.
func (d *Dispatcher) Explain(_ context.Context, req message.CommandRequest) (ExplainResponse, error) {
	if err := d.check(req); err != nil {
		return ExplainResponse{}, err
	}
	id, logger := newRequest("explain")
	e := d.pipeline.Explain(req.Text)
	logger.Debug("explain complete", "accepted", e.Accepted)
	return ExplainResponse{RequestID: id, OriginalText: req.Text, Explanation: e}, nil
}

// Execute interprets one command and runs it against the IoT backend.
func (d *Dispatcher) Execute(ctx context.Context, req message.CommandRequest) (message.ExecuteResponse, error) {
	if err := d.check(req); err != nil {
		return message.ExecuteResponse{}, err
	}

	id, logger := newRequest("execute")
	start := time.Now()

	res, exec := d.pipeline.Execute(ctx, req.Text)

	logger.Info("execute complete",
		"intent", res.Interpretation.Intent,
		"device", res.Interpretation.Device,
		"executed", exec.Executed,
		"reason", exec.Reason,
		"duration", time.Since(start),
	)
	return message.ExecuteResponse{
		RequestID:      id,
		Success:        true,
		Interpretation: res.Interpretation,
		Execution:      exec,
		OriginalText:   req.Text,
		ConfidenceNote: res.Note,
	}, nil
}

// Devices lists the current device catalog.
func (d *Dispatcher) Devices(context.Context) message.DeviceList {
	devices := d.pipeline.Devices()
	return message.DeviceList{Count: len(devices), Devices: devices}
}

// Device returns one device or an error wrapping device.ErrNotFound.
func (d *Dispatcher) Device(_ context.Context, key string) (message.Device, error) {
	dev, ok := d.pipeline.Device(key)
	if !ok {
		return message.Device{}, fmt.Errorf("%w: %s", device.ErrNotFound, key)
	}
	return dev, nil
}

// SaveDevice creates or replaces a device in the store and republishes the
// snapshot.
func (d *Dispatcher) SaveDevice(ctx context.Context, dev message.Device) (message.Device, error) {
	if d.store == nil {
		return message.Device{}, ErrReadOnly
	}
	if err := d.validate.Struct(dev); err != nil {
		return message.Device{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	_, logger := newRequest("save_device")
	if err := d.store.Upsert(ctx, dev); err != nil {
		return message.Device{}, err
	}
	saved, err := d.store.Get(ctx, dev.Key)
	if err != nil {
		return message.Device{}, err
	}
	logger.Info("device saved", "device", saved.Key, "active", saved.Active)
	return saved, d.republish(ctx, logger)
}

// DeleteDevice removes a device, or only deactivates it when soft is set,
// and republishes the snapshot.
func (d *Dispatcher) DeleteDevice(ctx context.Context, key string, soft bool) error {
	if d.store == nil {
		return ErrReadOnly
	}
	_, logger := newRequest("delete_device")
	if err := d.store.Delete(ctx, key, soft); err != nil {
		return err
	}
	logger.Info("device deleted", "device", key, "soft", soft)
	return d.republish(ctx, logger)
}

func (d *Dispatcher) republish(ctx context.Context, logger *slog.Logger) error {
	n, err := d.pipeline.ReloadFromSource(ctx)
	if err != nil {
		logger.Error("device reload after write failed", "error", err)
		return fmt.Errorf("reloading devices: %w", err)
	}
	logger.Debug("device snapshot republished", "devices", n)
	return nil
}

// Reload reloads the devices from the configured source. On failure the
// previous snapshot keeps serving and the error is returned with the
// response.
func (d *Dispatcher) Reload(ctx context.Context) (message.ReloadResponse, error) {
	_, logger := newRequest("reload")

	n, err := d.pipeline.ReloadFromSource(ctx)
	if err != nil {
		logger.Error("device reload failed", "error", err)
		return message.ReloadResponse{
			Success: false,
			Devices: len(d.pipeline.Devices()),
			Message: err.Error(),
		}, err
	}
	logger.Info("device reload complete", "devices", n)
	return message.ReloadResponse{
		Success: true,
		Devices: n,
		Message: fmt.Sprintf("%d devices loaded", n),
	}, nil
}

// Health reports the service and fallback status.
func (d *Dispatcher) Health(context.Context) message.HealthResponse {
	resp := message.HealthResponse{
		Status:         "ok",
		Service:        ServiceName,
		Version:        d.version,
		FallbackStatus: "disabled",
		Devices:        len(d.pipeline.Devices()),
		CheckedAt:      time.Now().UTC(),
	}
	if d.fallback != nil {
		resp.FallbackStatus = d.fallback.Status()
		if t := d.fallback.LastCheck(); !t.IsZero() {
			resp.FallbackCheckedAt = t.UTC()
		}
	}
	return resp
}
