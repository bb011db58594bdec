// Package transport defines the interface for pluggable request transports.
//
// Each transport (HTTP, gRPC) decodes requests in its own wire format and
// hands them to a Service. The service does not care how requests arrive;
// it only works with the types of package message.
package transport

import (
	"context"

	"github.com/nadzzz/domus/internal/dispatch"
	"github.com/nadzzz/domus/internal/message"
)

// Service is what transports expose. *dispatch.Dispatcher implements it.
type Service interface {
	Interpret(ctx context.Context, req message.CommandRequest) (message.InterpretResponse, error)
	Explain(ctx context.Context, req message.CommandRequest) (dispatch.ExplainResponse, error)
	Execute(ctx context.Context, req message.CommandRequest) (message.ExecuteResponse, error)
	Devices(ctx context.Context) message.DeviceList
	Device(ctx context.Context, key string) (message.Device, error)
	SaveDevice(ctx context.Context, d message.Device) (message.Device, error)
	DeleteDevice(ctx context.Context, key string, soft bool) error
	Reload(ctx context.Context) (message.ReloadResponse, error)
	Health(ctx context.Context) message.HealthResponse
}

var _ Service = (*dispatch.Dispatcher)(nil)

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts accepting requests and serves them with svc.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, svc Service) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
