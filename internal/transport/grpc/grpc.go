// Package grpc implements the gRPC transport for domus.
//
// The service domus.v1.Interpreter is described by hand and carries the
// JSON shapes of package message through a "json" codec, so clients in any
// language can call it with the content subtype application/grpc+json. The
// standard gRPC health service is registered next to it and reports the
// fallback model availability as the "fallback" service.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/domus/internal/device"
	"github.com/nadzzz/domus/internal/dispatch"
	"github.com/nadzzz/domus/internal/message"
	"github.com/nadzzz/domus/internal/transport"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "domus.v1.Interpreter"

// FallbackHealthService is the health service name that mirrors the
// fallback model availability.
const FallbackHealthService = "fallback"

// Empty is the request of methods without arguments.
type Empty struct{}

// DeviceRequest selects one device.
type DeviceRequest struct {
	Key string `json:"device_key"`
}

// DeleteDeviceRequest removes one device, or deactivates it when Soft is set.
type DeleteDeviceRequest struct {
	Key  string `json:"device_key"`
	Soft bool   `json:"soft"`
}

// Availability is the fallback availability signal.
type Availability interface {
	Available() bool
	Enabled() bool
	OnChange(fn func(available bool))
}

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port     int
	fallback Availability
	server   *grpc.Server
	health   *health.Server
}

// New creates a new gRPC transport on the given port. fallback may be nil.
func New(port int, fallback Availability) *Transport {
	return &Transport{port: port, fallback: fallback}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and serves requests with svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	slog.Info("grpc transport listening", "port", t.port)
	return t.serve(ctx, lis, svc)
}

func (t *Transport) serve(ctx context.Context, lis net.Listener, svc transport.Service) error {
	t.server = grpc.NewServer(grpc.UnaryInterceptor(logUnary))
	t.server.RegisterService(&serviceDesc, svc)

	t.health = health.NewServer()
	t.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	t.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	if t.fallback != nil && t.fallback.Enabled() {
		t.setFallback(t.fallback.Available())
		t.fallback.OnChange(t.setFallback)
	}
	healthpb.RegisterHealthServer(t.server, t.health)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.health.Shutdown()
		t.server.GracefulStop()
	}()

	if err := t.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

func (t *Transport) setFallback(available bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if available {
		st = healthpb.HealthCheckResponse_SERVING
	}
	t.health.SetServingStatus(FallbackHealthService, st)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	slog.Debug("grpc call",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}

// toStatus maps service errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dispatch.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, device.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, dispatch.ErrReadOnly):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// unary builds a method whose request is decoded into a Req.
func unary[Req, Resp any](method string, call func(svc transport.Service, ctx context.Context, req *Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			svc := srv.(transport.Service)
			handler := func(ctx context.Context, req any) (any, error) {
				resp, err := call(svc, ctx, req.(*Req))
				if err != nil {
					return nil, toStatus(err)
				}
				return &resp, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*transport.Service)(nil),
	Methods: []grpc.MethodDesc{
		unary("Interpret", func(svc transport.Service, ctx context.Context, req *message.CommandRequest) (message.InterpretResponse, error) {
			return svc.Interpret(ctx, *req)
		}),
		unary("Explain", func(svc transport.Service, ctx context.Context, req *message.CommandRequest) (dispatch.ExplainResponse, error) {
			return svc.Explain(ctx, *req)
		}),
		unary("Execute", func(svc transport.Service, ctx context.Context, req *message.CommandRequest) (message.ExecuteResponse, error) {
			return svc.Execute(ctx, *req)
		}),
		unary("ListDevices", func(svc transport.Service, ctx context.Context, _ *Empty) (message.DeviceList, error) {
			return svc.Devices(ctx), nil
		}),
		unary("GetDevice", func(svc transport.Service, ctx context.Context, req *DeviceRequest) (message.Device, error) {
			return svc.Device(ctx, req.Key)
		}),
		unary("SaveDevice", func(svc transport.Service, ctx context.Context, req *message.Device) (message.Device, error) {
			return svc.SaveDevice(ctx, *req)
		}),
		unary("DeleteDevice", func(svc transport.Service, ctx context.Context, req *DeleteDeviceRequest) (Empty, error) {
			return Empty{}, svc.DeleteDevice(ctx, req.Key, req.Soft)
		}),
		unary("ReloadDevices", func(svc transport.Service, ctx context.Context, _ *Empty) (message.ReloadResponse, error) {
			return svc.Reload(ctx)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "domus/v1/interpreter",
}
