package grpc

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/nadzzz/domus/internal/dispatch"
	"github.com/nadzzz/domus/internal/message"
	"github.com/nadzzz/domus/internal/pipeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeAvailability lets tests flip the fallback flag.
type fakeAvailability struct {
	mu        sync.Mutex
	available bool
	listeners []func(bool)
}

func (f *fakeAvailability) Enabled() bool { return true }

func (f *fakeAvailability) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *fakeAvailability) OnChange(fn func(bool)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *fakeAvailability) set(v bool) {
	f.mu.Lock()
	f.available = v
	listeners := append([]func(bool){}, f.listeners...)
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(v)
	}
}

type stubSource struct{}

func (stubSource) Load(context.Context) ([]message.Device, error) {
	return []message.Device{
		{Key: "luz_comedor", Name: "Luz del Comedor", Type: message.DeviceLight, Room: "comedor", Aliases: []string{"luz del comedor"}, Active: true},
		{Key: "puerta_garage", Name: "Portón", Type: message.DeviceDoor, Room: "garage", Active: true},
	}, nil
}

func startServer(t *testing.T, avail Availability) *grpc.ClientConn {
	t.Helper()

	p := pipeline.New(pipeline.Options{Source: stubSource{}})
	_, err := p.ReloadFromSource(context.Background())
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	tr := New(0, avail)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.serve(ctx, lis, dispatch.New(p, nil, "test")) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		require.NoError(t, <-done)
	})
	return conn
}

func TestInterpret(t *testing.T) {
	c := NewClient(startServer(t, nil))
	ctx := context.Background()

	resp, err := c.Interpret(ctx, "enciende la luz del comedor")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, message.Interpretation{Intent: message.IntentTurnOn, Device: "luz_comedor"}, resp.Data)

	_, err = c.Interpret(ctx, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestExplainAndExecute(t *testing.T) {
	c := NewClient(startServer(t, nil))
	ctx := context.Background()

	e, err := c.Explain(ctx, "no abras el porton")
	require.NoError(t, err)
	assert.True(t, e.Explanation.Negation.Negated)

	x, err := c.Execute(ctx, "no abras el porton")
	require.NoError(t, err)
	assert.True(t, x.Interpretation.Negated)
	assert.False(t, x.Execution.Executed)
}

func TestDevices(t *testing.T) {
	c := NewClient(startServer(t, nil))
	ctx := context.Background()

	list, err := c.ListDevices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)

	d, err := c.GetDevice(ctx, "puerta_garage")
	require.NoError(t, err)
	assert.Equal(t, message.DeviceDoor, d.Type)

	_, err = c.GetDevice(ctx, "nope")
	assert.Equal(t, codes.NotFound, status.Code(err))

	r, err := c.ReloadDevices(ctx)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, 2, r.Devices)
}

func TestDeviceWritesReadOnly(t *testing.T) {
	c := NewClient(startServer(t, nil))
	ctx := context.Background()

	_, err := c.SaveDevice(ctx, message.Device{Key: "x", Type: message.DeviceLight, Active: true})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	err = c.DeleteDevice(ctx, "puerta_garage", true)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestHealthReflectsFallback(t *testing.T) {
	avail := &fakeAvailability{}
	hc := healthpb.NewHealthClient(startServer(t, avail))
	ctx := context.Background()

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		resp, err := hc.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		return resp.GetStatus()
	}

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(ServiceName))

	require.Eventually(t, func() bool {
		return check(FallbackHealthService) == healthpb.HealthCheckResponse_NOT_SERVING
	}, time.Second, 5*time.Millisecond)

	avail.set(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(FallbackHealthService))
}

func TestCodecEmptyPayload(t *testing.T) {
	var req DeviceRequest
	require.NoError(t, jsonCodec{}.Unmarshal(nil, &req))
	assert.Empty(t, req.Key)

	data, err := jsonCodec{}.Marshal(&DeviceRequest{Key: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"device_key":"x"}`, string(data))
}
