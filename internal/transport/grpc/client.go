package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/nadzzz/domus/internal/dispatch"
	"github.com/nadzzz/domus/internal/message"
)

// Client calls a remote domus.v1.Interpreter.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an open connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	return c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp, grpc.CallContentSubtype(codecName))
}

// Interpret interprets text remotely.
func (c *Client) Interpret(ctx context.Context, text string) (message.InterpretResponse, error) {
	var resp message.InterpretResponse
	err := c.invoke(ctx, "Interpret", &message.CommandRequest{Text: text}, &resp)
	return resp, err
}

// Explain traces the rule path of text remotely.
func (c *Client) Explain(ctx context.Context, text string) (dispatch.ExplainResponse, error) {
	var resp dispatch.ExplainResponse
	err := c.invoke(ctx, "Explain", &message.CommandRequest{Text: text}, &resp)
	return resp, err
}

// Execute interprets and executes text remotely.
func (c *Client) Execute(ctx context.Context, text string) (message.ExecuteResponse, error) {
	var resp message.ExecuteResponse
	err := c.invoke(ctx, "Execute", &message.CommandRequest{Text: text}, &resp)
	return resp, err
}

// ListDevices returns the remote device catalog.
func (c *Client) ListDevices(ctx context.Context) (message.DeviceList, error) {
	var resp message.DeviceList
	err := c.invoke(ctx, "ListDevices", &Empty{}, &resp)
	return resp, err
}

// GetDevice returns one remote device.
func (c *Client) GetDevice(ctx context.Context, key string) (message.Device, error) {
	var resp message.Device
	err := c.invoke(ctx, "GetDevice", &DeviceRequest{Key: key}, &resp)
	return resp, err
}

// SaveDevice creates or replaces a remote device.
func (c *Client) SaveDevice(ctx context.Context, d message.Device) (message.Device, error) {
	var resp message.Device
	err := c.invoke(ctx, "SaveDevice", &d, &resp)
	return resp, err
}

// DeleteDevice removes a remote device, or deactivates it when soft is set.
func (c *Client) DeleteDevice(ctx context.Context, key string, soft bool) error {
	return c.invoke(ctx, "DeleteDevice", &DeleteDeviceRequest{Key: key, Soft: soft}, &Empty{})
}

// ReloadDevices asks the server to reload its device source.
func (c *Client) ReloadDevices(ctx context.Context) (message.ReloadResponse, error) {
	var resp message.ReloadResponse
	err := c.invoke(ctx, "ReloadDevices", &Empty{}, &resp)
	return resp, err
}
