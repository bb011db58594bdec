// Package http implements the HTTP transport for domus.
//
// This transport exposes the REST API used by web clients, voice front-ends
// and home-automation hubs, together with Prometheus metrics and the
// Swagger UI.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/domus/docs" // OpenAPI document
	"github.com/nadzzz/domus/internal/device"
	"github.com/nadzzz/domus/internal/dispatch"
	"github.com/nadzzz/domus/internal/message"
	"github.com/nadzzz/domus/internal/transport"
)

// maxBodyBytes bounds request bodies. Commands are at most 500 characters.
const maxBodyBytes = 64 << 10

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port   int
	server *http.Server
}

// New creates a new HTTP transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler returns the routes of the API served by svc.
func (t *Transport) Handler(svc transport.Service) http.Handler {
	mux := http.NewServeMux()
	h := &handlers{svc: svc}

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /interpret", h.interpret)
	mux.HandleFunc("POST /interpret/explain", h.explain)
	mux.HandleFunc("POST /execute", h.execute)
	mux.HandleFunc("GET /devices", h.devices)
	mux.HandleFunc("GET /devices/{key}", h.device)
	mux.HandleFunc("POST /devices", h.createDevice)
	mux.HandleFunc("PUT /devices/{key}", h.updateDevice)
	mux.HandleFunc("DELETE /devices/{key}", h.deleteDevice)
	mux.HandleFunc("POST /devices/reload", h.reload)

	mux.Handle("GET /metrics", promhttp.Handler())

	// Swagger UI serves the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// Listen starts the HTTP server and serves requests with svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

type handlers struct {
	svc transport.Service
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeCommand reads a CommandRequest, writing the error reply itself.
func decodeCommand(w http.ResponseWriter, r *http.Request) (message.CommandRequest, bool) {
	var req message.CommandRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return req, false
	}
	return req, true
}

// decodeDevice reads a device body. Devices are active unless the body says
// otherwise.
func decodeDevice(w http.ResponseWriter, r *http.Request) (message.Device, bool) {
	d := message.Device{Active: true}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return d, false
	}
	return d, true
}

// serviceError maps a service error onto a status code.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispatch.ErrInvalidRequest):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, device.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dispatch.ErrReadOnly):
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// health reports service status.
//
// @Summary     Service health
// @Description Reports the service version, the fallback model status and the number of loaded devices.
// @Tags        health
// @Produce     json
// @Success     200  {object}  message.HealthResponse
// @Router      /health [get]
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Health(r.Context()))
}

// interpret handles POST /interpret.
//
// @Summary     Interpret a command
// @Description Resolves a Spanish or English home-automation command to an intent, a device and a negation flag.
// @Description Low-confidence results are escalated to the fallback model when it is available.
// @Tags        interpret
// @Accept      json
// @Produce     json
// @Param       command  body      message.CommandRequest  true  "Command text (1-500 characters)"
// @Success     200  {object}  message.InterpretResponse
// @Failure     400  {object}  errorResponse  "Invalid JSON"
// @Failure     422  {object}  errorResponse  "Missing or oversized text"
// @Router      /interpret [post]
func (h *handlers) interpret(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCommand(w, r)
	if !ok {
		return
	}
	resp, err := h.svc.Interpret(r.Context(), req)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// explain handles POST /interpret/explain.
//
// @Summary     Explain a command
// @Description Traces every rule-based step for a command without consulting the fallback model.
// @Tags        interpret
// @Accept      json
// @Produce     json
// @Param       command  body      message.CommandRequest  true  "Command text"
// @Success     200  {object}  dispatch.ExplainResponse
// @Failure     400  {object}  errorResponse
// @Failure     422  {object}  errorResponse
// @Router      /interpret/explain [post]
func (h *handlers) explain(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCommand(w, r)
	if !ok {
		return
	}
	resp, err := h.svc.Explain(r.Context(), req)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// execute handles POST /execute.
//
// @Summary     Interpret and execute a command
// @Description Interprets a command and calls the IoT backend endpoint of the device.
// @Description Negated, unresolved and unsupported commands are not executed.
// @Tags        execute
// @Accept      json
// @Produce     json
// @Param       command  body      message.CommandRequest  true  "Command text"
// @Success     200  {object}  message.ExecuteResponse
// @Failure     400  {object}  errorResponse
// @Failure     422  {object}  errorResponse
// @Router      /execute [post]
func (h *handlers) execute(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCommand(w, r)
	if !ok {
		return
	}
	resp, err := h.svc.Execute(r.Context(), req)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// devices handles GET /devices.
//
// @Summary     List devices
// @Tags        devices
// @Produce     json
// @Success     200  {object}  message.DeviceList
// @Router      /devices [get]
func (h *handlers) devices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Devices(r.Context()))
}

// device handles GET /devices/{key}.
//
// @Summary     Get a device
// @Tags        devices
// @Produce     json
// @Param       key  path      string  true  "Device key"
// @Success     200  {object}  message.Device
// @Failure     404  {object}  errorResponse
// @Router      /devices/{key} [get]
func (h *handlers) device(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Device(r.Context(), r.PathValue("key"))
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// createDevice handles POST /devices.
//
// @Summary     Create or replace a device
// @Description Stores the device in the repository and republishes the device snapshot.
// @Tags        devices
// @Accept      json
// @Produce     json
// @Param       device  body      message.Device  true  "Device"
// @Success     201  {object}  message.Device
// @Failure     400  {object}  errorResponse
// @Failure     405  {object}  errorResponse  "Device source is read-only"
// @Failure     422  {object}  errorResponse
// @Router      /devices [post]
func (h *handlers) createDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := decodeDevice(w, r)
	if !ok {
		return
	}
	saved, err := h.svc.SaveDevice(r.Context(), d)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// updateDevice handles PUT /devices/{key}. The path key wins over the body.
//
// @Summary     Update a device
// @Tags        devices
// @Accept      json
// @Produce     json
// @Param       key     path      string          true  "Device key"
// @Param       device  body      message.Device  true  "Device"
// @Success     200  {object}  message.Device
// @Failure     400  {object}  errorResponse
// @Failure     405  {object}  errorResponse  "Device source is read-only"
// @Failure     422  {object}  errorResponse
// @Router      /devices/{key} [put]
func (h *handlers) updateDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := decodeDevice(w, r)
	if !ok {
		return
	}
	d.Key = r.PathValue("key")
	saved, err := h.svc.SaveDevice(r.Context(), d)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// deleteDevice handles DELETE /devices/{key}. With ?soft=true the device is
// only deactivated.
//
// @Summary     Delete a device
// @Tags        devices
// @Param       key   path   string  true   "Device key"
// @Param       soft  query  bool    false  "Deactivate instead of deleting"
// @Success     204
// @Failure     404  {object}  errorResponse
// @Failure     405  {object}  errorResponse  "Device source is read-only"
// @Router      /devices/{key} [delete]
func (h *handlers) deleteDevice(w http.ResponseWriter, r *http.Request) {
	soft := r.URL.Query().Get("soft") == "true"
	if err := h.svc.DeleteDevice(r.Context(), r.PathValue("key"), soft); err != nil {
		serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reload handles POST /devices/reload.
//
// @Summary     Reload devices
// @Description Reloads the device snapshot from the configured source. On failure the previous snapshot keeps serving.
// @Tags        devices
// @Produce     json
// @Success     200  {object}  message.ReloadResponse
// @Failure     500  {object}  message.ReloadResponse
// @Router      /devices/reload [post]
func (h *handlers) reload(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Reload(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
