// Package message defines the core data types flowing through the domus pipeline.
package message

import (
	"encoding/json"
	"time"
)

// Intent is the canonical action category a command expresses.
type Intent string

const (
	IntentTurnOn  Intent = "turn_on"
	IntentTurnOff Intent = "turn_off"
	IntentOpen    Intent = "open"
	IntentClose   Intent = "close"
	IntentStatus  Intent = "status"
	IntentToggle  Intent = "toggle"
	IntentUnknown Intent = "unknown"
)

// Intents lists the known intents in declaration order, unknown last.
var Intents = []Intent{
	IntentTurnOn, IntentTurnOff, IntentOpen, IntentClose, IntentStatus, IntentToggle, IntentUnknown,
}

// ParseIntent maps a free-form intent name to a known Intent.
// Anything that is not a known intent becomes IntentUnknown.
func ParseIntent(s string) Intent {
	for _, in := range Intents {
		if string(in) == s {
			return in
		}
	}
	return IntentUnknown
}

// Action returns the backend action verb for the intent ("on", "off", ...),
// or "" when the intent cannot be executed.
func (i Intent) Action() string {
	switch i {
	case IntentTurnOn:
		return "on"
	case IntentTurnOff:
		return "off"
	case IntentOpen:
		return "open"
	case IntentClose:
		return "close"
	case IntentStatus:
		return "status"
	default:
		return ""
	}
}

// DeviceType tags the kind of a controllable device.
type DeviceType string

const (
	DeviceLight      DeviceType = "light"
	DeviceFan        DeviceType = "fan"
	DeviceDoor       DeviceType = "door"
	DeviceWindow     DeviceType = "window"
	DeviceCurtain    DeviceType = "curtain"
	DeviceLock       DeviceType = "lock"
	DeviceAlarm      DeviceType = "alarm"
	DeviceSensor     DeviceType = "sensor"
	DeviceThermostat DeviceType = "thermostat"
	DeviceCamera     DeviceType = "camera"
	DeviceSwitch     DeviceType = "switch"
	DeviceOther      DeviceType = "other"
)

// Device is one controllable device of the snapshot handed to the core.
type Device struct {
	// Key is the unique stable identifier (e.g., "luz_comedor").
	Key string `json:"device_key" yaml:"device_key" db:"device_key" validate:"required,max=100"`

	// Name is the human-readable display name (e.g., "Luz del Comedor").
	Name string `json:"name" yaml:"name" db:"name" validate:"max=200"`

	// Type is the device category.
	Type DeviceType `json:"type" yaml:"type" db:"type" validate:"required,oneof=light fan door window curtain lock alarm sensor thermostat camera switch other"`

	// Room is the free-text room the device lives in (e.g., "comedor").
	Room string `json:"room" yaml:"room" db:"room"`

	// Aliases are additional phrases that refer to the device, in priority order.
	Aliases []string `json:"aliases" yaml:"aliases" validate:"dive,required"`

	// Endpoints optionally overrides the backend URL per action.
	Endpoints Endpoints `json:"endpoints,omitzero" yaml:"endpoints"`

	// Active is false for devices kept in storage but hidden from interpretation.
	Active bool `json:"active" yaml:"active" db:"is_active"`
}

// Endpoints holds the per-action backend URLs of a device.
type Endpoints struct {
	On     string `json:"on,omitempty" yaml:"on" db:"endpoint_on"`
	Off    string `json:"off,omitempty" yaml:"off" db:"endpoint_off"`
	Open   string `json:"open,omitempty" yaml:"open" db:"endpoint_open"`
	Close  string `json:"close,omitempty" yaml:"close" db:"endpoint_close"`
	Status string `json:"status,omitempty" yaml:"status" db:"endpoint_status"`
}

// For returns the endpoint configured for an action verb, or "".
func (e Endpoints) For(action string) string {
	switch action {
	case "on":
		return e.On
	case "off":
		return e.Off
	case "open":
		return e.Open
	case "close":
		return e.Close
	case "status":
		return e.Status
	default:
		return ""
	}
}

// Interpretation is the pipeline's sole output contract.
type Interpretation struct {
	Intent Intent `json:"intent"`

	// Device is the resolved device key, empty when no device was identified.
	Device string `json:"device"`

	Negated bool `json:"negated"`
}

// MarshalJSON encodes an empty device as null.
func (r Interpretation) MarshalJSON() ([]byte, error) {
	out := struct {
		Intent  Intent  `json:"intent"`
		Device  *string `json:"device"`
		Negated bool    `json:"negated"`
	}{Intent: r.Intent, Negated: r.Negated}
	if r.Device != "" {
		out.Device = &r.Device
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts a null or string device.
func (r *Interpretation) UnmarshalJSON(data []byte) error {
	var in struct {
		Intent  string  `json:"intent"`
		Device  *string `json:"device"`
		Negated bool    `json:"negated"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Intent = ParseIntent(in.Intent)
	r.Device = ""
	if in.Device != nil {
		r.Device = *in.Device
	}
	r.Negated = in.Negated
	return nil
}

// CommandRequest is a natural-language command submitted by a client.
type CommandRequest struct {
	// Text is the utterance to interpret (e.g., "enciende la luz del comedor").
	Text string `json:"text" validate:"required,max=500"`
}

// InterpretResponse is the outcome of interpreting a command.
type InterpretResponse struct {
	// RequestID correlates the response with server logs.
	RequestID string `json:"request_id"`

	Success bool `json:"success"`

	Data Interpretation `json:"data"`

	OriginalText string `json:"original_text"`

	// ConfidenceNote explains a low-confidence or degraded result.
	ConfidenceNote string `json:"confidence_note,omitempty"`

	// Error is set if processing failed.
	Error string `json:"error,omitempty"`
}

// Execution describes what happened when an interpretation was executed.
type Execution struct {
	Executed bool `json:"executed"`

	// EndpointCalled is the backend URL that was called, if any.
	EndpointCalled string `json:"endpoint_called,omitempty"`

	StatusCode int `json:"status_code,omitempty"`

	// Response is the decoded backend body (JSON value or truncated text).
	Response any `json:"response,omitempty"`

	// Reason explains why nothing was executed.
	Reason string `json:"reason,omitempty"`

	// Message is a user-facing acknowledgment.
	Message string `json:"message,omitempty"`

	// Error is set when the backend call failed.
	Error string `json:"error,omitempty"`
}

// ExecuteResponse is the outcome of interpreting and executing a command.
type ExecuteResponse struct {
	RequestID      string         `json:"request_id"`
	Success        bool           `json:"success"`
	Interpretation Interpretation `json:"interpretation"`
	Execution      Execution      `json:"execution"`
	OriginalText   string         `json:"original_text"`
	ConfidenceNote string         `json:"confidence_note,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// DeviceList is the current device catalog.
type DeviceList struct {
	Count   int      `json:"count"`
	Devices []Device `json:"devices"`
}

// ReloadResponse reports the outcome of a device reload.
type ReloadResponse struct {
	Success bool   `json:"success"`
	Devices int    `json:"devices"`
	Message string `json:"message"`
}

// HealthResponse reports service and fallback status.
type HealthResponse struct {
	Status         string    `json:"status"`
	Service        string    `json:"service"`
	Version        string    `json:"version"`
	FallbackStatus string    `json:"fallback_status"`
	Devices        int       `json:"devices"`
	CheckedAt      time.Time `json:"checked_at"`

	// FallbackCheckedAt is when fallback availability was last refreshed.
	FallbackCheckedAt time.Time `json:"fallback_checked_at,omitzero"`
}
