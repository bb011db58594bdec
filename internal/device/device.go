// Package device supplies device snapshots to the interpreter: an ordered
// JSON/YAML file, a SQL repository, and a watcher that reloads the file when
// it changes. Every snapshot is validated before it is handed out.
package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/nadzzz/domus/internal/message"
)

// ErrNotFound is returned when a device key does not exist.
var ErrNotFound = errors.New("device not found")

// Source loads a complete device snapshot.
type Source interface {
	Load(ctx context.Context) ([]message.Device, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every record and rejects duplicate keys.
func Validate(devices []message.Device) error {
	seen := make(map[string]bool, len(devices))
	for i := range devices {
		d := &devices[i]
		if err := validate.Struct(d); err != nil {
			return fmt.Errorf("device %d (%q): %w", i, d.Key, err)
		}
		if seen[d.Key] {
			return fmt.Errorf("device %d: duplicate key %q", i, d.Key)
		}
		seen[d.Key] = true
	}
	return nil
}

// Active filters out inactive devices, keeping order.
func Active(devices []message.Device) []message.Device {
	out := make([]message.Device, 0, len(devices))
	for _, d := range devices {
		if d.Active {
			out = append(out, d)
		}
	}
	return out
}
