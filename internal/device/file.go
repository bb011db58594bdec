package device

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nadzzz/domus/internal/message"
)

// FileSource reads devices from a JSON or YAML file. Two layouts are
// accepted, both with order preserved:
//
//	{"devices": {"luz_sala": {"name": ..., "type": ..., ...}, ...}}
//	{"devices": [{"device_key": "luz_sala", ...}, ...]}
type FileSource struct {
	path string
}

// NewFileSource creates a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the file path.
func (s *FileSource) Path() string { return s.path }

// Load reads, parses and validates the file. Inactive devices are dropped.
func (s *FileSource) Load(_ context.Context) ([]message.Device, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading devices file: %w", err)
	}
	devices, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return Active(devices), nil
}

// fileDevice is the on-disk record. Active defaults to true.
type fileDevice struct {
	Key       string             `yaml:"device_key"`
	Name      string             `yaml:"name"`
	Type      message.DeviceType `yaml:"type"`
	Room      string             `yaml:"room"`
	Aliases   []string           `yaml:"aliases"`
	Endpoints message.Endpoints  `yaml:"endpoints"`
	Active    *bool              `yaml:"active"`
}

func (f fileDevice) device() message.Device {
	d := message.Device{
		Key:       f.Key,
		Name:      f.Name,
		Type:      f.Type,
		Room:      f.Room,
		Aliases:   f.Aliases,
		Endpoints: f.Endpoints,
		Active:    f.Active == nil || *f.Active,
	}
	if d.Type == "" {
		d.Type = message.DeviceOther
	}
	return d
}

// Parse decodes a devices document (JSON is valid YAML) and validates it.
func Parse(data []byte) ([]message.Device, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("empty document")
	}

	root := doc.Content[0]
	list := root
	if root.Kind == yaml.MappingNode {
		list = mappingValue(root, "devices")
		if list == nil {
			return nil, errors.New(`missing "devices"`)
		}
	}

	var devices []message.Device
	switch list.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(list.Content); i += 2 {
			var f fileDevice
			if err := list.Content[i+1].Decode(&f); err != nil {
				return nil, fmt.Errorf("device %q: %w", list.Content[i].Value, err)
			}
			f.Key = list.Content[i].Value
			devices = append(devices, f.device())
		}
	case yaml.SequenceNode:
		for i, n := range list.Content {
			var f fileDevice
			if err := n.Decode(&f); err != nil {
				return nil, fmt.Errorf("device %d: %w", i, err)
			}
			devices = append(devices, f.device())
		}
	default:
		return nil, errors.New(`"devices" must be a mapping or a list`)
	}

	if err := Validate(devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
