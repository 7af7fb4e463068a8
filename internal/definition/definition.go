// Package definition loads declarative machine descriptions from YAML or
// JSON and builds them into running machines of stateful.Node.
package definition

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/comalice/stateful"
)

// Format is a definition encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

var (
	ErrNoStates      = errors.New("definition has no states")
	ErrEmptyName     = errors.New("state name is empty")
	ErrDuplicateName = errors.New("duplicate state name")
	ErrUnknownStart  = errors.New("start state not found")
	ErrFormat        = errors.New("unsupported definition format")
)

// Definition describes a machine: its ordered states, the state to start
// in, and the reentry policy.
type Definition struct {
	ID           string     `json:"id,omitempty" yaml:"id,omitempty"`
	Start        string     `json:"start,omitempty" yaml:"start,omitempty"`
	AllowReentry bool       `json:"allowReentry,omitempty" yaml:"allowReentry,omitempty"`
	Verbose      bool       `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	States       []StateDef `json:"states" yaml:"states"`
}

// StateDef describes one state.
type StateDef struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate checks that the definition can be built:
// - At least one state
// - Non-empty, unique state names
// - Start, when set, names one of the states
func (d *Definition) Validate() error {
	if len(d.States) == 0 {
		return ErrNoStates
	}
	seen := make(map[string]int, len(d.States))
	for i, s := range d.States {
		if s.Name == "" {
			return fmt.Errorf("state %d: %w", i, ErrEmptyName)
		}
		if prev, ok := seen[s.Name]; ok {
			return fmt.Errorf("state %d %q (first at %d): %w", i, s.Name, prev, ErrDuplicateName)
		}
		seen[s.Name] = i
	}
	if d.Start != "" {
		if _, ok := seen[d.Start]; !ok {
			return fmt.Errorf("start %q: %w", d.Start, ErrUnknownStart)
		}
	}
	return nil
}

// Names returns the state names in order.
func (d *Definition) Names() []string {
	names := make([]string, len(d.States))
	for i, s := range d.States {
		names[i] = s.Name
	}
	return names
}

// Build validates d and creates one node per state and a machine over
// them. start is nil when the definition has no starting state. opts are
// applied after the definition's own settings, so callers can override
// them (typically with a logger).
func (d *Definition) Build(opts ...stateful.Option) (m *stateful.Machine[*stateful.Node], start *stateful.Node, err error) {
	if err := d.Validate(); err != nil {
		return nil, nil, err
	}

	nodes := make([]*stateful.Node, len(d.States))
	for i, s := range d.States {
		nodes[i] = stateful.NewNode(s.Name, nil)
		if s.Name == d.Start {
			start = nodes[i]
		}
	}

	all := []stateful.Option{
		stateful.WithID(d.ID),
		stateful.WithReentry(d.AllowReentry),
		stateful.WithVerbose(d.Verbose),
	}
	all = append(all, opts...)

	m, err = stateful.NewMachine(nodes, all...)
	if err != nil {
		return nil, nil, fmt.Errorf("build machine: %w", err)
	}
	return m, start, nil
}

// Parse decodes and validates a definition.
func Parse(data []byte, format Format) (*Definition, error) {
	var d Definition
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("yaml unmarshal: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("json unmarshal: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, format)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrFormat, path)
	}
}

// Load reads and parses the definition at path. A definition without an
// ID takes the file's base name.
func Load(path string) (*Definition, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	d, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if d.ID == "" {
		d.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return d, nil
}

// Save writes d to path in the format implied by its extension.
func Save(path string, d *Definition) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(d, "", "  ")
	default:
		data, err = yaml.Marshal(d)
	}
	if err != nil {
		return fmt.Errorf("%s marshal: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
