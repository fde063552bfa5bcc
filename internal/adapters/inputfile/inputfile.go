// Package inputfile reads crew inputs from YAML or JSON files and from
// key=value command-line assignments.
package inputfile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"icebreaker/internal/core/domain"
)

// Load reads a mapping of inputs from path. JSON files parse as YAML.
func Load(path string) (domain.Inputs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("inputfile: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON document whose top level is a mapping.
func Parse(data []byte) (domain.Inputs, error) {
	var in map[string]any
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("inputfile: decode: %w", err)
	}
	if in == nil {
		in = map[string]any{}
	}
	return domain.Inputs(in), nil
}

// Apply merges key=value assignments into in, overriding existing keys.
// Values are kept as strings.
func Apply(in domain.Inputs, assignments []string) (domain.Inputs, error) {
	if in == nil {
		in = domain.Inputs{}
	}
	for _, a := range assignments {
		key, value, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("inputfile: expected key=value, got %q", a)
		}
		in[key] = value
	}
	return in, nil
}

// Assignments collects repeated -set flags.
type Assignments []string

func (a *Assignments) String() string { return strings.Join(*a, ",") }

func (a *Assignments) Set(v string) error {
	*a = append(*a, v)
	return nil
}
