// Package catalog serves the static school list shown in the registration Flow.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed schools.yaml
var defaultSchools []byte

// School is one selectable entry in the Flow's school dropdown.
type School struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

// Provider supplies the school list.
type Provider interface {
	Schools() []School
}

// Static is an immutable in-memory Provider.
type Static struct {
	schools []School
}

type document struct {
	Schools []School `yaml:"schools"`
}

// Default returns the built-in catalog.
func Default() *Static {
	s, err := Parse(defaultSchools)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded schools.yaml: %v", err))
	}
	return s
}

// Load reads a catalog file, or returns the built-in catalog when path is empty.
func Load(path string) (*Static, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML catalog document.
func Parse(raw []byte) (*Static, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if len(doc.Schools) == 0 {
		return nil, errors.New("catalog: no schools defined")
	}
	seen := make(map[string]struct{}, len(doc.Schools))
	for i, school := range doc.Schools {
		if school.ID == "" || school.Title == "" {
			return nil, fmt.Errorf("catalog: school %d is missing id or title", i)
		}
		if _, dup := seen[school.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate school id %q", school.ID)
		}
		seen[school.ID] = struct{}{}
	}
	return &Static{schools: doc.Schools}, nil
}

// Schools returns a copy of the catalog.
func (s *Static) Schools() []School {
	out := make([]School, len(s.schools))
	copy(out, s.schools)
	return out
}
