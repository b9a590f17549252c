// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gaps

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/company-research/pkg/types"
)

// FieldSpec declares one expected field of a topic's record.
type FieldSpec struct {
	Name     string         `json:"name" yaml:"name"`
	Priority types.Priority `json:"priority" yaml:"priority"`

	// Description says what the field holds; it becomes the gap context.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Queries are refinement query templates tried before the generic angles.
	// Placeholders: {company}, {field}, {topic}, {year}.
	Queries []string `json:"queries,omitempty" yaml:"queries,omitempty"`
}

// TopicSchema lists a topic's fields in declaration order, which breaks
// priority ties in gap ordering.
type TopicSchema struct {
	Fields []FieldSpec `json:"fields" yaml:"fields"`

	// Queries are the topic's default (unrefined) query templates for the
	// initial round.
	Queries []string `json:"queries,omitempty" yaml:"queries,omitempty"`
}

// Field returns the spec for name.
func (ts TopicSchema) Field(name string) (FieldSpec, bool) {
	for _, f := range ts.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Schema declares the expected fields for every topic plus the strings the
// placeholder detector treats as low-information.
type Schema struct {
	Topics       map[types.Topic]TopicSchema `json:"topics" yaml:"topics"`
	Placeholders []string                    `json:"placeholders,omitempty" yaml:"placeholders,omitempty"`
}

// DefaultPlaceholders are the low-information strings used when a schema
// declares none.
var DefaultPlaceholders = []string{
	"unknown", "n/a", "na", "none", "not available", "not found", "tbd", "-",
}

// Topic returns the schema for t.
func (s *Schema) Topic(t types.Topic) (TopicSchema, bool) {
	ts, ok := s.Topics[t]
	return ts, ok
}

// FieldCounts returns the number of declared fields per topic.
func (s *Schema) FieldCounts() map[types.Topic]int {
	counts := make(map[types.Topic]int, len(s.Topics))
	for t, ts := range s.Topics {
		counts[t] = len(ts.Fields)
	}
	return counts
}

// Validate checks topic names, field names, and priorities.
func (s *Schema) Validate() error {
	if len(s.Topics) == 0 {
		return fmt.Errorf("schema declares no topics")
	}
	for t, ts := range s.Topics {
		if !t.Valid() {
			return fmt.Errorf("schema: unknown topic %q", t)
		}
		if len(ts.Fields) == 0 {
			return fmt.Errorf("schema: topic %s declares no fields", t)
		}
		seen := make(map[string]bool, len(ts.Fields))
		for i, f := range ts.Fields {
			if strings.TrimSpace(f.Name) == "" {
				return fmt.Errorf("schema: topic %s field %d has no name", t, i)
			}
			if seen[f.Name] {
				return fmt.Errorf("schema: topic %s declares field %q twice", t, f.Name)
			}
			seen[f.Name] = true
			if f.Priority < types.PriorityCritical || f.Priority > types.PriorityLow {
				return fmt.Errorf("schema: topic %s field %s has invalid priority %d", t, f.Name, int(f.Priority))
			}
		}
	}
	return nil
}

func (s *Schema) isPlaceholder(text string) bool {
	list := s.Placeholders
	if len(list) == 0 {
		list = DefaultPlaceholders
	}
	norm := strings.ToLower(strings.TrimSpace(text))
	for _, p := range list {
		if strings.ToLower(strings.TrimSpace(p)) == norm {
			return true
		}
	}
	return false
}

// LoadSchema reads and validates a YAML schema file.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing schema %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// WriteSchema marshals s as YAML to path.
func WriteSchema(path string, s *Schema) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
