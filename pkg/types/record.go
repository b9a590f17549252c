// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// FieldState distinguishes a field that was never attempted (absent) from one
// that was attempted but not found (empty) and one that holds a value.
type FieldState int

const (
	FieldAbsent FieldState = iota
	FieldEmpty
	FieldPresent
)

var fieldStateNames = [...]string{"absent", "empty", "present"}

// String returns the lowercase state name.
func (s FieldState) String() string {
	if s < FieldAbsent || s > FieldPresent {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return fieldStateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s FieldState) MarshalText() ([]byte, error) {
	if s < FieldAbsent || s > FieldPresent {
		return nil, fmt.Errorf("invalid field state %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *FieldState) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range fieldStateNames {
		if n == name {
			*s = FieldState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown field state %q", string(text))
}

// FieldValue is one field of a Record. Value is only meaningful when State is
// FieldPresent and holds JSON/YAML-compatible data (string, number, bool,
// []any, map[string]any).
type FieldValue struct {
	State FieldState `json:"state" yaml:"state"`
	Value any        `json:"value,omitempty" yaml:"value,omitempty"`
}

// Absent returns a FieldValue for a field that was never attempted.
func Absent() FieldValue { return FieldValue{State: FieldAbsent} }

// Empty returns a FieldValue for a field that was attempted but not found.
func Empty() FieldValue { return FieldValue{State: FieldEmpty} }

// Present returns a FieldValue holding v.
func Present(v any) FieldValue { return FieldValue{State: FieldPresent, Value: v} }

// ValueOf classifies a raw extracted value: nil means the extractor looked
// and found nothing (empty); anything else is present. Low-information values
// such as "" or [] stay present and are flagged later by the gap analyzer.
func ValueOf(v any) FieldValue {
	if v == nil {
		return Empty()
	}
	return Present(v)
}

// IsPresent reports whether the field holds a value.
func (f FieldValue) IsPresent() bool { return f.State == FieldPresent }

// Record maps field names to field values for one topic. A field missing from
// the map reads as absent.
type Record map[string]FieldValue

// Get returns the value of field, or Absent if the record has no entry.
func (r Record) Get(field string) FieldValue {
	if v, ok := r[field]; ok {
		return v
	}
	return Absent()
}

// PresentCount returns the number of fields holding a value.
func (r Record) PresentCount() int {
	n := 0
	for _, v := range r {
		if v.IsPresent() {
			n++
		}
	}
	return n
}

// Clone returns a shallow copy of the record. Field values are treated as
// immutable once stored, so sharing them is safe.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RecordFromMap builds a Record from decoded JSON/YAML data using ValueOf for
// each entry. Keys not in m stay absent.
func RecordFromMap(m map[string]any) Record {
	r := make(Record, len(m))
	for k, v := range m {
		r[k] = ValueOf(v)
	}
	return r
}

// AgentResult is the success payload of one Agent Invoker call: a partial
// record, the source identifiers consulted, and a confidence estimate in [0,1].
type AgentResult struct {
	Record     Record   `json:"record" yaml:"record"`
	Sources    []string `json:"sources" yaml:"sources"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
}
