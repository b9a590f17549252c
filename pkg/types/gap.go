// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// GapReason explains why a field was reported as a gap.
type GapReason string

const (
	GapAbsent      GapReason = "absent"
	GapEmpty       GapReason = "empty"
	GapPlaceholder GapReason = "placeholder"
)

// Gap is a missing or low-information field of a topic's record. Gaps are
// derived from the current record every round and never stored.
type Gap struct {
	Topic    Topic     `json:"topic" yaml:"topic"`
	Field    string    `json:"field" yaml:"field"`
	Priority Priority  `json:"priority" yaml:"priority"`
	Reason   GapReason `json:"reason" yaml:"reason"`

	// Context describes what is missing, for query planning and reports.
	Context string `json:"context,omitempty" yaml:"context,omitempty"`
}

// Key identifies the (topic, field) pair the gap refers to.
func (g Gap) Key() GapKey {
	return GapKey{Topic: g.Topic, Field: g.Field}
}

// GapKey identifies a (topic, field) pair.
type GapKey struct {
	Topic Topic
	Field string
}

// CountBlocking returns the number of CRITICAL and HIGH gaps.
func CountBlocking(gaps []Gap) int {
	n := 0
	for _, g := range gaps {
		if g.Priority.Blocking() {
			n++
		}
	}
	return n
}
