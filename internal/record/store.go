// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package record

import (
	"fmt"

	"github.com/pdiddy/company-research/pkg/types"
)

// Entry is the current best-known state of one topic.
type Entry struct {
	Topic      types.Topic
	Record     types.Record
	Sources    []string
	Confidence float64

	// Merges counts successful merges applied to this topic.
	Merges int

	sourceSet map[string]bool
}

// ApplyResult reports what one merge changed.
type ApplyResult struct {
	FieldsFilled int
	NewSources   []string
	Confidence   float64
}

// Store holds every topic's record, provenance, and confidence for one run.
// It has no locking: a single control loop owns it and applies results after
// each agent call returns.
type Store struct {
	entries map[types.Topic]*Entry
	lowInfo LowInfoFunc

	// fieldCounts maps a topic to its schema size, used to weight confidence.
	fieldCounts map[types.Topic]int

	seen    map[string]bool
	sources []string
}

// NewStore creates empty records for topics. fieldCounts gives each topic's
// declared field count; topics without an entry weight confidence by the
// merged record size instead. lowInfo decides which present values Merge
// treats as placeholders.
func NewStore(topics []types.Topic, fieldCounts map[types.Topic]int, lowInfo LowInfoFunc) *Store {
	s := &Store{
		entries:     make(map[types.Topic]*Entry, len(topics)),
		lowInfo:     lowInfo,
		fieldCounts: fieldCounts,
		seen:        make(map[string]bool),
	}
	for _, t := range topics {
		s.entries[t] = &Entry{
			Topic:     t,
			Record:    types.Record{},
			sourceSet: make(map[string]bool),
		}
	}
	return s
}

// Record returns the current record for t. Callers must not modify it.
func (s *Store) Record(t types.Topic) types.Record {
	if e, ok := s.entries[t]; ok {
		return e.Record
	}
	return nil
}

// Entry returns a copy of the entry for t.
func (s *Store) Entry(t types.Topic) (Entry, bool) {
	e, ok := s.entries[t]
	if !ok {
		return Entry{}, false
	}
	out := *e
	out.Sources = append([]string(nil), e.Sources...)
	out.sourceSet = nil
	return out, true
}

// Sources returns every source identifier seen in the run, deduplicated
// case-sensitively, in first-seen order.
func (s *Store) Sources() []string {
	return append([]string(nil), s.sources...)
}

// Apply merges an agent result into topic t. Sources already seen anywhere in
// the run are not reported as new, though they are still added to t's
// provenance if t had not cited them before.
func (s *Store) Apply(t types.Topic, result types.AgentResult) (ApplyResult, error) {
	e, ok := s.entries[t]
	if !ok {
		return ApplyResult{}, fmt.Errorf("topic %q is not part of this run", t)
	}

	merged, filled := Merge(e.Record, result.Record, s.lowInfo)

	if e.Merges == 0 {
		e.Confidence = clamp01(result.Confidence)
	} else {
		fieldCount := s.fieldCounts[t]
		if fieldCount <= 0 {
			fieldCount = len(merged)
		}
		e.Confidence = BlendConfidence(e.Confidence, result.Confidence, filled, fieldCount)
	}
	e.Record = merged
	e.Merges++

	var fresh []string
	for _, src := range result.Sources {
		if src == "" {
			continue
		}
		if !e.sourceSet[src] {
			e.sourceSet[src] = true
			e.Sources = append(e.Sources, src)
		}
		if !s.seen[src] {
			s.seen[src] = true
			s.sources = append(s.sources, src)
			fresh = append(fresh, src)
		}
	}

	return ApplyResult{
		FieldsFilled: filled,
		NewSources:   fresh,
		Confidence:   e.Confidence,
	}, nil
}
