// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package refine plans follow-up queries for open gaps and remembers which
// queries each gap has already been sent, so refinement never repeats itself.
package refine

import (
	"strings"

	"github.com/pdiddy/company-research/pkg/types"
)

// Attempt is one query issued for a gap.
type Attempt struct {
	Query string
	Round int
}

// History records the refinement queries issued per (topic, field) for the
// lifetime of one run. It is owned by the orchestrator's control loop and is
// not safe for concurrent use.
type History struct {
	attempts map[types.GapKey][]Attempt
	seen     map[types.GapKey]map[string]bool
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{
		attempts: make(map[types.GapKey][]Attempt),
		seen:     make(map[types.GapKey]map[string]bool),
	}
}

// Append records queries issued for key in round. Queries already present
// (after normalization) are skipped.
func (h *History) Append(key types.GapKey, round int, queries ...string) {
	seen := h.seen[key]
	if seen == nil {
		seen = make(map[string]bool)
		h.seen[key] = seen
	}
	for _, q := range queries {
		n := Normalize(q)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		h.attempts[key] = append(h.attempts[key], Attempt{Query: q, Round: round})
	}
}

// Contains reports whether q, normalized, was already issued for key.
func (h *History) Contains(key types.GapKey, q string) bool {
	return h.seen[key][Normalize(q)]
}

// Attempts returns the number of queries issued for key.
func (h *History) Attempts(key types.GapKey) int {
	return len(h.attempts[key])
}

// Queries returns the queries issued for key in issue order.
func (h *History) Queries(key types.GapKey) []string {
	out := make([]string, len(h.attempts[key]))
	for i, a := range h.attempts[key] {
		out[i] = a.Query
	}
	return out
}

// LastRound returns the round in which the most recent query for key was
// issued, or 0 if none was.
func (h *History) LastRound(key types.GapKey) int {
	a := h.attempts[key]
	if len(a) == 0 {
		return 0
	}
	return a[len(a)-1].Round
}

// Total returns the number of queries issued across all gaps.
func (h *History) Total() int {
	n := 0
	for _, a := range h.attempts {
		n += len(a)
	}
	return n
}

// Normalize lowercases q and collapses runs of whitespace to single spaces.
// Two queries with the same normalized form are duplicates.
func Normalize(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
