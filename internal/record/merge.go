// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package record holds the per-topic record store and the non-destructive
// merge applied after every agent round.
package record

import (
	"math"
	"reflect"

	"github.com/pdiddy/company-research/pkg/types"
)

// LowInfoFunc reports whether a present value carries no usable data, such as
// a blank string, a placeholder like "unknown", or an empty list. A nil
// LowInfoFunc treats every present value as meaningful.
type LowInfoFunc func(v any) bool

func (f LowInfoFunc) meaningful(v types.FieldValue) bool {
	if !v.IsPresent() {
		return false
	}
	return f == nil || !f(v.Value)
}

// Merge folds partial into old and returns the merged record along with the
// number of fields that became present with a meaningful value.
//
// For every field in the union of both records:
//   - partial absent: the old value is kept;
//   - partial empty: the old value is kept if present, otherwise the field
//     becomes empty (an attempt was made);
//   - partial present and meaningful: the newer value wins;
//   - partial present but low-information: a meaningful old value is kept,
//     otherwise the placeholder is stored and counts as no change.
//
// A present field therefore never regresses to empty or absent, and a
// meaningful value is never replaced by a placeholder. Neither input is
// modified.
func Merge(old, partial types.Record, lowInfo LowInfoFunc) (types.Record, int) {
	merged := old.Clone()
	changed := 0

	for field, incoming := range partial {
		prev := old.Get(field)
		switch incoming.State {
		case types.FieldAbsent:
			continue
		case types.FieldEmpty:
			if !prev.IsPresent() {
				merged[field] = types.Empty()
			}
		case types.FieldPresent:
			if !lowInfo.meaningful(incoming) {
				if !lowInfo.meaningful(prev) {
					merged[field] = incoming
				}
				continue
			}
			merged[field] = incoming
			if !lowInfo.meaningful(prev) {
				changed++
			}
		}
	}
	return merged, changed
}

// Equal reports whether two records hold the same states and values. Absent
// entries compare equal to missing keys.
func Equal(a, b types.Record) bool {
	for field, av := range a {
		if !fieldEqual(av, b.Get(field)) {
			return false
		}
	}
	for field, bv := range b {
		if !fieldEqual(a.Get(field), bv) {
			return false
		}
	}
	return true
}

func fieldEqual(a, b types.FieldValue) bool {
	if a.State != b.State {
		return false
	}
	if a.State != types.FieldPresent {
		return true
	}
	return reflect.DeepEqual(a.Value, b.Value)
}

// BlendConfidence combines the stored confidence with a newer round's
// estimate. The newer estimate is weighted by the fraction of fields it newly
// populated, and the result never drops below old: a round that adds nothing
// leaves confidence unchanged.
func BlendConfidence(old, incoming float64, newlyPopulated, fieldCount int) float64 {
	old = clamp01(old)
	incoming = clamp01(incoming)
	if fieldCount <= 0 || newlyPopulated <= 0 {
		return old
	}
	w := float64(newlyPopulated) / float64(fieldCount)
	if w > 1 {
		w = 1
	}
	blended := (1-w)*old + w*incoming
	return math.Max(old, blended)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
