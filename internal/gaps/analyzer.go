// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gaps finds missing and low-information fields in a topic's record
// against a declared field schema.
package gaps

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/pdiddy/company-research/pkg/types"
)

// Analyze returns the gaps in rec for topic, ordered CRITICAL first, then
// HIGH, MEDIUM, LOW, with ties broken by the field's declaration order in
// the schema. Absent and empty fields are reported at the field's declared
// priority; present fields holding placeholder data one level lower.
// Analyze performs no I/O and does not modify its inputs; identical inputs
// always produce identical output.
func Analyze(topic types.Topic, rec types.Record, schema *Schema) []types.Gap {
	ts, ok := schema.Topic(topic)
	if !ok {
		return nil
	}

	var gaps []types.Gap
	for _, f := range ts.Fields {
		v := rec.Get(f.Name)
		switch v.State {
		case types.FieldAbsent:
			gaps = append(gaps, newGap(topic, f, f.Priority, types.GapAbsent))
		case types.FieldEmpty:
			gaps = append(gaps, newGap(topic, f, f.Priority, types.GapEmpty))
		case types.FieldPresent:
			if schema.LowInformation(v.Value) {
				gaps = append(gaps, newGap(topic, f, f.Priority.Lower(), types.GapPlaceholder))
			}
		}
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].Priority < gaps[j].Priority
	})
	return gaps
}

func newGap(topic types.Topic, f FieldSpec, p types.Priority, reason types.GapReason) types.Gap {
	ctx := f.Description
	if ctx == "" {
		ctx = fmt.Sprintf("%s %s data", p, strings.ReplaceAll(f.Name, "_", " "))
	}
	if reason == types.GapPlaceholder {
		ctx = "low-information value for " + ctx
	} else {
		ctx = "missing " + ctx
	}
	return types.Gap{
		Topic:    topic,
		Field:    f.Name,
		Priority: p,
		Reason:   reason,
		Context:  ctx,
	}
}

// LowInformation reports whether a present value carries no usable data: a
// blank or placeholder string, an empty collection, or a collection whose
// members are all nil or low-information.
func (s *Schema) LowInformation(v any) bool {
	if v == nil {
		return true
	}
	if str, ok := v.(string); ok {
		return strings.TrimSpace(str) == "" || s.isPlaceholder(str)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if !s.LowInformation(rv.Index(i).Interface()) {
				return false
			}
		}
		return true
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if !s.LowInformation(iter.Value().Interface()) {
				return false
			}
		}
		return true
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return s.LowInformation(rv.Elem().Interface())
	}
	return false
}

// Blocking returns the CRITICAL and HIGH gaps, preserving order.
func Blocking(gaps []types.Gap) []types.Gap {
	var out []types.Gap
	for _, g := range gaps {
		if g.Priority.Blocking() {
			out = append(out, g)
		}
	}
	return out
}
