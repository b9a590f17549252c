// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package record

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/company-research/internal/gaps"
	"github.com/pdiddy/company-research/pkg/types"
)

var placeholder = LowInfoFunc(gaps.DefaultSchema().LowInformation)

func TestMerge(t *testing.T) {
	tests := []struct {
		name        string
		old         types.Record
		partial     types.Record
		want        types.Record
		wantChanged int
	}{
		{
			name:        "absent to present counts as filled",
			old:         types.Record{},
			partial:     types.Record{"revenue": types.Present("$10M")},
			want:        types.Record{"revenue": types.Present("$10M")},
			wantChanged: 1,
		},
		{
			name:        "empty to present counts as filled",
			old:         types.Record{"revenue": types.Empty()},
			partial:     types.Record{"revenue": types.Present("$10M")},
			want:        types.Record{"revenue": types.Present("$10M")},
			wantChanged: 1,
		},
		{
			name:        "newer present value replaces older",
			old:         types.Record{"revenue": types.Present("$10M")},
			partial:     types.Record{"revenue": types.Present("$12M")},
			want:        types.Record{"revenue": types.Present("$12M")},
			wantChanged: 0,
		},
		{
			name:        "empty never overwrites present",
			old:         types.Record{"revenue": types.Present("$10M")},
			partial:     types.Record{"revenue": types.Empty()},
			want:        types.Record{"revenue": types.Present("$10M")},
			wantChanged: 0,
		},
		{
			name:        "explicit absent never overwrites present",
			old:         types.Record{"revenue": types.Present("$10M")},
			partial:     types.Record{"revenue": types.Absent()},
			want:        types.Record{"revenue": types.Present("$10M")},
			wantChanged: 0,
		},
		{
			name:        "empty marks an absent field as attempted",
			old:         types.Record{},
			partial:     types.Record{"funding": types.Empty()},
			want:        types.Record{"funding": types.Empty()},
			wantChanged: 0,
		},
		{
			name: "union of field sets",
			old:  types.Record{"revenue": types.Present("$10M"), "funding": types.Empty()},
			partial: types.Record{
				"profitability": types.Present(true),
				"funding":       types.Present("Series B"),
			},
			want: types.Record{
				"revenue":       types.Present("$10M"),
				"funding":       types.Present("Series B"),
				"profitability": types.Present(true),
			},
			wantChanged: 2,
		},
		{
			name:        "blank string never overwrites meaningful value",
			old:         types.Record{"revenue": types.Present("$10M")},
			partial:     types.Record{"revenue": types.Present("")},
			want:        types.Record{"revenue": types.Present("$10M")},
			wantChanged: 0,
		},
		{
			name:        "placeholder never overwrites meaningful value",
			old:         types.Record{"ceo": types.Present("Jane Doe")},
			partial:     types.Record{"ceo": types.Present("unknown")},
			want:        types.Record{"ceo": types.Present("Jane Doe")},
			wantChanged: 0,
		},
		{
			name:        "empty list never overwrites meaningful list",
			old:         types.Record{"products": types.Present([]any{"A"})},
			partial:     types.Record{"products": types.Present([]any{})},
			want:        types.Record{"products": types.Present([]any{"A"})},
			wantChanged: 0,
		},
		{
			name:        "placeholder for an absent field is stored but not counted",
			old:         types.Record{},
			partial:     types.Record{"revenue": types.Present("N/A")},
			want:        types.Record{"revenue": types.Present("N/A")},
			wantChanged: 0,
		},
		{
			name:        "meaningful value replacing a placeholder counts as filled",
			old:         types.Record{"ownership": types.Present("unknown")},
			partial:     types.Record{"ownership": types.Present("private")},
			want:        types.Record{"ownership": types.Present("private")},
			wantChanged: 1,
		},
		{
			name:        "newer placeholder replaces older placeholder",
			old:         types.Record{"ownership": types.Present("unknown")},
			partial:     types.Record{"ownership": types.Present("tbd")},
			want:        types.Record{"ownership": types.Present("tbd")},
			wantChanged: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Merge(tt.old, tt.partial, placeholder)
			assert.True(t, Equal(tt.want, got), "got %v, want %v", got, tt.want)
			assert.Equal(t, tt.wantChanged, changed)
		})
	}
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	old := types.Record{"revenue": types.Empty()}
	partial := types.Record{"revenue": types.Present("$10M")}

	_, _ = Merge(old, partial, placeholder)

	assert.Equal(t, types.FieldEmpty, old["revenue"].State)
	assert.Equal(t, types.FieldPresent, partial["revenue"].State)
}

func TestMerge_LowInformationKeepsEveryMeaningfulField(t *testing.T) {
	old := types.Record{
		"revenue":  types.Present("$10B"),
		"ceo":      types.Present("Jane Doe"),
		"products": types.Present([]any{"A"}),
	}
	partial := types.Record{
		"revenue":  types.Present(""),
		"ceo":      types.Present("unknown"),
		"products": types.Present([]any{}),
	}

	merged, changed := Merge(old, partial, placeholder)
	assert.True(t, Equal(old, merged), "got %v", merged)
	assert.Zero(t, changed)
}

func TestMerge_NilLowInfoTreatsEveryValueAsMeaningful(t *testing.T) {
	merged, changed := Merge(
		types.Record{"revenue": types.Present("$10M")},
		types.Record{"revenue": types.Present("unknown")},
		nil,
	)
	assert.Equal(t, types.Present("unknown"), merged["revenue"])
	assert.Zero(t, changed)

	_, changed = Merge(types.Record{}, types.Record{"revenue": types.Present("N/A")}, nil)
	assert.Equal(t, 1, changed)
}

func TestMerge_Idempotent(t *testing.T) {
	records := []types.Record{
		{},
		{"revenue": types.Present("$10M")},
		{"revenue": types.Present(map[string]any{"current": 10.0}), "funding": types.Empty()},
		{"competitors": types.Present([]any{"Acme", "Globex"}), "swot": types.Absent()},
		{"revenue": types.Present("unknown"), "ceo": types.Present([]any{})},
	}
	for _, r := range records {
		merged, changed := Merge(r, r.Clone(), placeholder)
		assert.True(t, Equal(r, merged), "merge(r, r) changed %v into %v", r, merged)
		assert.Zero(t, changed)
	}
}

func TestMerge_MonotonicPresence(t *testing.T) {
	rounds := []types.Record{
		{"revenue": types.Present("$10M")},
		{"revenue": types.Empty(), "funding": types.Empty()},
		{"revenue": types.Present("unknown")},
		{"funding": types.Present("Series A")},
		{"revenue": types.Absent(), "funding": types.Empty()},
	}

	current := types.Record{}
	present := map[string]bool{}
	for i, partial := range rounds {
		current, _ = Merge(current, partial, placeholder)
		for field := range present {
			assert.True(t, current.Get(field).IsPresent(), "round %d: %s regressed", i, field)
		}
		for field, v := range current {
			if v.IsPresent() {
				present[field] = true
			}
		}
	}
	assert.Len(t, present, 2)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(types.Record{"a": types.Absent()}, types.Record{}))
	assert.False(t, Equal(types.Record{"a": types.Empty()}, types.Record{}))
	assert.False(t, Equal(types.Record{"a": types.Present(1.0)}, types.Record{"a": types.Present(2.0)}))
	assert.True(t, Equal(
		types.Record{"a": types.Present([]any{"x"})},
		types.Record{"a": types.Present([]any{"x"})},
	))
}

func TestBlendConfidence(t *testing.T) {
	tests := []struct {
		name          string
		old, incoming float64
		newly, fields int
		want          float64
	}{
		{"no new fields keeps old", 0.8, 0.1, 0, 10, 0.8},
		{"higher incoming weighted by fill fraction", 0.5, 1.0, 2, 4, 0.75},
		{"lower incoming never lowers confidence", 0.8, 0.2, 5, 5, 0.8},
		{"zero field count keeps old", 0.4, 0.9, 3, 0, 0.4},
		{"incoming clamped to one", 0.5, 3.0, 4, 4, 1.0},
		{"old clamped from negative", -1, 0.5, 1, 2, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, BlendConfidence(tt.old, tt.incoming, tt.newly, tt.fields), 1e-9)
		})
	}
}
