// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/company-research/internal/gaps"
	"github.com/pdiddy/company-research/pkg/types"
)

var revenueGap = types.Gap{
	Topic:    types.TopicFinancial,
	Field:    "revenue",
	Priority: types.PriorityCritical,
	Reason:   types.GapAbsent,
}

func testPlanner(budget, perPlan int) *Planner {
	return &Planner{
		Company: "Acme",
		Year:    2026,
		Schema:  gaps.DefaultSchema(),
		Budget:  budget,
		PerPlan: perPlan,
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Acme Revenue", "acme revenue"},
		{"  acme\t revenue \n", "acme revenue"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestHistory_AppendAndContains(t *testing.T) {
	h := NewHistory()
	key := revenueGap.Key()

	h.Append(key, 1, "Acme revenue", "acme  REVENUE", "Acme funding", "  ")
	assert.Equal(t, 2, h.Attempts(key))
	assert.Equal(t, []string{"Acme revenue", "Acme funding"}, h.Queries(key))
	assert.True(t, h.Contains(key, "ACME revenue"))
	assert.False(t, h.Contains(key, "Acme profit"))
	assert.False(t, h.Contains(types.GapKey{Topic: types.TopicMarket, Field: "revenue"}, "Acme revenue"))

	assert.Equal(t, 1, h.LastRound(key))

	h.Append(key, 2, "Acme revenue 2026")
	h.Append(key, 3, "ACME REVENUE 2026")
	other := types.GapKey{Topic: types.TopicMarket, Field: "competitors"}
	h.Append(other, 1, "Acme competitors")
	assert.Equal(t, []string{"Acme revenue", "Acme funding", "Acme revenue 2026"}, h.Queries(key))
	assert.Equal(t, 2, h.LastRound(key), "a skipped duplicate does not move the last round")
	assert.Equal(t, 1, h.LastRound(other))
	assert.Zero(t, h.LastRound(types.GapKey{Topic: types.TopicSignals, Field: "news"}))
	assert.Equal(t, 4, h.Total())
}

func TestPlanner_FieldTemplatesFirst(t *testing.T) {
	p := testPlanner(6, 3)
	plan := p.Plan(revenueGap, NewHistory())

	assert.Equal(t, []string{
		"Acme 10-K SEC filing 2026 annual revenue",
		"Acme Q4 2026 earnings call transcript revenue",
		"Acme investor presentation 2026 financial results",
	}, plan)
}

func TestPlanner_GenericAnglesForUntemplatedField(t *testing.T) {
	p := testPlanner(6, 2)
	g := types.Gap{Topic: types.TopicFinancial, Field: "stock_ticker", Priority: types.PriorityMedium}

	assert.Equal(t, []string{"Acme stock ticker", "Acme stock ticker 2026"}, p.Plan(g, NewHistory()))
}

func TestPlanner_NeverRepeatsHistory(t *testing.T) {
	p := testPlanner(20, 3)
	h := NewHistory()
	key := revenueGap.Key()

	seen := map[string]bool{}
	for round := 1; round <= 4; round++ {
		plan := p.Plan(revenueGap, h)
		require.NotEmpty(t, plan, "round %d", round)
		for _, q := range plan {
			n := Normalize(q)
			assert.False(t, seen[n], "query %q repeated", q)
			seen[n] = true
		}
		h.Append(key, round, plan...)
	}
}

func TestPlanner_RespectsBudget(t *testing.T) {
	p := testPlanner(4, 3)
	h := NewHistory()
	key := revenueGap.Key()

	first := p.Plan(revenueGap, h)
	require.Len(t, first, 3)
	h.Append(key, 1, first...)

	second := p.Plan(revenueGap, h)
	require.Len(t, second, 1)
	h.Append(key, 2, second...)

	assert.Empty(t, p.Plan(revenueGap, h))
	assert.Equal(t, 4, h.Attempts(key))
}

func TestPlanner_ExhaustsCandidates(t *testing.T) {
	p := &Planner{Company: "Acme", Budget: 100}
	h := NewHistory()
	g := types.Gap{Topic: types.TopicMarket, Field: "swot"}

	plan := p.Plan(g, h)
	// Without a year the "{year}" angle collapses onto "{company} {field}".
	assert.Len(t, plan, len(genericAngles)-1)
	h.Append(g.Key(), 1, plan...)
	assert.Empty(t, p.Plan(g, h))
}

func TestPlanner_SkipsQueriesIssuedWithDifferentCase(t *testing.T) {
	p := testPlanner(6, 1)
	h := NewHistory()
	h.Append(revenueGap.Key(), 1, "ACME 10-K   SEC FILING 2026 ANNUAL REVENUE")

	assert.Equal(t, []string{"Acme Q4 2026 earnings call transcript revenue"}, p.Plan(revenueGap, h))
}

func TestPlanner_MaxOverlap(t *testing.T) {
	p := &Planner{Company: "Acme", Year: 2026, Budget: 10, PerPlan: 10, MaxOverlap: 0.5}
	g := types.Gap{Topic: types.TopicMarket, Field: "swot"}
	h := NewHistory()
	h.Append(g.Key(), 1, "acme swot")

	plan := p.Plan(g, h)
	// Three-word angles overlap "acme swot" by 2/3, four-word ones by 2/4.
	assert.NotContains(t, plan, "Acme swot 2026")
	assert.NotContains(t, plan, "Acme swot news")
	assert.Contains(t, plan, "Acme swot annual report")
	assert.Contains(t, plan, "Acme swot SEC filing")
}

func TestPlanner_Deterministic(t *testing.T) {
	p := testPlanner(6, 3)
	h := NewHistory()
	assert.Equal(t, p.Plan(revenueGap, h), p.Plan(revenueGap, h))
}

func TestPlanner_DefaultQueries(t *testing.T) {
	p := testPlanner(6, 3)
	assert.Equal(t, []string{
		"Acme annual revenue 2026",
		"Acme profitability net income",
		"Acme funding rounds valuation",
	}, p.DefaultQueries(types.TopicFinancial))

	bare := &Planner{Company: "Acme"}
	assert.Equal(t, []string{"Acme market"}, bare.DefaultQueries(types.TopicMarket))
}
