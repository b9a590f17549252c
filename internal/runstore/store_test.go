// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runstore

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/company-research/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func sampleRun(id, company string, offset time.Duration, state types.TerminalState) *types.Aggregate {
	term := types.Termination{State: state}
	if state == types.StateExhausted {
		term.Cause = types.CauseRoundLimit
	}
	return &types.Aggregate{
		RunID:      id,
		Company:    company,
		StartedAt:  baseTime.Add(offset),
		FinishedAt: baseTime.Add(offset + time.Minute),
		Topics: []types.TopicResult{
			{
				Topic: types.TopicFinancial,
				Record: types.Record{
					"revenue":       types.Present("$10M"),
					"profitability": types.Empty(),
				},
				Sources:    []string{"https://sec.example/10k"},
				Confidence: 0.6,
				Status:     types.TopicExhaustedRoundLimit,
				Failures:   1,
			},
		},
		Sources:           []string{"https://sec.example/10k", "https://news.example/a"},
		RoundsExecuted:    2,
		TotalGapsDetected: 4,
		TotalGapsFilled:   1,
		FieldsPopulated:   1,
		GapsRemaining: []types.GapReport{
			{Topic: types.TopicFinancial, Field: "profitability", Priority: types.PriorityCritical, Reason: types.GapEmpty, Attempts: 3, PlanningExhausted: true},
			{Topic: types.TopicFinancial, Field: "funding", Priority: types.PriorityHigh, Reason: types.GapAbsent, Attempts: 1},
			{Topic: types.TopicFinancial, Field: "financial_highlights", Priority: types.PriorityLow, Reason: types.GapAbsent},
		},
		Termination: term,
	}
}

func TestStore_SaveGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	agg := sampleRun("run-aaa1", "Acme", 0, types.StateExhausted)
	require.NoError(t, s.Save(ctx, agg))

	got, err := s.Get(ctx, "run-aaa1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Company)
	assert.True(t, agg.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, agg.Termination, got.Termination)
	assert.Equal(t, agg.Sources, got.Sources)
	assert.Equal(t, agg.GapsRemaining, got.GapsRemaining)

	tr, ok := got.Topic(types.TopicFinancial)
	require.True(t, ok)
	assert.Equal(t, types.Present("$10M"), tr.Record.Get("revenue"))
	assert.Equal(t, types.FieldEmpty, tr.Record.Get("profitability").State)
	assert.Equal(t, types.FieldAbsent, tr.Record.Get("funding").State)
}

func TestStore_SaveRequiresRunID(t *testing.T) {
	s := testStore(t)
	assert.Error(t, s.Save(context.Background(), &types.Aggregate{Company: "Acme"}))
	assert.Error(t, s.Save(context.Background(), nil))
}

func TestStore_GetByPrefix(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for _, id := range []string{"run-aaa1", "run-aaa2", "run-bbb"} {
		require.NoError(t, s.Save(ctx, sampleRun(id, "Acme", 0, types.StateConverged)))
	}

	got, err := s.Get(ctx, "run-b")
	require.NoError(t, err)
	assert.Equal(t, "run-bbb", got.RunID)

	_, err = s.Get(ctx, "run-a")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = s.Get(ctx, "zzz")
	assert.ErrorIs(t, err, ErrNotFound)

	// LIKE wildcards in the prefix are literal.
	_, err = s.Get(ctx, "run_")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_GetExactWinsOverPrefix(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleRun("abc", "Acme", 0, types.StateConverged)))
	require.NoError(t, s.Save(ctx, sampleRun("abcd", "Globex", 0, types.StateConverged)))

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Company)
}

func TestStore_SaveReplaces(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	agg := sampleRun("run-1", "Acme", 0, types.StateExhausted)
	require.NoError(t, s.Save(ctx, agg))

	agg.GapsRemaining = agg.GapsRemaining[:1]
	agg.Termination = types.Termination{State: types.StateConverged}
	require.NoError(t, s.Save(ctx, agg))

	runs, err := s.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, types.StateConverged, runs[0].Termination.State)
	assert.Equal(t, types.PriorityCounts{Critical: 1}, runs[0].Remaining)
}

func TestStore_List(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleRun("r1", "Acme", 0, types.StateConverged)))
	require.NoError(t, s.Save(ctx, sampleRun("r2", "Globex", time.Hour, types.StateExhausted)))
	require.NoError(t, s.Save(ctx, sampleRun("r3", "acme", 2*time.Hour, types.StateExhausted)))

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{name: "all newest first", opts: ListOptions{}, want: []string{"r3", "r2", "r1"}},
		{name: "company case-insensitive", opts: ListOptions{Company: "ACME"}, want: []string{"r3", "r1"}},
		{name: "state", opts: ListOptions{State: types.StateExhausted}, want: []string{"r3", "r2"}},
		{name: "company and state", opts: ListOptions{Company: "acme", State: types.StateConverged}, want: []string{"r1"}},
		{name: "limit", opts: ListOptions{Limit: 1}, want: []string{"r3"}},
		{name: "no match", opts: ListOptions{Company: "Initech"}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.List(ctx, tt.opts)
			require.NoError(t, err)
			var ids []string
			for _, r := range runs {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	runs, err := s.List(ctx, ListOptions{Company: "Globex"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	r := runs[0]
	assert.Equal(t, types.Termination{State: types.StateExhausted, Cause: types.CauseRoundLimit}, r.Termination)
	assert.Equal(t, 2, r.RoundsExecuted)
	assert.Equal(t, 4, r.GapsDetected)
	assert.Equal(t, types.PriorityCounts{Critical: 1, High: 1, Low: 1}, r.Remaining)
	assert.True(t, baseTime.Add(time.Hour).Equal(r.StartedAt))
}

func TestStore_RemainingGaps(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleRun("r1", "Acme", 0, types.StateExhausted)))

	blocking, err := s.RemainingGaps(ctx, "r1", types.PriorityHigh)
	require.NoError(t, err)
	require.Len(t, blocking, 2)
	assert.Equal(t, "profitability", blocking[0].Field)
	assert.True(t, blocking[0].PlanningExhausted)
	assert.Equal(t, 3, blocking[0].Attempts)
	assert.Equal(t, "funding", blocking[1].Field)
	assert.Equal(t, types.GapAbsent, blocking[1].Reason)

	all, err := s.RemainingGaps(ctx, "r1", types.PriorityLow)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_DeleteCascades(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleRun("r1", "Acme", 0, types.StateExhausted)))

	require.NoError(t, s.Delete(ctx, "r1"))
	_, err := s.Get(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound)

	gaps, err := s.RemainingGaps(ctx, "r1", types.PriorityLow)
	require.NoError(t, err)
	assert.Empty(t, gaps)

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT count(*) FROM sources WHERE run_id = 'r1'`).Scan(&n))
	assert.Zero(t, n)

	assert.ErrorIs(t, s.Delete(ctx, "r1"), ErrNotFound)
}

func TestStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(types.StoreConfig{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleRun("r1", "Acme", 0, types.StateConverged)))
	require.NoError(t, s.Close())

	s, err = Open(types.StoreConfig{Dir: dir})
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Company)
}

func TestStore_Export(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleRun("r1", "Acme", 0, types.StateConverged)))
	require.NoError(t, s.Save(ctx, sampleRun("r2", "Globex", time.Hour, types.StateExhausted)))

	t.Run("yaml", func(t *testing.T) {
		path, err := s.ExportYAML(ctx, ListOptions{Company: "Acme"})
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var aggs []types.Aggregate
		require.NoError(t, yaml.Unmarshal(data, &aggs))
		require.Len(t, aggs, 1)
		assert.Equal(t, "r1", aggs[0].RunID)
		assert.Contains(t, string(data), "priority: critical")
	})

	t.Run("json", func(t *testing.T) {
		path, err := s.ExportJSON(ctx, ListOptions{})
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var aggs []types.Aggregate
		require.NoError(t, json.Unmarshal(data, &aggs))
		require.Len(t, aggs, 2)
		assert.Equal(t, "r2", aggs[0].RunID)
		assert.Equal(t, types.PriorityCritical, aggs[1].GapsRemaining[0].Priority)
	})
}
