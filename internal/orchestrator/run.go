// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pdiddy/company-research/internal/gaps"
	"github.com/pdiddy/company-research/internal/record"
	"github.com/pdiddy/company-research/internal/refine"
	"github.com/pdiddy/company-research/pkg/types"
)

// topicState is the control loop's per-topic bookkeeping.
type topicState struct {
	gaps           []types.Gap
	converged      bool
	convergedRound int
	failures       int
}

// run holds the state of one Run call. It is only touched by the goroutine
// executing the control loop.
type run struct {
	o       *Orchestrator
	req     Request
	store   *record.Store
	history *refine.History
	planner *refine.Planner
	state   State

	topics   map[types.Topic]*topicState
	order    map[types.Topic]int
	detected map[types.GapKey]bool

	// exhausted marks gaps the planner had no novel query for.
	exhausted map[types.GapKey]bool

	agg *types.Aggregate
}

func newRun(o *Orchestrator, req Request) *run {
	started := o.now()
	r := &run{
		o:       o,
		req:     req,
		store:   record.NewStore(req.Topics, o.schema.FieldCounts(), o.schema.LowInformation),
		history: refine.NewHistory(),
		planner: &refine.Planner{
			Company:    req.Company,
			Year:       started.Year(),
			Schema:     o.schema,
			Budget:     req.QueryBudgetPerGap,
			PerPlan:    req.QueriesPerPlan,
			MaxOverlap: req.MaxQueryOverlap,
		},
		state:     StateInitialResearch,
		topics:    make(map[types.Topic]*topicState, len(req.Topics)),
		order:     make(map[types.Topic]int, len(req.Topics)),
		detected:  make(map[types.GapKey]bool),
		exhausted: make(map[types.GapKey]bool),
		agg: &types.Aggregate{
			RunID:     o.newID(),
			Company:   req.Company,
			StartedAt: started,
		},
	}
	for i, t := range req.Topics {
		r.order[t] = i
		r.topics[t] = &topicState{}
	}
	// Empty records are the baseline the initial round's fills are measured
	// against.
	r.analyze()
	return r
}

// execute drives the state machine to a terminal state.
func (r *run) execute(ctx context.Context) *types.Aggregate {
	dispatch := make(map[types.Topic][]string, len(r.req.Topics))
	for _, t := range r.req.Topics {
		dispatch[t] = r.planner.DefaultQueries(t)
	}
	phase := types.PhaseInitial

	for {
		r.executeRound(ctx, phase, dispatch)

		r.transition(StateGapDetection)
		switch {
		case r.blocking() == 0:
			return r.finish(types.Termination{State: types.StateConverged})
		case ctx.Err() != nil:
			cause := types.CauseCancelled
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				cause = types.CauseDeadline
			}
			return r.finish(types.Termination{State: types.StateExhausted, Cause: cause})
		case r.agg.RoundsExecuted >= r.req.MaxRounds:
			return r.finish(types.Termination{State: types.StateExhausted, Cause: types.CauseRoundLimit})
		}

		r.transition(StateRefining)
		dispatch = r.plan(r.agg.RoundsExecuted)
		if len(dispatch) == 0 {
			return r.finish(types.Termination{State: types.StateExhausted, Cause: types.CausePlanningExhausted})
		}
		phase = types.PhaseRefinement
	}
}

func (r *run) transition(s State) {
	r.state = s
}

// executeRound dispatches one round, merges each outcome as it arrives, and
// re-analyzes once every call has returned.
func (r *run) executeRound(ctx context.Context, phase types.RoundPhase, dispatch map[types.Topic][]string) {
	round := r.agg.RoundsExecuted
	start := r.o.now()
	topics := r.sorted(keys(dispatch))

	ctx, span := r.o.tracer.Start(ctx, "research.round", trace.WithAttributes(
		attribute.Int("research.round", round),
		attribute.String("research.phase", string(phase)),
		attribute.String("research.state", string(r.state)),
		attribute.Int("research.topics", len(topics)),
	))
	defer span.End()

	meta := types.RoundMetadata{
		Round:            round,
		Phase:            phase,
		TopicsDispatched: topics,
	}
	for _, t := range topics {
		meta.QueriesIssued += len(dispatch[t])
		meta.GapsBefore += len(r.topics[t].gaps)
	}

	refinement := phase == types.PhaseRefinement
	for oc := range r.o.fanOut(ctx, round, refinement, topics, dispatch) {
		ev := TopicEvent{
			RunID:      r.agg.RunID,
			Round:      round,
			Topic:      oc.topic,
			Refinement: refinement,
			Queries:    oc.queries,
			Duration:   oc.duration,
		}
		if oc.err != nil {
			r.topics[oc.topic].failures++
			meta.TopicsFailed = append(meta.TopicsFailed, oc.topic)
			ev.Err = oc.err
			fmt.Fprintf(r.o.log, "warning: round %d %s failed: %v\n", round, oc.topic, oc.err)
			r.o.observer.TopicCompleted(ev)
			continue
		}

		applied, err := r.store.Apply(oc.topic, oc.result)
		if err != nil {
			fmt.Fprintf(r.o.log, "warning: round %d %s: %v\n", round, oc.topic, err)
			continue
		}
		meta.FieldsPopulated += applied.FieldsFilled
		meta.NewSources += len(applied.NewSources)

		ev.FieldsFilled = applied.FieldsFilled
		ev.NewSources = len(applied.NewSources)
		ev.Confidence = applied.Confidence
		fmt.Fprintf(r.o.log, "round %d %s: +%d fields, %d new sources, confidence %.2f\n",
			round, oc.topic, applied.FieldsFilled, len(applied.NewSources), applied.Confidence)
		r.o.observer.TopicCompleted(ev)
	}
	meta.TopicsFailed = r.sorted(meta.TopicsFailed)

	r.agg.RoundsExecuted++
	r.analyze()

	for _, t := range topics {
		meta.GapsAfter += len(r.topics[t].gaps)
	}
	meta.GapsFilled = max(0, meta.GapsBefore-meta.GapsAfter)
	meta.Duration = r.o.now().Sub(start)

	r.agg.TotalGapsFilled += meta.GapsFilled
	r.agg.FieldsPopulated += meta.FieldsPopulated
	r.agg.Rounds = append(r.agg.Rounds, meta)

	span.SetAttributes(
		attribute.Int("research.gaps_filled", meta.GapsFilled),
		attribute.Int("research.topics_failed", len(meta.TopicsFailed)),
	)
	fmt.Fprintf(r.o.log, "round %d done: %d gaps filled, %d blocking gaps remain\n",
		round, meta.GapsFilled, r.blocking())
	r.o.observer.RoundCompleted(r.agg.RunID, meta)
}

// analyze recomputes every topic's gaps from its current record and marks
// topics with no blocking gaps as converged.
func (r *run) analyze() {
	for _, t := range r.req.Topics {
		ts := r.topics[t]
		ts.gaps = gaps.Analyze(t, r.store.Record(t), r.o.schema)
		for _, g := range ts.gaps {
			r.detected[g.Key()] = true
		}
		if !ts.converged && r.agg.RoundsExecuted > 0 && types.CountBlocking(ts.gaps) == 0 {
			ts.converged = true
			ts.convergedRound = r.agg.RoundsExecuted
			fmt.Fprintf(r.o.log, "%s converged after %d rounds\n", t, ts.convergedRound)
		}
	}
}

// blocking counts CRITICAL and HIGH gaps across all topics.
func (r *run) blocking() int {
	n := 0
	for _, ts := range r.topics {
		n += types.CountBlocking(ts.gaps)
	}
	return n
}

// plan selects the gaps to refine for each unconverged topic and returns the
// queries to dispatch. Issued queries are recorded in the history under
// round. Topics for which the planner produced nothing are left out.
func (r *run) plan(round int) map[types.Topic][]string {
	dispatch := make(map[types.Topic][]string)
	for _, t := range r.req.Topics {
		ts := r.topics[t]
		if ts.converged || types.CountBlocking(ts.gaps) == 0 {
			continue
		}

		var queries []string
		seen := make(map[string]bool)
		selected := 0
		for _, g := range ts.gaps {
			if selected == r.req.PerRoundGapCap {
				break
			}
			if r.exhausted[g.Key()] {
				continue
			}

			planned := r.planner.Plan(g, r.history)
			if len(planned) == 0 {
				r.exhausted[g.Key()] = true
				fmt.Fprintf(r.o.log, "%s %s: no novel queries left\n", t, g.Field)
				continue
			}
			selected++
			r.history.Append(g.Key(), round, planned...)
			for _, q := range planned {
				if n := refine.Normalize(q); !seen[n] {
					seen[n] = true
					queries = append(queries, q)
				}
			}
		}
		if len(queries) > 0 {
			dispatch[t] = queries
		}
	}
	return dispatch
}

// finish freezes the records into the aggregate.
func (r *run) finish(term types.Termination) *types.Aggregate {
	if term.State == types.StateConverged {
		r.transition(StateConverged)
	} else {
		r.transition(StateExhausted)
	}

	agg := r.agg
	agg.FinishedAt = r.o.now()
	agg.Termination = term
	agg.Sources = r.store.Sources()
	agg.TotalGapsDetected = len(r.detected)

	for _, t := range r.req.Topics {
		ts := r.topics[t]
		entry, _ := r.store.Entry(t)
		tr := types.TopicResult{
			Topic:          t,
			Record:         entry.Record.Clone(),
			Sources:        entry.Sources,
			Confidence:     entry.Confidence,
			Failures:       ts.failures,
			ConvergedRound: ts.convergedRound,
		}
		if tr.Sources == nil {
			tr.Sources = []string{}
		}
		for _, g := range ts.gaps {
			tr.RemainingGaps = append(tr.RemainingGaps, types.GapReport{
				Topic:             g.Topic,
				Field:             g.Field,
				Priority:          g.Priority,
				Reason:            g.Reason,
				Attempts:          r.history.Attempts(g.Key()),
				LastAttemptRound:  r.history.LastRound(g.Key()),
				PlanningExhausted: r.exhausted[g.Key()],
			})
		}
		tr.Status = r.topicStatus(ts, term)
		if tr.Status.Converged() {
			agg.Converged = append(agg.Converged, t)
		} else {
			agg.Exhausted = append(agg.Exhausted, t)
		}
		agg.GapsRemaining = append(agg.GapsRemaining, tr.RemainingGaps...)
		agg.Topics = append(agg.Topics, tr)
	}

	fmt.Fprintf(r.o.log, "research %s finished: %s after %d rounds, %d gaps filled, %d remaining, %d refinement queries\n",
		r.req.Company, term, agg.RoundsExecuted, agg.TotalGapsFilled, len(agg.GapsRemaining), r.history.Total())
	return agg
}

func (r *run) topicStatus(ts *topicState, term types.Termination) types.TopicStatus {
	if ts.converged || types.CountBlocking(ts.gaps) == 0 {
		return types.TopicConverged
	}
	planningOnly := true
	for _, g := range gaps.Blocking(ts.gaps) {
		if !r.exhausted[g.Key()] {
			planningOnly = false
			break
		}
	}
	if planningOnly {
		return types.TopicExhaustedPlanning
	}
	switch term.Cause {
	case types.CauseDeadline:
		return types.TopicExhaustedDeadline
	case types.CauseCancelled:
		return types.TopicExhaustedCancelled
	case types.CausePlanningExhausted:
		return types.TopicExhaustedPlanning
	default:
		return types.TopicExhaustedRoundLimit
	}
}

// sorted returns topics in request order.
func (r *run) sorted(topics []types.Topic) []types.Topic {
	sort.SliceStable(topics, func(i, j int) bool {
		return r.order[topics[i]] < r.order[topics[j]]
	})
	return topics
}

func keys(m map[types.Topic][]string) []types.Topic {
	out := make([]types.Topic, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	return out
}
