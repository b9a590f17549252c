// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrator drives iterative company research. A run dispatches
// one agent call per topic concurrently, merges the partial records as they
// arrive, analyzes the remaining gaps, and re-invokes agents with refined
// queries until every topic converges or the round or deadline budget runs out.
//
// The run moves through INITIAL_RESEARCH, then alternates GAP_DETECTION and
// REFINING, and stops in CONVERGED or EXHAUSTED. Only the control loop
// mutates the record store and query history; agent calls return results
// over a channel and never touch shared state.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pdiddy/company-research/internal/gaps"
	"github.com/pdiddy/company-research/pkg/types"
)

const tracerName = "github.com/pdiddy/company-research/internal/orchestrator"

// Invoker runs one topic's research or refinement. Implementations must be
// safe for concurrent calls on distinct topics and should honor ctx.
type Invoker interface {
	Invoke(ctx context.Context, topic types.Topic, queries []string, refinement bool) (types.AgentResult, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, topic types.Topic, queries []string, refinement bool) (types.AgentResult, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, topic types.Topic, queries []string, refinement bool) (types.AgentResult, error) {
	return f(ctx, topic, queries, refinement)
}

// State is a control-loop state.
type State string

const (
	StateInitialResearch State = "INITIAL_RESEARCH"
	StateGapDetection    State = "GAP_DETECTION"
	StateRefining        State = "REFINING"
	StateConverged       State = "CONVERGED"
	StateExhausted       State = "EXHAUSTED"
)

// Request is one RunResearch call.
type Request struct {
	Company string
	Topics  []types.Topic

	// MaxRounds is the total round budget including the initial round.
	MaxRounds int

	// PerRoundGapCap bounds the gaps refined per topic per round.
	PerRoundGapCap int

	// QueryBudgetPerGap is K: the most queries ever issued for one
	// (topic, field) over the run.
	QueryBudgetPerGap int

	// QueriesPerPlan bounds one gap's queries in one round. Zero means
	// QueryBudgetPerGap.
	QueriesPerPlan int

	// Deadline bounds the whole run. Zero disables it.
	Deadline time.Duration

	// MaxQueryOverlap rejects refinement queries too similar to ones already
	// issued for the same gap. Zero disables it.
	MaxQueryOverlap float64
}

// NewRequest builds a request from the configured run budget.
func NewRequest(company string, topics []types.Topic, cfg types.OrchestratorConfig) Request {
	return Request{
		Company:           company,
		Topics:            topics,
		MaxRounds:         cfg.MaxRounds,
		PerRoundGapCap:    cfg.PerRoundGapCap,
		QueryBudgetPerGap: cfg.QueryBudgetPerGap,
		QueriesPerPlan:    cfg.QueriesPerPlan,
		Deadline:          cfg.Deadline,
		MaxQueryOverlap:   cfg.MaxQueryOverlap,
	}
}

// Validate checks the request against schema. Every error it returns
// matches ErrInvalidRequest.
func (r Request) Validate(schema *gaps.Schema) error {
	if r.Company == "" {
		return &ConfigError{Field: "company", Reason: "is empty"}
	}
	if len(r.Topics) == 0 {
		return &ConfigError{Field: "topics", Reason: "is empty"}
	}
	seen := make(map[types.Topic]bool, len(r.Topics))
	for _, t := range r.Topics {
		if !t.Valid() {
			return &ConfigError{Field: "topics", Reason: fmt.Sprintf("contains unknown topic %q", t)}
		}
		if seen[t] {
			return &ConfigError{Field: "topics", Reason: fmt.Sprintf("lists %s twice", t)}
		}
		seen[t] = true
		if _, ok := schema.Topic(t); !ok {
			return &ConfigError{Field: "topics", Reason: fmt.Sprintf("topic %s has no schema", t)}
		}
	}
	if r.MaxRounds < 1 {
		return &ConfigError{Field: "max_rounds", Reason: fmt.Sprintf("must be at least 1, got %d", r.MaxRounds)}
	}
	if r.PerRoundGapCap < 1 {
		return &ConfigError{Field: "per_round_gap_cap", Reason: fmt.Sprintf("must be at least 1, got %d", r.PerRoundGapCap)}
	}
	if r.QueryBudgetPerGap < 1 {
		return &ConfigError{Field: "query_budget_per_gap", Reason: fmt.Sprintf("must be at least 1, got %d", r.QueryBudgetPerGap)}
	}
	if r.QueriesPerPlan < 0 {
		return &ConfigError{Field: "queries_per_plan", Reason: "must not be negative"}
	}
	if r.Deadline < 0 {
		return &ConfigError{Field: "deadline", Reason: "must not be negative"}
	}
	if r.MaxQueryOverlap < 0 || r.MaxQueryOverlap > 1 {
		return &ConfigError{Field: "max_query_overlap", Reason: "must be between 0 and 1"}
	}
	return nil
}

// Orchestrator runs research requests against one invoker and schema. It
// holds no per-run state, so one Orchestrator may serve concurrent runs.
type Orchestrator struct {
	invoker       Invoker
	schema        *gaps.Schema
	observer      Observer
	log           io.Writer
	tracer        trace.Tracer
	invokeTimeout time.Duration
	concurrency   int
	now           func() time.Time
	newID         func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver registers observers for progress events.
func WithObserver(obs ...Observer) Option {
	return func(o *Orchestrator) {
		var list Observers
		for _, ob := range obs {
			if ob != nil {
				list = append(list, ob)
			}
		}
		o.observer = list
	}
}

// WithLog sets the writer for progress lines. The default discards them.
func WithLog(w io.Writer) Option {
	return func(o *Orchestrator) {
		if w != nil {
			o.log = w
		}
	}
}

// WithTracer sets the tracer for run, round, and invoke spans. The default
// uses the global otel tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithInvokeTimeout bounds each agent call. Zero disables it.
func WithInvokeTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.invokeTimeout = d }
}

// WithConcurrency caps simultaneous agent calls in a round. Zero or negative
// means no cap.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.concurrency = n }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRunID replaces the random run ID generator.
func WithRunID(newID func() string) Option {
	return func(o *Orchestrator) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// New returns an orchestrator that invokes agents through inv and analyzes
// records against schema. A nil schema means gaps.DefaultSchema.
func New(inv Invoker, schema *gaps.Schema, opts ...Option) *Orchestrator {
	if schema == nil {
		schema = gaps.DefaultSchema()
	}
	o := &Orchestrator{
		invoker:  inv,
		schema:   schema,
		observer: nopObserver{},
		log:      io.Discard,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes req and returns the aggregate. Only invalid requests return an
// error; agent failures, deadline expiry, and cancellation end the run with a
// best-effort aggregate whose Termination says why it stopped.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*types.Aggregate, error) {
	if o.invoker == nil {
		return nil, &ConfigError{Field: "invoker", Reason: "is nil"}
	}
	if err := req.Validate(o.schema); err != nil {
		return nil, err
	}

	runCtx := ctx
	if req.Deadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.Deadline)
		defer cancel()
	}

	r := newRun(o, req)
	runCtx, span := o.tracer.Start(runCtx, "research.run", trace.WithAttributes(
		attribute.String("research.run_id", r.agg.RunID),
		attribute.String("research.company", req.Company),
		attribute.Int("research.topics", len(req.Topics)),
		attribute.Int("research.max_rounds", req.MaxRounds),
	))
	defer span.End()

	fmt.Fprintf(o.log, "research %s: %d topics, up to %d rounds (run %s)\n",
		req.Company, len(req.Topics), req.MaxRounds, r.agg.RunID)

	agg := r.execute(runCtx)

	span.SetAttributes(
		attribute.String("research.state", string(agg.Termination.State)),
		attribute.String("research.cause", string(agg.Termination.Cause)),
		attribute.Int("research.rounds_executed", agg.RoundsExecuted),
	)
	if agg.Termination.State == types.StateConverged {
		span.SetStatus(codes.Ok, "")
	}
	o.observer.RunCompleted(agg)
	return agg, nil
}
