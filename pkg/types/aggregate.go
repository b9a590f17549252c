// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// TerminalState is the state the orchestrator stopped in.
type TerminalState string

const (
	StateConverged TerminalState = "CONVERGED"
	StateExhausted TerminalState = "EXHAUSTED"
)

// TerminationCause says why an EXHAUSTED run stopped. Converged runs have no cause.
type TerminationCause string

const (
	CauseNone              TerminationCause = ""
	CauseRoundLimit        TerminationCause = "round_limit"
	CauseDeadline          TerminationCause = "deadline"
	CausePlanningExhausted TerminationCause = "planning_exhausted"
	CauseCancelled         TerminationCause = "cancelled"
)

// Termination records how a run ended.
type Termination struct {
	State TerminalState    `json:"state" yaml:"state"`
	Cause TerminationCause `json:"cause,omitempty" yaml:"cause,omitempty"`
}

// Deadline reports whether the run stopped because its overall deadline passed,
// as opposed to hitting the round limit.
func (t Termination) Deadline() bool { return t.Cause == CauseDeadline }

// String renders the termination as e.g. "EXHAUSTED (round_limit)".
func (t Termination) String() string {
	if t.Cause == CauseNone {
		return string(t.State)
	}
	return string(t.State) + " (" + string(t.Cause) + ")"
}

// TopicStatus is the per-topic outcome reported in the aggregate.
type TopicStatus string

const (
	TopicConverged           TopicStatus = "converged"
	TopicExhaustedRoundLimit TopicStatus = "exhausted_round_limit"
	TopicExhaustedDeadline   TopicStatus = "exhausted_deadline"
	TopicExhaustedPlanning   TopicStatus = "exhausted_planning"
	TopicExhaustedCancelled  TopicStatus = "exhausted_cancelled"
)

// Converged reports whether the topic has no CRITICAL/HIGH gaps left.
func (s TopicStatus) Converged() bool { return s == TopicConverged }

// GapReport describes a gap still open when the run finished.
type GapReport struct {
	Topic    Topic     `json:"topic" yaml:"topic"`
	Field    string    `json:"field" yaml:"field"`
	Priority Priority  `json:"priority" yaml:"priority"`
	Reason   GapReason `json:"reason" yaml:"reason"`

	// Attempts is the number of refinement queries issued for this field.
	Attempts int `json:"attempts" yaml:"attempts"`

	// LastAttemptRound is the round of the most recent refinement query for
	// this field, 0 if it was never refined.
	LastAttemptRound int `json:"last_attempt_round,omitempty" yaml:"last_attempt_round,omitempty"`

	// PlanningExhausted is set when the planner could produce no novel query
	// for this gap, so it was not retried.
	PlanningExhausted bool `json:"planning_exhausted,omitempty" yaml:"planning_exhausted,omitempty"`
}

// TopicResult is one topic's frozen record plus its outcome.
type TopicResult struct {
	Topic      Topic       `json:"topic" yaml:"topic"`
	Record     Record      `json:"record" yaml:"record"`
	Sources    []string    `json:"sources" yaml:"sources"`
	Confidence float64     `json:"confidence" yaml:"confidence"`
	Status     TopicStatus `json:"status" yaml:"status"`

	// ConvergedRound is the number of rounds executed when the topic
	// converged; zero when it did not converge.
	ConvergedRound int `json:"converged_round,omitempty" yaml:"converged_round,omitempty"`

	// Failures counts rounds in which the topic's invocation failed.
	Failures int `json:"failures" yaml:"failures"`

	RemainingGaps []GapReport `json:"remaining_gaps,omitempty" yaml:"remaining_gaps,omitempty"`
}

// RoundPhase names the kind of round that was executed.
type RoundPhase string

const (
	PhaseInitial    RoundPhase = "initial"
	PhaseRefinement RoundPhase = "refinement"
)

// RoundMetadata summarizes one round of agent invocations.
type RoundMetadata struct {
	Round            int           `json:"round" yaml:"round"`
	Phase            RoundPhase    `json:"phase" yaml:"phase"`
	TopicsDispatched []Topic       `json:"topics_dispatched" yaml:"topics_dispatched"`
	TopicsFailed     []Topic       `json:"topics_failed,omitempty" yaml:"topics_failed,omitempty"`
	QueriesIssued    int           `json:"queries_issued" yaml:"queries_issued"`
	GapsBefore       int           `json:"gaps_before" yaml:"gaps_before"`
	GapsAfter        int           `json:"gaps_after" yaml:"gaps_after"`
	GapsFilled       int           `json:"gaps_filled" yaml:"gaps_filled"`
	FieldsPopulated  int           `json:"fields_populated" yaml:"fields_populated"`
	NewSources       int           `json:"new_sources" yaml:"new_sources"`
	Duration         time.Duration `json:"duration" yaml:"duration"`
}

// Aggregate is the final union of all topics' records plus run metadata.
type Aggregate struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	Company    string    `json:"company" yaml:"company"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	Topics []TopicResult `json:"topics" yaml:"topics"`

	// Sources holds every source identifier across topics, deduplicated
	// case-sensitively, in first-seen order.
	Sources []string `json:"sources" yaml:"sources"`

	Rounds            []RoundMetadata `json:"rounds" yaml:"rounds"`
	RoundsExecuted    int             `json:"rounds_executed" yaml:"rounds_executed"`
	TotalGapsDetected int             `json:"total_gaps_detected" yaml:"total_gaps_detected"`
	TotalGapsFilled   int             `json:"total_gaps_filled" yaml:"total_gaps_filled"`
	FieldsPopulated   int             `json:"fields_populated" yaml:"fields_populated"`
	GapsRemaining     []GapReport     `json:"gaps_remaining" yaml:"gaps_remaining"`

	Converged []Topic `json:"converged" yaml:"converged"`
	Exhausted []Topic `json:"exhausted" yaml:"exhausted"`

	Termination Termination `json:"termination" yaml:"termination"`
}

// Topic returns the result for t, or false if t was not researched.
func (a *Aggregate) Topic(t Topic) (TopicResult, bool) {
	for _, tr := range a.Topics {
		if tr.Topic == t {
			return tr, true
		}
	}
	return TopicResult{}, false
}

// AverageConfidence returns the mean confidence across topics.
func (a *Aggregate) AverageConfidence() float64 {
	if len(a.Topics) == 0 {
		return 0
	}
	var sum float64
	for _, tr := range a.Topics {
		sum += tr.Confidence
	}
	return sum / float64(len(a.Topics))
}

// PriorityCounts tallies gaps by priority.
type PriorityCounts struct {
	Critical int `json:"critical" yaml:"critical"`
	High     int `json:"high" yaml:"high"`
	Medium   int `json:"medium" yaml:"medium"`
	Low      int `json:"low" yaml:"low"`
}

func (c *PriorityCounts) add(p Priority) {
	switch p {
	case PriorityCritical:
		c.Critical++
	case PriorityHigh:
		c.High++
	case PriorityMedium:
		c.Medium++
	default:
		c.Low++
	}
}

// RefinementSummary condenses the gap statistics of a run.
type RefinementSummary struct {
	GapsDetected      int            `json:"gaps_detected" yaml:"gaps_detected"`
	GapsResolved      int            `json:"gaps_resolved" yaml:"gaps_resolved"`
	GapsRemaining     int            `json:"gaps_remaining" yaml:"gaps_remaining"`
	FillRate          float64        `json:"fill_rate" yaml:"fill_rate"`
	RemainingBy       PriorityCounts `json:"remaining_by_priority" yaml:"remaining_by_priority"`
	CriticalRemaining int            `json:"critical_remaining" yaml:"critical_remaining"`
}

// Summary computes the refinement summary. The fill rate is the percentage of
// detected gaps that were resolved; it is 100 when no gaps were detected.
func (a *Aggregate) Summary() RefinementSummary {
	s := RefinementSummary{
		GapsDetected:  a.TotalGapsDetected,
		GapsRemaining: len(a.GapsRemaining),
	}
	for _, g := range a.GapsRemaining {
		s.RemainingBy.add(g.Priority)
	}
	s.CriticalRemaining = s.RemainingBy.Critical
	s.GapsResolved = s.GapsDetected - s.GapsRemaining
	if s.GapsResolved < 0 {
		s.GapsResolved = 0
	}
	if s.GapsDetected == 0 {
		s.FillRate = 100
	} else {
		s.FillRate = float64(s.GapsResolved) / float64(s.GapsDetected) * 100
	}
	return s
}
