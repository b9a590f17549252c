// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"time"

	"github.com/pdiddy/company-research/pkg/types"
)

// TopicEvent reports one topic's agent call after its result was merged or
// rejected.
type TopicEvent struct {
	RunID      string
	Round      int
	Topic      types.Topic
	Refinement bool
	Queries    int

	FieldsFilled int
	NewSources   int
	Confidence   float64
	Duration     time.Duration

	// Err is the *InvocationError when the call failed; nil otherwise.
	Err error
}

// Observer receives progress events from the control loop. Calls are made
// synchronously from the loop's goroutine, in order; the run's correctness does
// not depend on them.
type Observer interface {
	TopicCompleted(TopicEvent)
	RoundCompleted(runID string, meta types.RoundMetadata)
	RunCompleted(agg *types.Aggregate)
}

// Observers fans events out to several observers in order.
type Observers []Observer

func (obs Observers) TopicCompleted(ev TopicEvent) {
	for _, o := range obs {
		o.TopicCompleted(ev)
	}
}

func (obs Observers) RoundCompleted(runID string, meta types.RoundMetadata) {
	for _, o := range obs {
		o.RoundCompleted(runID, meta)
	}
}

func (obs Observers) RunCompleted(agg *types.Aggregate) {
	for _, o := range obs {
		o.RunCompleted(agg)
	}
}

type nopObserver struct{}

func (nopObserver) TopicCompleted(TopicEvent)                  {}
func (nopObserver) RoundCompleted(string, types.RoundMetadata) {}
func (nopObserver) RunCompleted(*types.Aggregate)              {}
