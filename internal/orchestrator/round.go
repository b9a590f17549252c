// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/company-research/pkg/types"
)

// outcome is one topic's agent call result, consumed by the control loop.
type outcome struct {
	topic    types.Topic
	queries  int
	result   types.AgentResult
	err      error
	duration time.Duration
}

// fanOut invokes the agent for every dispatched topic concurrently. Outcomes
// arrive on the returned channel in completion order; the channel is closed
// once every call has returned, which is the round's join point.
func (o *Orchestrator) fanOut(ctx context.Context, round int, refinement bool, topics []types.Topic, queries map[types.Topic][]string) <-chan outcome {
	out := make(chan outcome, len(topics))

	g := new(errgroup.Group)
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	go func() {
		for _, t := range topics {
			g.Go(func() error {
				out <- o.invoke(ctx, round, t, queries[t], refinement)
				return nil
			})
		}
		_ = g.Wait()
		close(out)
	}()
	return out
}

// invoke makes one agent call under the per-call timeout. Errors, timeouts,
// malformed results, and panics all become an *InvocationError. A call that
// ignores its context is abandoned when the context ends.
func (o *Orchestrator) invoke(ctx context.Context, round int, t types.Topic, queries []string, refinement bool) outcome {
	start := o.now()
	ctx, span := o.tracer.Start(ctx, "research.invoke", trace.WithAttributes(
		attribute.String("research.topic", string(t)),
		attribute.Int("research.round", round),
		attribute.Bool("research.refinement", refinement),
		attribute.Int("research.queries", len(queries)),
	))
	defer span.End()

	callCtx := ctx
	if o.invokeTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.invokeTimeout)
		defer cancel()
	}

	done := make(chan reply, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- reply{err: fmt.Errorf("invoker panic: %v", p)}
			}
		}()
		res, err := o.invoker.Invoke(callCtx, t, append([]string(nil), queries...), refinement)
		done <- reply{result: res, err: err}
	}()

	rep := await(callCtx, done)
	if rep.err == nil {
		rep.err = checkResult(rep.result)
	}

	oc := outcome{topic: t, queries: len(queries), result: rep.result, duration: o.now().Sub(start)}
	if rep.err != nil {
		oc.result = types.AgentResult{}
		oc.err = &InvocationError{
			Topic:   t,
			Round:   round,
			Timeout: errors.Is(rep.err, context.DeadlineExceeded),
			Err:     rep.err,
		}
		span.RecordError(oc.err)
		span.SetStatus(codes.Error, oc.err.Error())
		return oc
	}
	span.SetAttributes(
		attribute.Int("research.fields", len(rep.result.Record)),
		attribute.Int("research.sources", len(rep.result.Sources)),
		attribute.Float64("research.confidence", rep.result.Confidence),
	)
	return oc
}

type reply struct {
	result types.AgentResult
	err    error
}

// await waits for the agent's reply or the end of ctx. A reply already
// waiting when ctx ends is preferred over the context error.
func await(ctx context.Context, done <-chan reply) reply {
	select {
	case rep := <-done:
		return rep
	case <-ctx.Done():
		select {
		case rep := <-done:
			return rep
		default:
			return reply{err: ctx.Err()}
		}
	}
}

// checkResult rejects results whose confidence is not a number in [0, 1].
func checkResult(res types.AgentResult) error {
	c := res.Confidence
	if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 || c > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", errMalformedResult, c)
	}
	return nil
}
