// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package invoker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/company-research/pkg/types"
)

// Step is one scripted agent reply. A step with Error set fails the call.
type Step struct {
	Record     map[string]any `yaml:"record"`
	Sources    []string       `yaml:"sources"`
	Confidence float64        `yaml:"confidence"`
	Error      string         `yaml:"error,omitempty"`

	// Delay is waited before replying, honoring cancellation.
	Delay time.Duration `yaml:"delay,omitempty"`
}

// Script maps topics to the replies for their successive calls.
type Script struct {
	Topics map[types.Topic][]Step `yaml:"topics"`
}

// Call is one invocation received by a ScriptInvoker.
type Call struct {
	Topic      types.Topic
	Queries    []string
	Refinement bool
}

// ScriptInvoker replays a Script: the n-th call for a topic gets the topic's
// n-th step, and the last step repeats once the script runs out. Topics with
// no steps fail. It is safe for concurrent use.
type ScriptInvoker struct {
	script Script

	mu    sync.Mutex
	next  map[types.Topic]int
	calls []Call
}

// NewScriptInvoker returns an invoker that replays s.
func NewScriptInvoker(s Script) *ScriptInvoker {
	return &ScriptInvoker{script: s, next: make(map[types.Topic]int)}
}

// LoadScript reads a YAML script file.
func LoadScript(path string) (*ScriptInvoker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing script %s: %w", path, err)
	}
	for t := range s.Topics {
		if !t.Valid() {
			return nil, fmt.Errorf("script %s: unknown topic %q", path, t)
		}
	}
	return NewScriptInvoker(s), nil
}

// Invoke implements orchestrator.Invoker.
func (s *ScriptInvoker) Invoke(ctx context.Context, topic types.Topic, queries []string, refinement bool) (types.AgentResult, error) {
	s.mu.Lock()
	steps := s.script.Topics[topic]
	n := s.next[topic]
	s.next[topic]++
	s.calls = append(s.calls, Call{Topic: topic, Queries: append([]string(nil), queries...), Refinement: refinement})
	s.mu.Unlock()

	if len(steps) == 0 {
		return types.AgentResult{}, fmt.Errorf("script has no steps for topic %s", topic)
	}
	if n >= len(steps) {
		n = len(steps) - 1
	}
	step := steps[n]

	if step.Delay > 0 {
		timer := time.NewTimer(step.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return types.AgentResult{}, ctx.Err()
		case <-timer.C:
		}
	}
	if step.Error != "" {
		return types.AgentResult{}, errors.New(step.Error)
	}
	return types.AgentResult{
		Record:     types.RecordFromMap(step.Record),
		Sources:    append([]string(nil), step.Sources...),
		Confidence: step.Confidence,
	}, nil
}

// Calls returns the invocations received so far, in arrival order.
func (s *ScriptInvoker) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}
