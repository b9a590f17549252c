// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the company-research
// orchestration core: topics, field-presence records, gaps, agent results,
// and the final aggregate handed back to callers.
package types

import (
	"fmt"
	"strings"
)

// Topic names one research dimension processed independently by the
// orchestrator.
type Topic string

const (
	TopicProfile    Topic = "profile"
	TopicLeadership Topic = "leadership"
	TopicFinancial  Topic = "financial"
	TopicMarket     Topic = "market"
	TopicSignals    Topic = "signals"
)

// AllTopics returns every known topic in canonical order.
func AllTopics() []Topic {
	return []Topic{TopicProfile, TopicLeadership, TopicFinancial, TopicMarket, TopicSignals}
}

// Valid reports whether t is one of the known topics.
func (t Topic) Valid() bool {
	for _, known := range AllTopics() {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTopic converts a user-supplied name (case-insensitive) to a Topic.
func ParseTopic(s string) (Topic, error) {
	t := Topic(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown topic %q: use one of profile, leadership, financial, market, signals", s)
	}
	return t, nil
}

// ParseTopics converts a list of names, e.g. from a comma-separated flag.
// An empty list yields AllTopics.
func ParseTopics(names []string) ([]Topic, error) {
	if len(names) == 0 {
		return AllTopics(), nil
	}
	topics := make([]Topic, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		t, err := ParseTopic(n)
		if err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, nil
}

// Priority ranks gaps. Lower values are more urgent: CRITICAL < HIGH <
// MEDIUM < LOW. The order drives both triage and termination.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
)

var priorityNames = [...]string{"critical", "high", "medium", "low"}

// String returns the lowercase priority name.
func (p Priority) String() string {
	if p < PriorityCritical || p > PriorityLow {
		return fmt.Sprintf("priority(%d)", int(p))
	}
	return priorityNames[p]
}

// Lower returns the next less urgent priority, saturating at LOW.
func (p Priority) Lower() Priority {
	if p >= PriorityLow {
		return PriorityLow
	}
	return p + 1
}

// Blocking reports whether gaps of this priority prevent convergence.
func (p Priority) Blocking() bool {
	return p == PriorityCritical || p == PriorityHigh
}

// ParsePriority converts a priority name (case-insensitive) to a Priority.
func ParsePriority(s string) (Priority, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range priorityNames {
		if n == name {
			return Priority(i), nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q: use critical, high, medium, or low", s)
}

// MarshalText implements encoding.TextMarshaler for JSON and YAML output.
func (p Priority) MarshalText() ([]byte, error) {
	if p < PriorityCritical || p > PriorityLow {
		return nil, fmt.Errorf("invalid priority %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
