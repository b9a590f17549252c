// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders a finished research aggregate for the terminal or
// as JSON/YAML documents.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/company-research/pkg/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1)
	convergedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	exhaustedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// FormatSummary renders a human-readable summary of agg: termination, the
// per-topic outcome, round statistics, and every remaining gap with its
// final priority.
func FormatSummary(agg *types.Aggregate) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Company research: "+agg.Company) + "\n")
	fmt.Fprintf(&b, "Run:         %s\n", agg.RunID)
	fmt.Fprintf(&b, "Termination: %s\n", stateStyle(agg.Termination.State).Render(agg.Termination.String()))
	if !agg.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Duration:    %s\n", agg.FinishedAt.Sub(agg.StartedAt).Round(time.Millisecond))
	}

	b.WriteString(headingStyle.Render("Topics") + "\n")
	for _, tr := range agg.Topics {
		status := string(tr.Status)
		if tr.Status.Converged() {
			status = convergedStyle.Render(status)
		} else {
			status = exhaustedStyle.Render(status)
		}
		line := fmt.Sprintf("  %-11s %-22s %2d fields  confidence %.2f",
			tr.Topic, status, tr.Record.PresentCount(), tr.Confidence)
		if tr.ConvergedRound > 0 {
			line += fmt.Sprintf("  after %d rounds", tr.ConvergedRound)
		}
		if tr.Failures > 0 {
			line += fmt.Sprintf("  %d failed calls", tr.Failures)
		}
		b.WriteString(line + "\n")
	}

	s := agg.Summary()
	b.WriteString(headingStyle.Render("Refinement") + "\n")
	fmt.Fprintf(&b, "  rounds executed:  %d\n", agg.RoundsExecuted)
	fmt.Fprintf(&b, "  gaps detected:    %d\n", s.GapsDetected)
	fmt.Fprintf(&b, "  gaps resolved:    %d (%.0f%%)\n", s.GapsResolved, s.FillRate)
	fmt.Fprintf(&b, "  fields populated: %d\n", agg.FieldsPopulated)
	fmt.Fprintf(&b, "  sources:          %d\n", len(agg.Sources))
	fmt.Fprintf(&b, "  avg confidence:   %.2f\n", agg.AverageConfidence())
	for _, rm := range agg.Rounds {
		line := fmt.Sprintf("  round %d %-10s %d topics, %d queries, %d gaps filled",
			rm.Round, rm.Phase, len(rm.TopicsDispatched), rm.QueriesIssued, rm.GapsFilled)
		if len(rm.TopicsFailed) > 0 {
			line += fmt.Sprintf(", failed: %s", joinTopics(rm.TopicsFailed))
		}
		b.WriteString(dimStyle.Render(line) + "\n")
	}

	b.WriteString(headingStyle.Render("Remaining gaps") + "\n")
	if len(agg.GapsRemaining) == 0 {
		b.WriteString("  none\n")
		return b.String()
	}
	fmt.Fprintf(&b, "  critical %d, high %d, medium %d, low %d\n",
		s.RemainingBy.Critical, s.RemainingBy.High, s.RemainingBy.Medium, s.RemainingBy.Low)
	for _, g := range agg.GapsRemaining {
		line := fmt.Sprintf("  %-8s %s.%s (%s", g.Priority, g.Topic, g.Field, g.Reason)
		if g.Attempts > 0 {
			line += fmt.Sprintf(", %d queries", g.Attempts)
		}
		if g.LastAttemptRound > 0 {
			line += fmt.Sprintf(" through round %d", g.LastAttemptRound)
		}
		if g.PlanningExhausted {
			line += ", no novel queries left"
		}
		b.WriteString(line + ")\n")
	}
	return b.String()
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// WriteYAML encodes v as YAML.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}

func stateStyle(s types.TerminalState) lipgloss.Style {
	if s == types.StateConverged {
		return convergedStyle
	}
	return exhaustedStyle
}

func joinTopics(ts []types.Topic) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
