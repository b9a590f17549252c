// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "company-research/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AgentConfig holds settings for the remote research agent service.
type AgentConfig struct {
	HTTPConfig `yaml:",inline"`

	// Endpoint is the base URL of the agent service (e.g. "http://localhost:8080").
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// APIKey is sent as a bearer token when set.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retries on rate-limit and gateway errors (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// OrchestratorConfig holds the run budget and scheduling settings.
type OrchestratorConfig struct {
	// MaxRounds is the total round budget including the initial round (>= 1).
	MaxRounds int `json:"max_rounds" yaml:"max_rounds"`

	// PerRoundGapCap bounds how many gaps per topic are refined in one round.
	PerRoundGapCap int `json:"per_round_gap_cap" yaml:"per_round_gap_cap"`

	// QueryBudgetPerGap bounds the refinement queries issued for one
	// (topic, field) pair over the whole run.
	QueryBudgetPerGap int `json:"query_budget_per_gap" yaml:"query_budget_per_gap"`

	// QueriesPerPlan bounds the queries produced for one gap in one round.
	// Zero means QueryBudgetPerGap.
	QueriesPerPlan int `json:"queries_per_plan" yaml:"queries_per_plan"`

	// Deadline bounds the whole run. Zero disables it.
	Deadline time.Duration `json:"deadline" yaml:"deadline"`

	// InvokeTimeout bounds each agent call. Zero disables it.
	InvokeTimeout time.Duration `json:"invoke_timeout" yaml:"invoke_timeout"`

	// Concurrency caps simultaneous agent calls within a round. Zero means
	// one goroutine per dispatched topic.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// MaxQueryOverlap is the word-overlap ratio above which a candidate
	// refinement query counts as a repeat. Zero disables the check.
	MaxQueryOverlap float64 `json:"max_query_overlap" yaml:"max_query_overlap"`
}

// DefaultOrchestratorConfig returns an initial round plus two refinement
// rounds, refining the top three gaps per topic.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxRounds:         3,
		PerRoundGapCap:    3,
		QueryBudgetPerGap: 6,
		QueriesPerPlan:    3,
		Deadline:          10 * time.Minute,
		InvokeTimeout:     2 * time.Minute,
	}
}

// StoreConfig holds settings for the run store.
type StoreConfig struct {
	// Dir is the directory holding runs.db and exports.
	Dir string `json:"dir" yaml:"dir"`
}

// ResearchConfig groups every setting the CLI resolves from flags, the config
// file, and the environment.
type ResearchConfig struct {
	Orchestrator OrchestratorConfig `json:"orchestrator" yaml:"orchestrator"`
	Agent        AgentConfig        `json:"agent" yaml:"agent"`
	Store        StoreConfig        `json:"store" yaml:"store"`

	// SchemaFile overrides the built-in field schema when set.
	SchemaFile string `json:"schema_file,omitempty" yaml:"schema_file,omitempty"`
}
