// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/viper"

	"github.com/pdiddy/company-research/internal/secrets"
	"github.com/pdiddy/company-research/pkg/types"
)

// envPrefix prefixes every environment variable the CLI reads, for config
// keys and secrets alike.
const envPrefix = "COMPANY_RESEARCH"

func setConfigDefaults(v *viper.Viper) {
	d := types.DefaultOrchestratorConfig()
	v.SetDefault("orchestrator.max_rounds", d.MaxRounds)
	v.SetDefault("orchestrator.per_round_gap_cap", d.PerRoundGapCap)
	v.SetDefault("orchestrator.query_budget_per_gap", d.QueryBudgetPerGap)
	v.SetDefault("orchestrator.queries_per_plan", d.QueriesPerPlan)
	v.SetDefault("orchestrator.deadline", d.Deadline)
	v.SetDefault("orchestrator.invoke_timeout", d.InvokeTimeout)
	v.SetDefault("orchestrator.concurrency", d.Concurrency)
	v.SetDefault("orchestrator.max_query_overlap", d.MaxQueryOverlap)
	v.SetDefault("agent.timeout", d.InvokeTimeout)
	v.SetDefault("agent.user_agent", "company-research/"+version)
	v.SetDefault("agent.max_retries", 3)
	v.SetDefault("store.dir", ".company-research")
}

// researchConfig resolves the run settings from flags, the config file, and
// the environment, in viper's precedence order. The agent API key comes from
// the config when set, otherwise from .secrets/ or the environment.
func researchConfig(v *viper.Viper, loaded *secrets.Set) types.ResearchConfig {
	cfg := types.ResearchConfig{
		Orchestrator: types.OrchestratorConfig{
			MaxRounds:         v.GetInt("orchestrator.max_rounds"),
			PerRoundGapCap:    v.GetInt("orchestrator.per_round_gap_cap"),
			QueryBudgetPerGap: v.GetInt("orchestrator.query_budget_per_gap"),
			QueriesPerPlan:    v.GetInt("orchestrator.queries_per_plan"),
			Deadline:          v.GetDuration("orchestrator.deadline"),
			InvokeTimeout:     v.GetDuration("orchestrator.invoke_timeout"),
			Concurrency:       v.GetInt("orchestrator.concurrency"),
			MaxQueryOverlap:   v.GetFloat64("orchestrator.max_query_overlap"),
		},
		Agent: types.AgentConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration("agent.timeout"),
				UserAgent: v.GetString("agent.user_agent"),
			},
			Endpoint:   v.GetString("agent.endpoint"),
			APIKey:     v.GetString("agent.api_key"),
			MaxRetries: v.GetInt("agent.max_retries"),
		},
		Store:      types.StoreConfig{Dir: v.GetString("store.dir")},
		SchemaFile: v.GetString("schema_file"),
	}
	if cfg.Agent.APIKey == "" {
		cfg.Agent.APIKey = loaded.Get(secrets.AgentAPIKey)
	}
	return cfg
}
