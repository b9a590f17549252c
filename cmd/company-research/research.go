// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/company-research/internal/gaps"
	"github.com/pdiddy/company-research/internal/httputil"
	"github.com/pdiddy/company-research/internal/invoker"
	"github.com/pdiddy/company-research/internal/metrics"
	"github.com/pdiddy/company-research/internal/orchestrator"
	"github.com/pdiddy/company-research/internal/report"
	"github.com/pdiddy/company-research/internal/runstore"
	"github.com/pdiddy/company-research/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research <company>",
	Short: "Research a company until every topic converges or the budget runs out",
	Long: `Research dispatches one agent call per topic, merges the partial records,
and detects the fields that are still missing or hold placeholders. While
CRITICAL or HIGH gaps remain and rounds are left, it plans novel queries for
the most urgent gaps and re-invokes only the topics that still need work.

Agents are reached over HTTP (--agent-url) or replayed from a YAML script
(--script). The finished run is saved to the run store unless --no-save is set.
Interrupting the command finalizes the run with the records gathered so far.`,
	Args: cobra.ExactArgs(1),
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	cfg := researchConfig(viper.GetViper(), loadedSecrets)

	topicNames, _ := cmd.Flags().GetStringSlice("topics")
	topics, err := types.ParseTopics(topicNames)
	if err != nil {
		return err
	}

	schema := gaps.DefaultSchema()
	if cfg.SchemaFile != "" {
		if schema, err = gaps.LoadSchema(cfg.SchemaFile); err != nil {
			return err
		}
	}

	company := args[0]
	inv, err := researchInvoker(cmd, company, cfg.Agent)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(os.Stderr, "warning: metrics server: %v\n", err)
			}
		}()
		defer srv.Close()
		fmt.Fprintf(os.Stderr, "Serving metrics on %s/metrics\n", addr)
	}

	httputil.RetryLog = os.Stderr

	orch := orchestrator.New(inv, schema,
		orchestrator.WithLog(os.Stderr),
		orchestrator.WithObserver(collector),
		orchestrator.WithInvokeTimeout(cfg.Orchestrator.InvokeTimeout),
		orchestrator.WithConcurrency(cfg.Orchestrator.Concurrency),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	agg, err := orch.Run(ctx, orchestrator.NewRequest(company, topics, cfg.Orchestrator))
	if err != nil {
		return err
	}

	if noSave, _ := cmd.Flags().GetBool("no-save"); !noSave {
		if err := saveRun(cfg.Store, agg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Saved run %s to %s\n", agg.RunID, cfg.Store.Dir)
		}
	}

	return writeAggregate(cmd, agg)
}

func researchInvoker(cmd *cobra.Command, company string, agent types.AgentConfig) (orchestrator.Invoker, error) {
	if script, _ := cmd.Flags().GetString("script"); script != "" {
		return invoker.LoadScript(script)
	}
	if agent.Endpoint == "" {
		return nil, fmt.Errorf("no agent configured: set --agent-url (or agent.endpoint) or use --script")
	}
	return invoker.NewHTTPInvoker(company, agent)
}

func saveRun(cfg types.StoreConfig, agg *types.Aggregate) error {
	store, err := runstore.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(context.Background(), agg)
}

// writeAggregate prints agg to stdout as JSON, YAML, or the terminal summary.
func writeAggregate(cmd *cobra.Command, agg *types.Aggregate) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	yamlOutput, _ := cmd.Flags().GetBool("yaml")
	switch {
	case jsonOutput:
		return report.WriteJSON(os.Stdout, agg)
	case yamlOutput:
		return report.WriteYAML(os.Stdout, agg)
	default:
		fmt.Print(report.FormatSummary(agg))
		return nil
	}
}

func init() {
	d := types.DefaultOrchestratorConfig()
	f := researchCmd.Flags()

	f.StringSlice("topics", nil, "topics to research (default: profile,leadership,financial,market,signals)")
	f.Int("max-rounds", d.MaxRounds, "total rounds including the initial round")
	f.Int("gap-cap", d.PerRoundGapCap, "gaps refined per topic per round")
	f.Int("query-budget", d.QueryBudgetPerGap, "refinement queries allowed per field over the run")
	f.Int("queries-per-plan", d.QueriesPerPlan, "refinement queries per field per round (0 = query budget)")
	f.Duration("deadline", d.Deadline, "overall run deadline (0 = none)")
	f.Duration("invoke-timeout", d.InvokeTimeout, "per agent call timeout (0 = none)")
	f.Int("concurrency", d.Concurrency, "simultaneous agent calls per round (0 = one per topic)")
	f.Float64("max-query-overlap", d.MaxQueryOverlap, "word overlap above which a refinement query is a repeat (0 = off)")
	f.String("agent-url", "", "base URL of the research agent service")
	f.Int("agent-max-retries", 3, "retries on rate-limit and gateway errors")
	f.String("script", "", "replay agent responses from a YAML script instead of calling a service")
	f.String("schema", "", "field schema YAML (default: built-in schema)")
	f.Bool("no-save", false, "do not save the run to the run store")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address during the run (e.g. :9090)")
	f.Bool("json", false, "print the aggregate as JSON")
	f.Bool("yaml", false, "print the aggregate as YAML")
	researchCmd.MarkFlagsMutuallyExclusive("json", "yaml")
	researchCmd.MarkFlagsMutuallyExclusive("script", "agent-url")

	for key, flag := range map[string]string{
		"orchestrator.max_rounds":           "max-rounds",
		"orchestrator.per_round_gap_cap":    "gap-cap",
		"orchestrator.query_budget_per_gap": "query-budget",
		"orchestrator.queries_per_plan":     "queries-per-plan",
		"orchestrator.deadline":             "deadline",
		"orchestrator.invoke_timeout":       "invoke-timeout",
		"orchestrator.concurrency":          "concurrency",
		"orchestrator.max_query_overlap":    "max-query-overlap",
		"agent.endpoint":                    "agent-url",
		"agent.max_retries":                 "agent-max-retries",
		"schema_file":                       "schema",
	} {
		viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(researchCmd)
}
