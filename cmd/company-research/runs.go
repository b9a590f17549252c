// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/company-research/internal/report"
	"github.com/pdiddy/company-research/internal/runstore"
	"github.com/pdiddy/company-research/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage saved research runs (list, show, gaps, export, delete)",
	Long: `Runs inspects the SQLite run store written by research. Runs are
addressed by their ID or any unique prefix of it.`,
}

// --- list subcommand ---

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	RunE:  runRunsList,
}

func runRunsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	opts, err := listOptsFromFlags(cmd)
	if err != nil {
		return err
	}
	runs, err := store.List(context.Background(), opts)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return report.WriteJSON(os.Stdout, runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-8s  %-20s  %-16s  %-30s  %6s  %s\n",
		"ID", "Company", "Started", "Termination", "Rounds", "Gaps (C/H/M/L)")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		company := r.Company
		if len(company) > 20 {
			company = company[:17] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-8s  %-20s  %-16s  %-30s  %6d  %d/%d/%d/%d\n",
			id, company, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Termination,
			r.RoundsExecuted, r.Remaining.Critical, r.Remaining.High, r.Remaining.Medium, r.Remaining.Low)
	}
	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

// --- show subcommand ---

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a saved run's summary or full aggregate",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	agg, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	return writeAggregate(cmd, agg)
}

// --- gaps subcommand ---

var runsGapsCmd = &cobra.Command{
	Use:   "gaps <run-id>",
	Short: "List the fields a saved run left unfilled",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsGaps,
}

func runRunsGaps(cmd *cobra.Command, args []string) error {
	minName, _ := cmd.Flags().GetString("min-priority")
	minPriority, err := types.ParsePriority(minName)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	agg, err := store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	gaps, err := store.RemainingGaps(ctx, agg.RunID, minPriority)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return report.WriteJSON(os.Stdout, gaps)
	}
	if len(gaps) == 0 {
		fmt.Printf("No gaps at %s or above.\n", minPriority)
		return nil
	}
	for _, g := range gaps {
		fmt.Fprintf(os.Stdout, "%-8s  %-11s  %-24s  %-11s  %d queries\n",
			g.Priority, g.Topic, g.Field, g.Reason, g.Attempts)
	}
	return nil
}

// --- export subcommand ---

var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved runs to YAML or JSON",
	Long: `Export writes the full aggregates of the matching runs to export.yaml or
export.json in the store directory.`,
	RunE: runRunsExport,
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	opts, err := listOptsFromFlags(cmd)
	if err != nil {
		return err
	}

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(context.Background(), opts)
	case "json":
		path, err = store.ExportJSON(context.Background(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

// --- delete subcommand ---

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		agg, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if err := store.Delete(ctx, agg.RunID); err != nil {
			return err
		}
		fmt.Println("Deleted run", agg.RunID)
		return nil
	},
}

// --- shared helpers ---

func openStore() (*runstore.Store, error) {
	return runstore.Open(types.StoreConfig{Dir: viper.GetString("store.dir")})
}

func listOptsFromFlags(cmd *cobra.Command) (runstore.ListOptions, error) {
	company, _ := cmd.Flags().GetString("company")
	state, _ := cmd.Flags().GetString("state")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := runstore.ListOptions{Company: company, Limit: limit}
	switch strings.ToUpper(state) {
	case "":
	case string(types.StateConverged), string(types.StateExhausted):
		opts.State = types.TerminalState(strings.ToUpper(state))
	default:
		return opts, fmt.Errorf("unknown state %q: use converged or exhausted", state)
	}
	return opts, nil
}

func init() {
	for _, c := range []*cobra.Command{runsListCmd, runsExportCmd} {
		c.Flags().String("company", "", "filter by company name")
		c.Flags().String("state", "", "filter by terminal state: converged or exhausted")
		c.Flags().Int("limit", 0, "maximum runs (0 = default)")
	}
	runsListCmd.Flags().Bool("json", false, "output runs as JSON")

	runsShowCmd.Flags().Bool("json", false, "print the aggregate as JSON")
	runsShowCmd.Flags().Bool("yaml", false, "print the aggregate as YAML")
	runsShowCmd.MarkFlagsMutuallyExclusive("json", "yaml")

	runsGapsCmd.Flags().String("min-priority", "low", "lowest priority to list: critical, high, medium, low")
	runsGapsCmd.Flags().Bool("json", false, "output gaps as JSON")

	runsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsGapsCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsDeleteCmd)

	rootCmd.AddCommand(runsCmd)
}
