// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/company-research/internal/gaps"
	"github.com/pdiddy/company-research/internal/report"
	"github.com/pdiddy/company-research/pkg/types"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Write or check the field schema used for gap detection",
	Long: `Schema manages the YAML file that declares each topic's expected fields,
their priorities, and the refinement query templates. Without a schema file
research uses the built-in schema.`,
}

var schemaInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the built-in schema to a file (default: schema.yaml)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "schema.yaml"
		if len(args) > 0 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists: use --force to overwrite", path)
		}
		if err := gaps.WriteSchema(path, gaps.DefaultSchema()); err != nil {
			return err
		}
		fmt.Println("Wrote", path)
		return nil
	},
}

var schemaCheckCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Validate a schema file and print its field counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := gaps.LoadSchema(args[0])
		if err != nil {
			return err
		}
		counts := s.FieldCounts()
		for _, t := range types.AllTopics() {
			if n, ok := counts[t]; ok {
				fmt.Printf("%-11s %d fields\n", t, n)
			}
		}
		return nil
	},
}

var schemaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the built-in schema as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		return report.WriteYAML(os.Stdout, gaps.DefaultSchema())
	},
}

func init() {
	schemaInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	schemaCmd.AddCommand(schemaInitCmd)
	schemaCmd.AddCommand(schemaCheckCmd)
	schemaCmd.AddCommand(schemaShowCmd)

	rootCmd.AddCommand(schemaCmd)
}
