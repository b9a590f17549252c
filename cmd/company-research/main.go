// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the company-research CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/company-research/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets *secrets.Set

// rootCmd is the base command for the company-research CLI.
var rootCmd = &cobra.Command{
	Use:   "company-research",
	Short: "Iterative gap-driven company research",
	Long: `company-research runs topic research agents against a company in rounds.
After an initial pass over every topic it detects missing or placeholder fields,
plans novel refinement queries for the most urgent gaps, and re-invokes the
agents until every topic has converged or the round, deadline, or query budget
is spent.

Finished runs are stored in a local SQLite database and can be listed,
inspected, and exported with the runs subcommand.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/", envPrefix, os.Stderr)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if keys := s.FileKeys(); len(keys) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./company-research.yaml or ~/.config/company-research/company-research.yaml)")
	rootCmd.PersistentFlags().String("store-dir", ".company-research", "directory holding runs.db and exports")
	viper.BindPFlag("store.dir", rootCmd.PersistentFlags().Lookup("store-dir"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("company-research")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "company-research"))
		}
	}

	setConfigDefaults(viper.GetViper())
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
