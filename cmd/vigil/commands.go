package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string

	// evaluate flags
	evalComponent string
	evalFeatures  []string

	rootCmd = &cobra.Command{
		Use:   "vigil",
		Short: "Rule-based equipment condition monitoring",
		Long: `Vigil evaluates sensor-derived feature snapshots against
per-component rule catalogs, records full reasoning traces, and
recalibrates rule thresholds from operator feedback.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the monitoring service (HTTP API and Kafka pipeline)",
		RunE:  runServe, // Defined in cmd_serve.go
	}

	evaluateCmd = &cobra.Command{
		Use:   "evaluate [snapshot.json]",
		Short: "Evaluate one feature snapshot and print the decision trace",
		Long: `Evaluate reads a snapshot from the given file ("-" for stdin),
or builds one from --component and --feature flags, runs it through the
rule catalog, and prints the decision trace as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runEvaluate, // Defined in cmd_evaluate.go
	}

	adjustCmd = &cobra.Command{
		Use:   "adjust",
		Short: "Recalibrate thresholds from the latest rejected alert",
		Args:  cobra.NoArgs,
		RunE:  runAdjust, // Defined in cmd_adjust.go
	}

	rulesCmd = &cobra.Command{
		Use:   "rules [component]",
		Short: "Print the rule catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRules, // Defined in cmd_rules.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default vigil.yaml)")

	evaluateCmd.Flags().StringVar(&evalComponent, "component", "", "component identifier (PUMP, CONVEYOR, ...)")
	evaluateCmd.Flags().StringArrayVar(&evalFeatures, "feature", nil, "feature reading as name=value (repeatable)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(adjustCmd)
	rootCmd.AddCommand(rulesCmd)
}
