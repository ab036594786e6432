package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vigil/internal/adjuster"
	"vigil/internal/config"
	"vigil/internal/feedback"
	"vigil/internal/logger"
	"vigil/internal/rules"
)

// runAdjust performs a one-shot threshold adjustment run
func runAdjust(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.Init("warn", cfg.Env)

	catalog, err := rules.Open(cfg.Data.CatalogPath())
	if err != nil {
		return err
	}

	adj := adjuster.New(
		catalog,
		feedback.NewLog(cfg.Data.FeedbackPath()),
		adjuster.NewTrail(cfg.Data.AuditPath()),
	)

	records, err := adj.AdjustFromLatestRejection()
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no adjustments applied")
	}

	return printJSON(map[string]interface{}{
		"count":       len(records),
		"adjustments": records,
	})
}
