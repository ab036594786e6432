package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vigil/internal/config"
	"vigil/internal/logger"
	"vigil/internal/rules"
)

// runRules prints the rule catalog, or one component's rules
func runRules(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.Init("warn", cfg.Env)

	catalog, err := rules.Open(cfg.Data.CatalogPath())
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return printJSON(catalog.All())
	}

	component := strings.ToUpper(strings.TrimSpace(args[0]))
	ruleList, ok := catalog.GetRules(component)
	if !ok {
		return fmt.Errorf("unknown component: %s", component)
	}

	return printJSON(map[string]interface{}{
		"component": component,
		"rules":     ruleList,
	})
}
