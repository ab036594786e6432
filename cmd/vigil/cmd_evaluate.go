package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vigil/internal/config"
	"vigil/internal/engine"
	"vigil/internal/logger"
	"vigil/internal/models"
	"vigil/internal/rules"
)

// runEvaluate performs a one-shot evaluation and prints the trace
func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Keep stdout clean for the trace JSON
	logger.Init("warn", cfg.Env)

	snapshot, err := snapshotFromArgs(args)
	if err != nil {
		return err
	}

	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	snapshot.Normalize()
	if err := snapshot.Validate(); err != nil {
		return err
	}

	catalog, err := rules.Open(cfg.Data.CatalogPath())
	if err != nil {
		return err
	}

	trace, err := engine.New(catalog).Evaluate(snapshot)
	if err != nil {
		return err
	}

	return printJSON(trace)
}

// snapshotFromArgs builds the snapshot from a file argument or from the
// --component/--feature flags
func snapshotFromArgs(args []string) (*models.FeatureSnapshot, error) {
	if len(args) == 1 {
		var data []byte
		var err error
		if args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return nil, err
		}
		return models.DecodeSnapshot(data)
	}

	if evalComponent == "" || len(evalFeatures) == 0 {
		return nil, fmt.Errorf("either a snapshot file or --component with --feature flags is required")
	}

	features := make(map[string]float64, len(evalFeatures))
	for _, f := range evalFeatures {
		name, raw, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --feature %q: expected name=value", f)
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --feature %q: %w", f, err)
		}
		features[name] = value
	}

	return &models.FeatureSnapshot{
		Component: evalComponent,
		Timestamp: time.Now().UTC(),
		Features:  features,
	}, nil
}

// printJSON writes v to stdout as indented JSON
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
