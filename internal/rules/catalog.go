package rules

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"vigil/internal/logger"
	"vigil/internal/models"
)

// Catalog errors
var (
	ErrInvalidThreshold = errors.New("threshold must be a finite value greater than zero")
	ErrPersistFailed    = errors.New("failed to persist rule catalog")
)

// Catalog holds the per-component ordered rule lists and is the single
// mutable store of current thresholds. Reads run concurrently; threshold
// updates and persistence hold the write lock so no reader observes a
// rule mid-update.
type Catalog struct {
	mu    sync.RWMutex
	path  string
	rules map[string][]models.Rule

	// Hash of the file content this catalog last wrote, so the watcher
	// can tell its own persists apart from external edits.
	lastWrite [sha256.Size]byte
}

// Open loads the catalog from path. A missing file is seeded with the
// default rule sets and persisted; a malformed file is an error.
func Open(path string) (*Catalog, error) {
	c := &Catalog{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log := logger.WithComponent("catalog")
		log.Info().Str("path", path).Msg("no catalog file found, seeding defaults")
		c.rules = DefaultRuleSets()
		if err := c.Persist(); err != nil {
			return nil, err
		}
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	ruleSets, err := parseRuleSets(data)
	if err != nil {
		return nil, err
	}

	c.rules = ruleSets
	c.lastWrite = sha256.Sum256(data)
	return c, nil
}

// parseRuleSets decodes and validates a serialized catalog document
func parseRuleSets(data []byte) (map[string][]models.Rule, error) {
	var ruleSets map[string][]models.Rule
	if err := json.Unmarshal(data, &ruleSets); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	for component, list := range ruleSets {
		if component == "" {
			return nil, errors.New("catalog contains an empty component id")
		}
		seen := make(map[string]bool, len(list))
		for _, rule := range list {
			if rule.Name == "" {
				return nil, fmt.Errorf("component %s contains an unnamed rule", component)
			}
			if seen[rule.Name] {
				return nil, fmt.Errorf("component %s contains duplicate rule %s", component, rule.Name)
			}
			seen[rule.Name] = true
			if rule.Feature == "" {
				return nil, fmt.Errorf("rule %s has no feature", rule.Name)
			}
			if !rule.Comparison.IsValid() {
				return nil, fmt.Errorf("rule %s has invalid comparator %q", rule.Name, rule.Comparison)
			}
			if !validThreshold(rule.Threshold) {
				return nil, fmt.Errorf("rule %s has invalid threshold %v", rule.Name, rule.Threshold)
			}
			if rule.ConfidenceDelta <= 0 || rule.ConfidenceDelta > 1 {
				return nil, fmt.Errorf("rule %s has confidence delta %v outside (0,1]", rule.Name, rule.ConfidenceDelta)
			}
		}
	}

	return ruleSets, nil
}

func validThreshold(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0) && value > 0
}

// Path returns the catalog's backing file path
func (c *Catalog) Path() string { return c.path }

// GetRules returns a copy of the ordered rule list for a component
func (c *Catalog) GetRules(component string) ([]models.Rule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list, ok := c.rules[component]
	if !ok {
		return nil, false
	}
	out := make([]models.Rule, len(list))
	copy(out, list)
	return out, true
}

// All returns a copy of the full catalog
func (c *Catalog) All() map[string][]models.Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string][]models.Rule, len(c.rules))
	for component, list := range c.rules {
		cp := make([]models.Rule, len(list))
		copy(cp, list)
		out[component] = cp
	}
	return out
}

// Components returns the known component ids, sorted
func (c *Catalog) Components() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.rules))
	for component := range c.rules {
		out = append(out, component)
	}
	sort.Strings(out)
	return out
}

// RuleCount returns the total number of rules across all components
func (c *Catalog) RuleCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, list := range c.rules {
		n += len(list)
	}
	return n
}

// GetThreshold returns the current threshold for a rule
func (c *Catalog) GetThreshold(component, ruleName string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, rule := range c.rules[component] {
		if rule.Name == ruleName {
			return rule.Threshold, true
		}
	}
	return 0, false
}

// UpdateThreshold sets a new threshold for a rule. It returns false when
// the component or rule is unknown. Non-finite or non-positive values
// fail with ErrInvalidThreshold and leave the catalog unchanged.
func (c *Catalog) UpdateThreshold(component, ruleName string, value float64) (bool, error) {
	if !validThreshold(value) {
		return false, fmt.Errorf("%w: %v", ErrInvalidThreshold, value)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	list, ok := c.rules[component]
	if !ok {
		return false, nil
	}
	for i := range list {
		if list[i].Name == ruleName {
			list[i].Threshold = value
			return true, nil
		}
	}
	return false, nil
}

// Persist durably writes the full catalog. The write is all-or-nothing:
// content goes to a temp file first and is renamed over the old catalog,
// so a failed write leaves the on-disk state untouched.
func (c *Catalog) Persist() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(c.rules, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistFailed, err)
		}
	}

	tempPath := c.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	if err := os.Rename(tempPath, c.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	c.lastWrite = sha256.Sum256(data)
	return nil
}

// Reload re-reads the catalog file and swaps in the parsed rule sets.
// It reports whether a reload was applied; a file whose content matches
// the catalog's own last write is skipped.
func (c *Catalog) Reload() (bool, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return false, fmt.Errorf("failed to read catalog file: %w", err)
	}

	sum := sha256.Sum256(data)

	c.mu.Lock()
	if sum == c.lastWrite {
		c.mu.Unlock()
		return false, nil
	}
	c.mu.Unlock()

	ruleSets, err := parseRuleSets(data)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.rules = ruleSets
	c.lastWrite = sum
	c.mu.Unlock()
	return true, nil
}
