package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "rules_catalog.json", cfg.Data.CatalogFile)
	assert.Equal(t, "interaction_logs.json", cfg.Data.FeedbackFile)
	assert.Equal(t, "threshold_adjustments.json", cfg.Data.AuditFile)
	assert.False(t, cfg.Kafka.Enabled, "Kafka should be opt-in")
	assert.Equal(t, 4, cfg.Worker.Workers)
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vigil.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	// First run writes the defaults to disk
	_, err = os.Stat(path)
	require.NoError(t, err, "config file should be created on first load")

	assert.Equal(t, Default().HTTP.Addr, cfg.HTTP.Addr)
	assert.Equal(t, Default().Data.Dir, cfg.Data.Dir)
}

func TestLoadParsesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vigil.yaml")
	content := `
log_level: debug
http:
  addr: ":9090"
worker:
  workers: 8
data:
  dir: /tmp/vigil-test
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 8, cfg.Worker.Workers)
	assert.Equal(t, "/tmp/vigil-test", cfg.Data.Dir)
	// Untouched fields keep their defaults
	assert.Equal(t, Default().Worker.QueueSize, cfg.Worker.QueueSize)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vigil.yaml")

	t.Setenv("VIGIL_HTTP_ADDR", ":7070")
	t.Setenv("VIGIL_LOG_LEVEL", "warn")
	t.Setenv("VIGIL_KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("VIGIL_DATA_DIR", "/var/lib/vigil")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled, "setting brokers enables Kafka")
	assert.Equal(t, "/var/lib/vigil", cfg.Data.Dir)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vigil.yaml")
	content := `
log_level: loud
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDurationYAMLRoundTrip(t *testing.T) {
	type wrapper struct {
		Timeout Duration `yaml:"timeout"`
	}

	in := wrapper{Timeout: Duration(250 * time.Millisecond)}
	data, err := yaml.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), "250ms")

	var out wrapper
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.Equal(t, 250*time.Millisecond, out.Timeout.Std())
}

func TestDurationUnmarshalInvalid(t *testing.T) {
	type wrapper struct {
		Timeout Duration `yaml:"timeout"`
	}

	var out wrapper
	err := yaml.Unmarshal([]byte(`timeout: "soon"`), &out)
	assert.Error(t, err)
}

func TestDataConfigPaths(t *testing.T) {
	d := DataConfig{
		Dir:          "/data",
		CatalogFile:  "rules_catalog.json",
		FeedbackFile: "interaction_logs.json",
		AuditFile:    "threshold_adjustments.json",
		ArchiveFile:  "trace_archive.jsonl",
	}

	assert.Equal(t, filepath.Join("/data", "rules_catalog.json"), d.CatalogPath())
	assert.Equal(t, filepath.Join("/data", "interaction_logs.json"), d.FeedbackPath())
	assert.Equal(t, filepath.Join("/data", "threshold_adjustments.json"), d.AuditPath())
	assert.Equal(t, filepath.Join("/data", "trace_archive.jsonl"), d.ArchivePath())
}
