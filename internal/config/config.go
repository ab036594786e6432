package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config values round-trip through YAML
// as strings like "250ms" or "5s"
type Duration time.Duration

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds runtime configuration for the monitoring service.
type Config struct {
	Env      string `yaml:"env" validate:"omitempty,oneof=development production"`
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`

	HTTP   HTTPConfig   `yaml:"http"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	Worker WorkerConfig `yaml:"worker"`
	Data   DataConfig   `yaml:"data"`
}

// HTTPConfig holds the HTTP server settings
type HTTPConfig struct {
	Addr         string   `yaml:"addr" validate:"required"`
	ReadTimeout  Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout Duration `yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout  Duration `yaml:"idle_timeout" validate:"gt=0"`
	MaxBodySize  int64    `yaml:"max_body_size" validate:"gt=0"`
}

// KafkaConfig holds broker, topic, and client settings
type KafkaConfig struct {
	// Enabled toggles the Kafka pipeline; the HTTP API works without it
	Enabled       bool           `yaml:"enabled"`
	Brokers       []string       `yaml:"brokers" validate:"required_if=Enabled true"`
	SnapshotTopic string         `yaml:"snapshot_topic" validate:"required"`
	TraceTopic    string         `yaml:"trace_topic" validate:"required"`
	GroupID       string         `yaml:"group_id" validate:"required"`
	Producer      ProducerConfig `yaml:"producer"`
	Consumer      ConsumerConfig `yaml:"consumer"`
}

// ProducerConfig holds Kafka producer tuning
type ProducerConfig struct {
	PoolSize     int      `yaml:"pool_size" validate:"gte=1,lte=64"`
	BatchSize    int      `yaml:"batch_size" validate:"gte=1"`
	BatchTimeout Duration `yaml:"batch_timeout" validate:"gt=0"`
	WriteTimeout Duration `yaml:"write_timeout" validate:"gt=0"`
	RequiredAcks int      `yaml:"required_acks" validate:"oneof=-1 0 1"`
	MaxRetries   int      `yaml:"max_retries" validate:"gte=0,lte=10"`
	RetryBackoff Duration `yaml:"retry_backoff" validate:"gt=0"`
	Compression  string   `yaml:"compression" validate:"omitempty,oneof=none gzip snappy lz4 zstd"`
}

// ConsumerConfig holds Kafka consumer tuning
type ConsumerConfig struct {
	MinBytes       int      `yaml:"min_bytes" validate:"gte=1"`
	MaxBytes       int      `yaml:"max_bytes" validate:"gte=1"`
	MaxWait        Duration `yaml:"max_wait" validate:"gt=0"`
	CommitInterval Duration `yaml:"commit_interval" validate:"gt=0"`
}

// WorkerConfig holds worker pool settings
type WorkerConfig struct {
	Workers      int      `yaml:"workers" validate:"gte=1,lte=256"`
	QueueSize    int      `yaml:"queue_size" validate:"gte=1"`
	BatchSize    int      `yaml:"batch_size" validate:"gte=1"`
	BatchTimeout Duration `yaml:"batch_timeout" validate:"gt=0"`
}

// DataConfig locates the flat-file stores
type DataConfig struct {
	Dir          string `yaml:"dir" validate:"required"`
	CatalogFile  string `yaml:"catalog_file" validate:"required"`
	FeedbackFile string `yaml:"feedback_file" validate:"required"`
	AuditFile    string `yaml:"audit_file" validate:"required"`
	ArchiveFile  string `yaml:"archive_file" validate:"required"`
	WatchCatalog bool   `yaml:"watch_catalog"`
}

// CatalogPath returns the full path of the rule catalog file
func (d DataConfig) CatalogPath() string { return filepath.Join(d.Dir, d.CatalogFile) }

// FeedbackPath returns the full path of the feedback log file
func (d DataConfig) FeedbackPath() string { return filepath.Join(d.Dir, d.FeedbackFile) }

// AuditPath returns the full path of the adjustment audit trail file
func (d DataConfig) AuditPath() string { return filepath.Join(d.Dir, d.AuditFile) }

// ArchivePath returns the full path of the trace archive file
func (d DataConfig) ArchivePath() string { return filepath.Join(d.Dir, d.ArchiveFile) }

// Default returns a sensible default config for local dev.
func Default() *Config {
	return &Config{
		Env:      "development",
		LogLevel: "info",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  Duration(10 * time.Second),
			WriteTimeout: Duration(10 * time.Second),
			IdleTimeout:  Duration(60 * time.Second),
			MaxBodySize:  10 * 1024 * 1024, // 10MB
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			SnapshotTopic: "vigil.features",
			TraceTopic:    "vigil.traces",
			GroupID:       "vigil-engine",
			Producer: ProducerConfig{
				PoolSize:     4,
				BatchSize:    100,
				BatchTimeout: Duration(100 * time.Millisecond),
				WriteTimeout: Duration(10 * time.Second),
				RequiredAcks: -1, // all replicas
				MaxRetries:   3,
				RetryBackoff: Duration(100 * time.Millisecond),
				Compression:  "snappy",
			},
			Consumer: ConsumerConfig{
				MinBytes:       1,
				MaxBytes:       10 * 1024 * 1024,
				MaxWait:        Duration(500 * time.Millisecond),
				CommitInterval: Duration(time.Second),
			},
		},
		Worker: WorkerConfig{
			Workers:      4,
			QueueSize:    1000,
			BatchSize:    50,
			BatchTimeout: Duration(100 * time.Millisecond),
		},
		Data: DataConfig{
			Dir:          "data",
			CatalogFile:  "rules_catalog.json",
			FeedbackFile: "interaction_logs.json",
			AuditFile:    "threshold_adjustments.json",
			ArchiveFile:  "trace_archive.jsonl",
			WatchCatalog: true,
		},
	}
}

// Load reads the config file at path, creating it with defaults on first
// run, then applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "vigil.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// createDefault writes the default config to path
func createDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// applyEnv overrides the common deploy knobs from environment variables
func (c *Config) applyEnv() {
	if v := os.Getenv("ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("VIGIL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("VIGIL_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("VIGIL_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitCSV(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("VIGIL_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
}

// Validate checks the config against its struct tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
