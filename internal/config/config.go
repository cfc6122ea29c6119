package config

import (
	"fmt"
	"time"

	"github.com/atikulmunna/lognorm/internal/forward"
	"github.com/atikulmunna/lognorm/internal/parser"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. LOGNORM_LOG_LEVEL.
const EnvPrefix = "LOGNORM"

// Config is the complete lognorm configuration.
type Config struct {
	Log        LogConfig      `mapstructure:"log" yaml:"log"`
	FailLevels []string       `mapstructure:"fail_levels" yaml:"fail_levels"`
	Formats    []FormatConfig `mapstructure:"formats" yaml:"formats"`
	StateFile  string         `mapstructure:"state_file" yaml:"state_file"`
	Server     ServerConfig   `mapstructure:"server" yaml:"server"`
	Forward    ForwardConfig  `mapstructure:"forward" yaml:"forward"`
}

// LogConfig controls lognorm's own diagnostics.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Unparseable-line
	// diagnostics are only visible at debug.
	Level string `mapstructure:"level" yaml:"level"`
}

// FormatConfig is a custom recognizer. Pattern is a regexp with named
// groups; level, msg and message map to the canonical keys.
type FormatConfig struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Pattern string `mapstructure:"pattern" yaml:"pattern"`
}

// ServerConfig controls the HTTP surface of watch. An empty Addr disables it.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// ForwardConfig selects where classified entries are shipped.
type ForwardConfig struct {
	// Kind is "", "kafka" or "opensearch". Empty disables forwarding.
	Kind          string           `mapstructure:"kind" yaml:"kind"`
	BatchSize     int              `mapstructure:"batch_size" yaml:"batch_size"`
	FlushInterval time.Duration    `mapstructure:"flush_interval" yaml:"flush_interval"`
	Kafka         KafkaConfig      `mapstructure:"kafka" yaml:"kafka"`
	OpenSearch    OpenSearchConfig `mapstructure:"opensearch" yaml:"opensearch"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers" yaml:"brokers"`
	Topic   string   `mapstructure:"topic" yaml:"topic"`
}

type OpenSearchConfig struct {
	Addresses   []string `mapstructure:"addresses" yaml:"addresses"`
	IndexPrefix string   `mapstructure:"index_prefix" yaml:"index_prefix"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Log:        LogConfig{Level: "info"},
		FailLevels: []string{"error", "fatal"},
		StateFile:  ".lognorm-state.json",
		Forward: ForwardConfig{
			BatchSize:     500,
			FlushInterval: time.Second,
			OpenSearch:    OpenSearchConfig{IndexPrefix: "lognorm"},
		},
	}
}

// SetDefaults registers default values with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("fail_levels", defaults.FailLevels)
	v.SetDefault("formats", []FormatConfig{})
	v.SetDefault("state_file", defaults.StateFile)
	v.SetDefault("server.addr", defaults.Server.Addr)

	v.SetDefault("forward.kind", defaults.Forward.Kind)
	v.SetDefault("forward.batch_size", defaults.Forward.BatchSize)
	v.SetDefault("forward.flush_interval", defaults.Forward.FlushInterval)
	v.SetDefault("forward.kafka.brokers", []string{})
	v.SetDefault("forward.kafka.topic", "")
	v.SetDefault("forward.opensearch.addresses", []string{})
	v.SetDefault("forward.opensearch.index_prefix", defaults.Forward.OpenSearch.IndexPrefix)
}

// Load reads the configuration from v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// Registry builds the recognizer chain: the built-ins followed by the
// configured custom formats in order.
func (c *Config) Registry() (*parser.Registry, error) {
	custom := make([]parser.Recognizer, 0, len(c.Formats))
	for i, f := range c.Formats {
		r, err := parser.NewPatternRecognizer(f.Name, f.Pattern)
		if err != nil {
			return nil, fmt.Errorf("formats[%d]: %w", i, err)
		}
		custom = append(custom, r)
	}
	return parser.New(parser.WithRecognizers(custom...)), nil
}

// ForwardOptions converts the forward section for the forward package.
func (c *Config) ForwardOptions() forward.Config {
	return forward.Config{
		Kind:          c.Forward.Kind,
		BatchSize:     c.Forward.BatchSize,
		FlushInterval: c.Forward.FlushInterval,
		Kafka: forward.KafkaConfig{
			Brokers: c.Forward.Kafka.Brokers,
			Topic:   c.Forward.Kafka.Topic,
		},
		OpenSearch: forward.OpenSearchConfig{
			Addresses:   c.Forward.OpenSearch.Addresses,
			IndexPrefix: c.Forward.OpenSearch.IndexPrefix,
		},
	}
}

// YAML renders the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
