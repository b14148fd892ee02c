package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/simforecast/core/metrics"
)

// EnvPrefix marks environment variables overriding file values, e.g.
// SF_POSITION__OUTPUT=/tmp/out.txt sets position.output.
const EnvPrefix = "SF_"

type Config struct {
	Position   PositionConfig   `json:"position"`
	Sequence   SequenceConfig   `json:"sequence"`
	Logging    LoggingConfig    `json:"logging"`
	RunLog     RunLogConfig     `json:"runlog"`
	Metrics    metrics.Config   `json:"metrics"`
	Publish    PublishConfig    `json:"publish"`
	Monitoring MonitoringConfig `json:"monitoring"`
}

// Load reads the configuration at path, applies environment overrides and
// defaults, and validates the result. An empty path uses defaults and the
// environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section with its defaults.
func (c *Config) SetDefaults() {
	c.Position.SetDefaults()
	c.Sequence.SetDefaults()
	c.Logging.SetDefaults()
	c.RunLog.SetDefaults()
	c.Publish.SetDefaults()
	c.Monitoring.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Position.Validate(); err != nil {
		return fmt.Errorf("position: %w", err)
	}
	if err := c.Sequence.Validate(); err != nil {
		return fmt.Errorf("sequence: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.RunLog.Validate(); err != nil {
		return fmt.Errorf("runlog: %w", err)
	}
	if err := c.Publish.Validate(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if err := c.Monitoring.Validate(); err != nil {
		return fmt.Errorf("monitoring: %w", err)
	}
	return nil
}
