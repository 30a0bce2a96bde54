package config

import (
	"fmt"

	"github.com/kbukum/bufferstream/bufferstream"
	"github.com/kbukum/bufferstream/httpapi"
	"github.com/kbukum/bufferstream/logger"
	"github.com/kbukum/bufferstream/observability"
	"github.com/kbukum/bufferstream/validation"
)

// ServiceName is the name used for file resolution and as the default
// base.name.
const ServiceName = "bufferstream"

// EnvPrefix is the prefix of environment overrides, e.g.
// BUFFERSTREAM_STAGE_MAX_SIZE=1048576.
const EnvPrefix = "BUFFERSTREAM"

// StageConfig holds the defaults applied to stages built by the CLI and
// the HTTP server. A stage's mode comes from its transform definition.
type StageConfig struct {
	MaxSize   int `yaml:"max_size" mapstructure:"max_size" validate:"gte=0"`
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size" validate:"gte=0"`
}

// ApplyDefaults fills unset fields.
func (c *StageConfig) ApplyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = bufferstream.DefaultChunkSize
	}
}

// Config is the bufferstream service configuration.
//
//	base:
//	  name: bufferstream
//	stage:
//	  max_size: 1048576
//	chains:
//	  shout: upper,suffix:!
type Config struct {
	Base          BaseConfig           `yaml:"base" mapstructure:"base"`
	Logging       logger.Config        `yaml:"logging" mapstructure:"logging"`
	Server        httpapi.Config       `yaml:"server" mapstructure:"server"`
	Stage         StageConfig          `yaml:"stage" mapstructure:"stage"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	// Chains maps names to chain specs, resolvable wherever a chain spec
	// is accepted.
	Chains map[string]string `yaml:"chains" mapstructure:"chains"`
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	if c.Base.Name == "" {
		c.Base.Name = ServiceName
	}
	c.Base.ApplyDefaults()
	if c.Base.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
	c.Stage.ApplyDefaults()
	if c.Server.ChunkSize == 0 {
		c.Server.ChunkSize = c.Stage.ChunkSize
	}
	c.Server.ApplyDefaults()
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Base.Environment
	}
	c.Observability.ApplyDefaults()
}

// Validate checks struct tags first, then each section's own rules.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if err := c.Base.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	for name, spec := range c.Chains {
		if spec == "" {
			return fmt.Errorf("chains.%s: empty chain spec", name)
		}
	}
	return nil
}

// ResolveChain returns the spec registered under name, or name itself
// when it is not a configured chain.
func (c *Config) ResolveChain(name string) string {
	if spec, ok := c.Chains[name]; ok {
		return spec
	}
	return name
}

// Load reads, defaults and validates the service configuration. Env
// variables with the BUFFERSTREAM_ prefix override file values.
func Load(opts ...LoaderOption) (*Config, error) {
	var cfg Config
	opts = append([]LoaderOption{WithEnvPrefix(EnvPrefix)}, opts...)
	if err := LoadConfig(ServiceName, &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
