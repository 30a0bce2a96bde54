package config

import (
	"fmt"
	"slices"
)

// Environments accepted by BaseConfig.
var Environments = []string{"development", "staging", "production"}

// BaseConfig contains the identity fields every service needs.
type BaseConfig struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`
}

// ApplyDefaults applies default values to base configuration.
func (c *BaseConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
}

// Validate validates base configuration.
func (c *BaseConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("base.name is required")
	}
	if !slices.Contains(Environments, c.Environment) {
		return fmt.Errorf("base.environment must be one of %v (got: %s)", Environments, c.Environment)
	}
	return nil
}
