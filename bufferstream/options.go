package bufferstream

import (
	"github.com/google/uuid"

	"github.com/kbukum/bufferstream/logger"
	"github.com/kbukum/bufferstream/observability"
)

// Options is the plain configuration of a stage.
type Options struct {
	// ObjectMode selects list aggregation of opaque values instead of byte concatenation.
	ObjectMode bool `yaml:"object_mode" mapstructure:"object_mode"`
	// Name labels the stage in logs and spans. Defaults to a random UUID.
	Name string `yaml:"name" mapstructure:"name"`
	// MaxSize bounds the aggregate: bytes in binary mode, units in object mode. 0 is unbounded.
	MaxSize int `yaml:"max_size" mapstructure:"max_size" validate:"gte=0"`
}

// Option configures a stage.
type Option func(*config)

type config struct {
	Options
	log     *logger.Logger
	metrics *observability.StageMetrics
}

// WithObjectMode selects object mode.
func WithObjectMode(on bool) Option {
	return func(c *config) { c.ObjectMode = on }
}

// WithName sets the stage name.
func WithName(name string) Option {
	return func(c *config) { c.Name = name }
}

// WithMaxSize bounds the aggregate.
func WithMaxSize(n int) Option {
	return func(c *config) { c.MaxSize = n }
}

// WithLogger sets the logger. Defaults to the global logger tagged "bufferstream".
func WithLogger(l *logger.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithMetrics records stage instruments on m.
func WithMetrics(m *observability.StageMetrics) Option {
	return func(c *config) { c.metrics = m }
}

func newConfig(o Options, opts []Option) config {
	c := config{Options: o}
	for _, opt := range opts {
		opt(&c)
	}
	if c.Name == "" {
		c.Name = uuid.NewString()
	}
	if c.log == nil {
		c.log = logger.WithComponent("bufferstream")
	}
	return c
}

func (c config) mode() Mode {
	if c.ObjectMode {
		return ModeObject
	}
	return ModeBinary
}
