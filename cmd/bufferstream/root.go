package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/bufferstream/config"
	"github.com/kbukum/bufferstream/logger"
)

// app carries state shared by subcommands once the root has loaded
// configuration.
type app struct {
	configFile string
	envFile    string
	logLevel   string

	cfg *config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "bufferstream",
		Short: "Aggregate a stream, transform it once, re-emit the result",
		Long: `bufferstream buffers everything written to a stage, hands the whole
aggregate to a transform when the input ends, and emits what the transform
returns downstream. Stages chain, so each one sees the complete output of
the previous one.

Examples:
  echo test | bufferstream run --chain prefix:plop,prefix:plip
  bufferstream run --chain yaml2json < config.yml
  printf '1\n2\n3\n' | bufferstream run --format ndjson --chain 'expr:filter(items, # > 1)'
  bufferstream serve --config config.yml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.init()
		},
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file (default: search ./cmd/bufferstream, ./config, .)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", ".env file to load before reading BUFFERSTREAM_* variables")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(
		newRunCmd(a),
		newServeCmd(a),
		newTransformsCmd(),
		newVersionCmd(),
	)
	return root
}

func (a *app) init() error {
	var opts []config.LoaderOption
	if a.configFile != "" {
		opts = append(opts, config.WithConfigFile(a.configFile))
	}
	if a.envFile != "" {
		opts = append(opts, config.WithEnvFile(a.envFile))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
		if err := cfg.Logging.Validate(); err != nil {
			return err
		}
	}

	logger.Init(cfg.Logging)
	a.cfg = cfg
	a.log = logger.WithComponent("cli")
	return nil
}
