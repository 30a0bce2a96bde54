// Package config loads bufferstream configuration.
//
// Values come from a YAML file (config.yml, searched under ./cmd/<service>,
// ./config and the working directory) and are overridden by environment
// variables, optionally read from a .env file. Variables are mapped onto
// nested keys by splitting on underscores:
//
//	BUFFERSTREAM_SERVER_PORT=9000       -> server.port
//	BUFFERSTREAM_STAGE_MAX_SIZE=1024    -> stage.max_size
//	BUFFERSTREAM_CHAINS_SHOUT=upper     -> chains.shout
//
// # Usage
//
//	cfg, err := config.Load(config.WithConfigFile("config.yml"))
package config
