// Package logger provides structured logging for bufferstream using zerolog.
//
// Stages, the HTTP surface and the CLI log through a shared global logger,
// each tagged with its component name. Console output goes to stderr by
// default so that stage output written to stdout stays clean.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//	  output: "stderr"
//
// # Usage
//
//	log := logger.WithComponent("bufferstream")
//	log.Debug("stage finalized", logger.Fields(logger.FieldStage, name))
package logger
