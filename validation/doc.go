// Package validation checks configuration structs and request parameters,
// reporting failures as INVALID_INPUT AppErrors.
//
// # Struct Tag Validation
//
//	type StageConfig struct {
//	    MaxSize   int `mapstructure:"max_size" validate:"gte=0"`
//	    ChunkSize int `mapstructure:"chunk_size" validate:"gt=0"`
//	}
//	err := validation.ValidateStruct(cfg)
//
// Field names come from mapstructure, yaml or json tags, in that order.
//
// # Programmatic Validation
//
//	err := validation.New().
//	    Required("chain", chain).
//	    Range("chunk_size", size, 1, 1<<20).
//	    Validate()
package validation
