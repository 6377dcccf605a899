// Package validation validates configuration structs with struct tags.
//
//	type StageConfig struct {
//	    Name     string `yaml:"name" validate:"required"`
//	    Capacity int    `yaml:"capacity" validate:"min=1"`
//	}
//	err := validation.Validate(cfg) // *errors.AppError with code CONFIGURATION
//
// Field paths in messages follow the yaml tags, e.g. "pipeline.stages[0].capacity".
package validation
