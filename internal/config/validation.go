package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/moguls753/docbench/internal/benchmark"
	"github.com/moguls753/docbench/internal/benchmark/plan"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		return name
	})
	return v
}

// Validate checks cfg and returns a *benchmark.ConfigurationError listing every
// problem found, or nil.
func Validate(cfg Config) error {
	var problems []string

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	if cfg.Endpoint == "" && cfg.Backend != BackendMemory {
		problems = append(problems, fmt.Sprintf("endpoint is required for the %s backend", cfg.Backend))
	}
	if cfg.AccessKey == "" && cfg.Backend != BackendMemory && cfg.Backend != BackendBolt {
		problems = append(problems, fmt.Sprintf("access-key is required for the %s backend", cfg.Backend))
	}

	// record and batch sizing is checked by the planner
	var cerr *benchmark.ConfigurationError
	if err := plan.Validate(cfg.Records, cfg.BatchSize, cfg.BufferSize, cfg.MaxBatchSize); errors.As(err, &cerr) {
		problems = append(problems, cerr.Problems...)
	}

	if len(problems) > 0 {
		return benchmark.NewConfigurationError(problems...)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", field, fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s, got %v", field, fe.Param(), fe.Value())
	case "startswith":
		return fmt.Sprintf("%s must start with %q, got %q", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s has invalid value %v: %s", field, fe.Value(), fe.Tag())
	}
}
