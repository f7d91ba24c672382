package benchmark

import (
	"fmt"
	"strings"
)

// ConfigurationError reports settings that are missing or out of range. It is
// always raised before the store is touched.
type ConfigurationError struct {
	Problems []string
}

func NewConfigurationError(problems ...string) *ConfigurationError {
	return &ConfigurationError{Problems: problems}
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid configuration: " + e.Problems[0]
	}
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// ProvisioningError reports a failure to check, create or delete a collection.
type ProvisioningError struct {
	Op         string
	Collection string
	Err        error
}

func (e *ProvisioningError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// Discrepancy is the post-run count mismatch. It is reported, never raised.
type Discrepancy struct {
	Expected int64 `json:"expected" yaml:"expected"`
	Actual   int64 `json:"actual" yaml:"actual"`
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("expected %d records, found %d (%+d)", d.Expected, d.Actual, d.Actual-d.Expected)
}
