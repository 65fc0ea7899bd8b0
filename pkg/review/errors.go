package review

import (
	"fmt"
	"strings"
)

// LookupError marks a directory failure (connectivity, auth, malformed query)
// as distinct from a clean not-found. Rows hitting one are classified
// MethodError and the run continues.
type LookupError struct {
	Err error
}

func (e *LookupError) Error() string {
	if e == nil || e.Err == nil {
		return "directory lookup error"
	}
	return "directory lookup: " + e.Err.Error()
}

func (e *LookupError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StructuralError reports required input columns missing from the source
// header. It aborts the run before any row is processed.
type StructuralError struct {
	Columns []string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("input is missing required column(s): %s", strings.Join(e.Columns, ", "))
}

// ConfigurationError reports an unresolvable application type or an invalid
// option combination, surfaced before any I/O.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Reason
}
