package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidDate     = errors.New("invalid_date")
	ErrRunInProgress   = errors.New("run_in_progress")
	ErrInvalidRange    = errors.New("invalid_date_range")
	ErrMissingLocation = errors.New("missing_location")
)

// SchemaError aborts a batch because a required column is absent from a source.
type SchemaError struct {
	Source  Source
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: %s is missing required column(s) %s", e.Source, strings.Join(e.Missing, ", "))
}

// ValidationError describes why a single row was rejected.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s (got %q)", e.Field, e.Reason, e.Value)
}

// IsSchemaError reports whether err carries a SchemaError.
func IsSchemaError(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}
