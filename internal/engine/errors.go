package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is the cause of a LoadError when one of the identity
	// columns (Country, ISO2, ISO3, Indicator) is absent from the header.
	ErrMissingColumn = errors.New("required column missing")

	// ErrBadValue is the cause of a LoadError when a year cell holds
	// something that is neither a number nor a missing-value token.
	ErrBadValue = errors.New("non-numeric year value")

	// ErrEmptyInput is the cause of a LoadError for a file with no header row.
	ErrEmptyInput = errors.New("empty input")

	// ErrEmptySelection marks a filter combination that matched no rows.
	// It is a warning: views never fail with it, they come back empty.
	ErrEmptySelection = errors.New("selection matched no rows")
)

// LoadError reports a fatal problem reading or parsing the input file.
// No partial table is ever returned alongside it.
type LoadError struct {
	Path string
	Op   string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func loadErr(path, op string, err error) *LoadError {
	return &LoadError{Path: path, Op: op, Err: err}
}
