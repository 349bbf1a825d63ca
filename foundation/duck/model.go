package duck

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a relation does not exist.
var ErrNotFound = errors.New("not found")

// Type represents a duckdb column type.
type Type string

// Set of column types a dataset can carry.
const (
	TypeVarchar   Type = "VARCHAR"
	TypeBigint    Type = "BIGINT"
	TypeDouble    Type = "DOUBLE"
	TypeBoolean   Type = "BOOLEAN"
	TypeTimestamp Type = "TIMESTAMP"
)

// Column describes a single column of a dataset.
type Column struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Dataset is a rectangular set of rows with named, typed columns.
type Dataset struct {
	Columns []Column
	Rows    [][]any
}

// Validate checks the dataset is rectangular with unique column names.
func (ds Dataset) Validate() error {
	if len(ds.Columns) == 0 {
		return errors.New("dataset has no columns")
	}

	seen := make(map[string]struct{}, len(ds.Columns))
	for _, c := range ds.Columns {
		if c.Name == "" {
			return errors.New("dataset has an unnamed column")
		}

		if _, exists := seen[c.Name]; exists {
			return fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}

	for i, row := range ds.Rows {
		if len(row) != len(ds.Columns) {
			return fmt.Errorf("row %d has %d values, expected %d", i+1, len(row), len(ds.Columns))
		}
	}

	return nil
}

// =============================================================================

// Result is the tabular output of a query.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Head returns a result holding at most the first n rows.
func (r Result) Head(n int) Result {
	if n < 0 || len(r.Rows) <= n {
		return r
	}

	return Result{
		Columns: r.Columns,
		Rows:    r.Rows[:n],
	}
}

// =============================================================================

// QueryError is returned when the engine rejects a query. The message is the
// engine's message, unmodified.
type QueryError struct {
	Query string
	Err   error
}

func newQueryError(query string, err error) *QueryError {
	return &QueryError{
		Query: query,
		Err:   err,
	}
}

func (qe *QueryError) Error() string {
	return qe.Err.Error()
}

func (qe *QueryError) Unwrap() error {
	return qe.Err
}
