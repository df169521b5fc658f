package indexer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration covers invalid construction arguments, raised before
	// any database work.
	ErrConfiguration = errors.New("indexer: invalid configuration")

	// ErrTableNotFound means the configured table has no columns in the
	// information schema. Tables are created by an explicit migration step,
	// never by the indexer.
	ErrTableNotFound = errors.New("indexer: table not found")

	// ErrEmbedding wraps a failed embedding-provider call.
	ErrEmbedding = errors.New("indexer: embedding failed")

	// ErrWrite wraps the driver error of a failed sub-batch write.
	ErrWrite = errors.New("indexer: write failed")
)

// MissingColumnsError lists every required column absent from the live table.
type MissingColumnsError struct {
	Schema  string
	Table   string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("indexer: table %s.%s is missing columns: %s",
		e.Schema, e.Table, strings.Join(e.Columns, ", "))
}

// InvalidColumnTypeError reports a live column whose type is incompatible
// with its configured role.
type InvalidColumnTypeError struct {
	Column string
	Got    string
	Want   string
}

func (e *InvalidColumnTypeError) Error() string {
	return fmt.Sprintf("indexer: column %q has type %q, want %s", e.Column, e.Got, e.Want)
}
