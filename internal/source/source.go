// Package source loads the input tables from their backing stores. Required
// columns are asserted at load time; optional tables degrade to empty slices
// so a missing cost feed never blocks a report.
package source

import (
	"context"
	"fmt"

	"github.com/revlens/revlens/internal/domain"
)

// TableSource loads a complete dataset for the attribution engine.
type TableSource interface {
	Load(ctx context.Context) (*domain.Dataset, error)
}

// SchemaError reports a required column missing from an input table. Per the
// error taxonomy this is a hard validation failure, never silently defaulted.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %s: required column %s missing", e.Table, e.Column)
}
