package sheets

import (
	"context"

	"spendbook/internal/core"
)

// RecordWriter appends an exported record to a spreadsheet and returns a
// reference to the written row.
type RecordWriter interface {
	Append(ctx context.Context, r core.Record) (rowRef string, err error)
}
