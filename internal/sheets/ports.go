package sheets

import (
	"context"

	"cardtrend/internal/core"
)

// Ports implemented by every record source.
type (
	// RecordReader returns the records whose period passes filter.
	RecordReader interface {
		ListRecords(ctx context.Context, filter core.PeriodFilter) ([]core.Record, error)
	}

	// RecordWriter stores records and reports how many were written.
	RecordWriter interface {
		AppendRecords(ctx context.Context, records []core.Record) (int, error)
	}

	// YearLister reports the distinct years present, ascending.
	YearLister interface {
		Years(ctx context.Context) ([]int, error)
	}

	RecordStore interface {
		RecordReader
		RecordWriter
		YearLister
	}
)
