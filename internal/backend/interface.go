package backend

import (
	"context"

	"cardtrend/internal/sheets"
)

// Backend is the record source the analysis runs against. Writable sources
// additionally implement sheets.RecordWriter.
type Backend interface {
	sheets.RecordReader
	sheets.YearLister
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Writer returns the backend as a sheets.RecordWriter when it supports writes.
func (r *BackendResult) Writer() (sheets.RecordWriter, bool) {
	w, ok := r.Backend.(sheets.RecordWriter)
	return w, ok
}

// Close runs the cleanup function if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
