package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"cardtrend/internal/core"
	ports "cardtrend/internal/sheets"
)

// SeedFile is the CSV file NewFromDir loads from the data directory.
const SeedFile = "records.csv"

var _ ports.RecordStore = (*Store)(nil)

// Store keeps records in process memory.
type Store struct {
	mu    sync.RWMutex
	items []core.Record
}

func New(records ...core.Record) *Store {
	return &Store{items: append([]core.Record(nil), records...)}
}

// NewFromDir loads base/records.csv when present. Rows that fail to parse are
// reported in bad; a missing file yields an empty store.
func NewFromDir(base string) (*Store, []ports.RowError, error) {
	f, err := os.Open(filepath.Join(base, SeedFile))
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	records, bad, err := ReadCSV(f)
	if err != nil {
		return nil, nil, err
	}
	return New(records...), bad, nil
}

// ReadCSV parses CSV content with a header row.
func ReadCSV(r io.Reader) ([]core.Record, []ports.RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	values, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	return ports.ParseRows(values)
}

// WriteCSV writes records with the canonical header.
func WriteCSV(w io.Writer, records []core.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ports.Header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(ports.FormatRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Store) AppendRecords(_ context.Context, records []core.Record) (int, error) {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, records...)
	return len(records), nil
}

func (s *Store) ListRecords(ctx context.Context, filter core.PeriodFilter) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ports.Filter(s.items, filter), nil
}

func (s *Store) Years(_ context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ports.DistinctYears(s.items), nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
