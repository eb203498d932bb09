// Package xlsx reads card records from an Excel workbook, the format the
// public card consumption dataset is published in.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/xuri/excelize/v2"

	"cardtrend/internal/core"
	ports "cardtrend/internal/sheets"
)

var (
	_ ports.RecordReader = (*Workbook)(nil)
	_ ports.YearLister   = (*Workbook)(nil)
)

var ErrSheetNotFound = errors.New("sheet not found")

// Workbook is a read-only record source loaded once from a file.
type Workbook struct {
	path  string
	sheet string

	once    sync.Once
	records []core.Record
	err     error
}

// Open returns a lazily loaded workbook. An empty sheet selects the first one.
func Open(path, sheet string) *Workbook {
	return &Workbook{path: path, sheet: sheet}
}

func (w *Workbook) load(ctx context.Context) ([]core.Record, error) {
	w.once.Do(func() {
		f, err := excelize.OpenFile(w.path)
		if err != nil {
			w.err = fmt.Errorf("open workbook: %w", err)
			return
		}
		defer f.Close()

		records, bad, err := readFile(f, w.sheet)
		if err != nil {
			w.err = err
			return
		}
		if len(bad) > 0 {
			slog.WarnContext(ctx, "Skipped invalid workbook rows", "path", w.path, "count", len(bad), "first", bad[0].Error())
		}
		w.records = records
	})
	return w.records, w.err
}

func (w *Workbook) ListRecords(ctx context.Context, filter core.PeriodFilter) ([]core.Record, error) {
	records, err := w.load(ctx)
	if err != nil {
		return nil, err
	}
	return ports.Filter(records, filter), nil
}

func (w *Workbook) Years(ctx context.Context) ([]int, error) {
	records, err := w.load(ctx)
	if err != nil {
		return nil, err
	}
	return ports.DistinctYears(records), nil
}

// Read parses records from an uploaded workbook.
func Read(r io.Reader, sheet string) ([]core.Record, []ports.RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readFile(f, sheet)
}

func readFile(f *excelize.File, sheet string) ([]core.Record, []ports.RowError, error) {
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return ports.ParseRows(rows)
}

// Write stores records on a new workbook with the canonical header.
func Write(w io.Writer, sheet string, records []core.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "records"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	header := make([]interface{}, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range records {
		row := ports.FormatRow(r)
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}
