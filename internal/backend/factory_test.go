package backend

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"cardtrend/internal/config"
	"cardtrend/internal/core"
)

func testFactory() Factory {
	return NewFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", DataDir: "d"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.DataDirectory != "d" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sheets without id", Config{Type: SheetsBackend, GoogleServiceAccountJSON: "{}"}, true},
		{"sheets without creds", Config{Type: SheetsBackend, GoogleSpreadsheetID: "id"}, true},
		{"xlsx without path", Config{Type: XLSXBackend}, true},
		{"unknown", Config{Type: "csv"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	seed := "period,category,amount\n202301,food,10\n202401,food,12\n"
	if err := os.WriteFile(filepath.Join(dir, "records.csv"), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := testFactory().CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()

	years, _ := res.Backend.Years(context.Background())
	if len(years) != 2 {
		t.Fatalf("unexpected years: %v", years)
	}
	if _, ok := res.Writer(); !ok {
		t.Fatal("memory backend should be writable")
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.db")
	res, err := testFactory().CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()

	w, ok := res.Writer()
	if !ok {
		t.Fatal("sqlite backend should be writable")
	}
	if _, err := w.AppendRecords(context.Background(), []core.Record{{Period: core.NewPeriod(2023, 4), Category: "x", Amount: 1}}); err != nil {
		t.Fatalf("AppendRecords: %v", err)
	}
	got, err := res.Backend.ListRecords(context.Background(), core.PeriodFilter{})
	if err != nil || len(got) != 1 {
		t.Fatalf("ListRecords: %v err=%v", got, err)
	}
}

func TestCreateXLSXBackendIsReadOnly(t *testing.T) {
	res, err := testFactory().CreateBackend(context.Background(), Config{Type: XLSXBackend, XLSXPath: "missing.xlsx"})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if _, ok := res.Writer(); ok {
		t.Fatal("xlsx backend must not be writable")
	}
	if _, err := res.Backend.ListRecords(context.Background(), core.PeriodFilter{}); err == nil {
		t.Fatal("expected error opening missing workbook")
	}
}
