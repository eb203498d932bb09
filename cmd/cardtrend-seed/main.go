package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cardtrend/internal/cli"
	"cardtrend/internal/core"
	"cardtrend/internal/log"
	"cardtrend/internal/sample"
	"cardtrend/internal/sheets/memory"
	"cardtrend/internal/sheets/xlsx"
	"cardtrend/internal/storage"
)

func main() {
	cli.LoadEnvFile()

	n := flag.Int("n", 10000, "number of records to generate")
	seed := flag.Uint64("seed", 42, "generator seed")
	dbPath := flag.String("db", "", "SQLite database to append to")
	csvPath := flag.String("csv", "", "CSV file to write")
	xlsxPath := flag.String("xlsx", "", "Excel workbook to write")
	sheet := flag.String("sheet", "records", "worksheet name for -xlsx")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := cli.SetupLogger(*logLevel).WithComponent(log.ComponentSeed)

	if *dbPath == "" && *csvPath == "" && *xlsxPath == "" {
		fmt.Fprintln(os.Stderr, "at least one of -db, -csv or -xlsx is required")
		flag.Usage()
		os.Exit(2)
	}
	if *n < 1 {
		fmt.Fprintln(os.Stderr, "-n must be positive")
		os.Exit(2)
	}

	start := time.Now()
	records := sample.Generate(*n, *seed)
	logger.Info("Generated sample records", log.FieldRecordCount, len(records), log.FieldSeed, *seed)

	ctx := context.Background()
	if *dbPath != "" {
		if err := writeDB(ctx, logger, *dbPath, records); err != nil {
			logger.Error("Failed to write SQLite database", log.FieldError, err, "path", *dbPath)
			os.Exit(1)
		}
		logger.Info("Records appended", "path", *dbPath)
	}
	if *csvPath != "" {
		if err := writeFile(*csvPath, func(f *os.File) error { return memory.WriteCSV(f, records) }); err != nil {
			logger.Error("Failed to write CSV", log.FieldError, err, "path", *csvPath)
			os.Exit(1)
		}
		logger.Info("CSV written", "path", *csvPath)
	}
	if *xlsxPath != "" {
		if err := writeFile(*xlsxPath, func(f *os.File) error { return xlsx.Write(f, *sheet, records) }); err != nil {
			logger.Error("Failed to write workbook", log.FieldError, err, "path", *xlsxPath)
			os.Exit(1)
		}
		logger.Info("Workbook written", "path", *xlsxPath, "sheet", *sheet)
	}

	logger.Info("Seeding complete", log.FieldDuration, time.Since(start).Milliseconds())
}

func writeDB(ctx context.Context, logger *log.Logger, path string, records []core.Record) error {
	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		return err
	}
	defer repo.Close()

	if _, err := repo.AppendRecords(ctx, records); err != nil {
		return err
	}
	total, err := repo.CountRecords(ctx)
	if err != nil {
		return err
	}
	logger.DebugContext(ctx, "Database row count", log.FieldRecordCount, total)
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
