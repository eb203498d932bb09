package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cardtrend/internal/core"
	ports "cardtrend/internal/sheets"

	_ "modernc.org/sqlite"
)

var _ ports.RecordStore = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an already migrated connection.
func NewWithDB(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const insertRecord = `INSERT INTO card_records
	(period, category, region, age_group, gender, transaction_count, amount)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

// AppendRecords implements sheets.RecordWriter. The batch is written in one
// transaction; any invalid record aborts it.
func (r *SQLiteRepository) AppendRecords(ctx context.Context, records []core.Record) (int, error) {
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			encodePeriod(rec.Period), rec.Category, rec.Region, rec.AgeGroup,
			rec.Gender, rec.TransactionCount, rec.Amount,
		); err != nil {
			return 0, fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit records: %w", err)
	}

	slog.InfoContext(ctx, "Card records saved to SQLite", "count", len(records))
	return len(records), nil
}

// ListRecords implements sheets.RecordReader.
func (r *SQLiteRepository) ListRecords(ctx context.Context, filter core.PeriodFilter) ([]core.Record, error) {
	query, args := listQuery(filter)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []core.Record
	for rows.Next() {
		var (
			period int
			rec    core.Record
		)
		if err := rows.Scan(&period, &rec.Category, &rec.Region, &rec.AgeGroup,
			&rec.Gender, &rec.TransactionCount, &rec.Amount); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Period = decodePeriod(period)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func listQuery(filter core.PeriodFilter) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT period, category, region, age_group, gender, transaction_count, amount
	FROM card_records`)

	var args []any
	if !filter.IsEmpty() {
		clauses := make([]string, len(filter.Years))
		for i, y := range filter.Years {
			clauses[i] = "period BETWEEN ? AND ?"
			args = append(args, y*100+1, y*100+12)
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " OR "))
	}
	b.WriteString(" ORDER BY period, category, id")
	return b.String(), args
}

// CountRecords returns the number of stored records.
func (r *SQLiteRepository) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM card_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Years implements sheets.YearLister.
func (r *SQLiteRepository) Years(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT period / 100 AS year FROM card_records ORDER BY year`)
	if err != nil {
		return nil, fmt.Errorf("list years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

func encodePeriod(p core.Period) int { return p.Year*100 + p.Month }

func decodePeriod(v int) core.Period { return core.NewPeriod(v/100, v%100) }
