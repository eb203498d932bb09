package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardtrend/internal/core"
)

func sample() []core.Record {
	return []core.Record{
		{Period: core.NewPeriod(2023, 2), Category: "travel", Region: "11002", AgeGroup: "30s", Gender: "M", TransactionCount: 1, Amount: 300},
		{Period: core.NewPeriod(2022, 12), Category: "delivery", Region: "11001", AgeGroup: "20s", Gender: "F", TransactionCount: 3, Amount: 120.5},
		{Period: core.NewPeriod(2023, 1), Category: "delivery", Region: "11001", AgeGroup: "20s", Gender: "F", TransactionCount: 2, Amount: 80},
	}
}

func TestSQLiteRepositoryRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "cardtrend.db")
	repo, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	n, err := repo.AppendRecords(ctx, sample())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := repo.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	all, err := repo.ListRecords(ctx, core.PeriodFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, core.NewPeriod(2022, 12), all[0].Period)
	assert.Equal(t, sample()[1], all[0])
	assert.Equal(t, "delivery", all[1].Category)
	assert.Equal(t, "travel", all[2].Category)

	only2023, err := repo.ListRecords(ctx, core.PeriodFilter{Years: []int{2023}})
	require.NoError(t, err)
	assert.Len(t, only2023, 2)

	years, err := repo.Years(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2022, 2023}, years)

	version, dirty, err := SchemaVersion(dbPath)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)

	// Re-opening an up to date database is a no-op migration
	again, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestAppendRecordsRejectsInvalidBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewWithDB(db)
	bad := append(sample(), core.Record{Period: core.NewPeriod(2023, 13), Category: "x"})

	_, err = repo.AppendRecords(context.Background(), bad)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
	// no statement may reach the database
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRecordsRollsBackOnExecError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO card_records")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	repo := NewWithDB(db)
	_, err = repo.AppendRecords(context.Background(), sample()[:2])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert record 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRecordsCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := sample()[0]
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO card_records")
	prep.ExpectExec().
		WithArgs(202302, r.Category, r.Region, r.AgeGroup, r.Gender, r.TransactionCount, r.Amount).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := NewWithDB(db).AppendRecords(context.Background(), []core.Record{r})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecordsYearFilterQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"period", "category", "region", "age_group", "gender", "transaction_count", "amount"}).
		AddRow(202101, "books", "11003", "40s", "F", 1, 9.5)
	mock.ExpectQuery(`FROM card_records WHERE period BETWEEN \? AND \? OR period BETWEEN \? AND \?`).
		WithArgs(202101, 202112, 202301, 202312).
		WillReturnRows(rows)

	got, err := NewWithDB(db).ListRecords(context.Background(), core.PeriodFilter{Years: []int{2021, 2023}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.NewPeriod(2021, 1), got[0].Period)
	assert.Equal(t, 9.5, got[0].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestYearsQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT DISTINCT period / 100").WillReturnError(errors.New("locked"))

	_, err = NewWithDB(db).Years(context.Background())
	assert.ErrorContains(t, err, "list years")
}
