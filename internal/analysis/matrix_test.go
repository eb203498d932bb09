package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardtrend/internal/core"
)

func rec(year, month int, category string, amount float64) core.Record {
	return core.Record{Period: core.NewPeriod(year, month), Category: category, Amount: amount, TransactionCount: 1}
}

func TestBuildMatrixDensifies(t *testing.T) {
	records := []core.Record{
		rec(2023, 1, "food", 100),
		rec(2023, 1, "food", 50),
		rec(2023, 2, "travel", 70),
		rec(2023, 3, "food", 10),
		rec(2022, 12, "food", 999), // filtered out
	}

	m, err := BuildMatrix(records, core.PeriodFilter{Years: []int{2023}})
	require.NoError(t, err)

	assert.Equal(t, []string{"food", "travel"}, m.Categories())
	assert.Equal(t, []core.Period{core.NewPeriod(2023, 1), core.NewPeriod(2023, 2), core.NewPeriod(2023, 3)}, m.Periods())
	assert.Equal(t, []float64{150, 0, 10}, m.Row("food"))
	assert.Equal(t, []float64{0, 70, 0}, m.Row("travel"))
	assert.Equal(t, 160.0, m.CategoryTotal("food"))
	assert.Equal(t, 150.0, m.PeriodTotal(core.NewPeriod(2023, 1)))
	assert.Equal(t, 230.0, m.GrandTotal())
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 3, m.Width())

	for _, c := range m.Categories() {
		assert.Len(t, m.Row(c), m.Width(), "row %s", c)
	}
}

func TestBuildMatrixEmptyInput(t *testing.T) {
	records := []core.Record{rec(2021, 5, "food", 1), rec(2021, 6, "food", 2)}

	_, err := BuildMatrix(records, core.PeriodFilter{Years: []int{2030}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyInput))

	var empty *EmptyInputError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, 2, empty.RecordCount)
	assert.Equal(t, []int{2030}, empty.Filter.Years)

	_, err = BuildMatrix(nil, core.PeriodFilter{})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestBuildMatrixIdempotent(t *testing.T) {
	records := []core.Record{
		rec(2022, 3, "b", 1.5), rec(2022, 1, "a", 2.25), rec(2022, 2, "c", 3),
		rec(2022, 3, "a", 0.1), rec(2022, 1, "b", 7),
	}
	first, err := BuildMatrix(records, core.PeriodFilter{})
	require.NoError(t, err)
	second, err := BuildMatrix(records, core.PeriodFilter{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Rows(), second.Rows())
}

func TestNewMatrixFromRowsPadsShortRows(t *testing.T) {
	periods := []core.Period{core.NewPeriod(2023, 2), core.NewPeriod(2023, 1)}
	m := NewMatrixFromRows(periods, map[string][]float64{"x": {5}})

	// rows align with the periods as given, then reorder chronologically
	assert.Equal(t, []core.Period{core.NewPeriod(2023, 1), core.NewPeriod(2023, 2)}, m.Periods())
	assert.Equal(t, 5.0, m.Value("x", core.NewPeriod(2023, 2)))
	assert.Equal(t, 0.0, m.Value("x", core.NewPeriod(2023, 1)))
	assert.Equal(t, 0.0, m.Value("missing", core.NewPeriod(2023, 1)))
}

func TestNewMatrixFromRowsRepeatedPeriod(t *testing.T) {
	jan, feb := core.NewPeriod(2023, 1), core.NewPeriod(2023, 2)
	m := NewMatrixFromRows([]core.Period{jan, feb, jan}, map[string][]float64{
		"x": {1, 2, 9},
		"y": {3, 4, 9},
	})

	assert.Equal(t, []core.Period{jan, feb}, m.Periods())
	assert.Equal(t, 2, m.Width())
	assert.Equal(t, []float64{1, 2}, m.Row("x"))
	assert.Equal(t, 4.0, m.PeriodTotal(jan))
	assert.Equal(t, 3.0, m.CategoryTotal("x"))
	assert.Equal(t, 10.0, m.GrandTotal())
}
