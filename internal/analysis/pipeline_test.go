package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardtrend/internal/core"
)

func demoRecords() []core.Record {
	var out []core.Record
	add := func(year, month int, cat, age, gender string, amount float64) {
		out = append(out, core.Record{
			Period: core.NewPeriod(year, month), Category: cat, Region: "11001",
			AgeGroup: age, Gender: gender, TransactionCount: 1, Amount: amount,
		})
	}
	for month := 1; month <= 12; month++ {
		summer := 100.0
		if month >= 6 && month <= 8 {
			summer = 400
		}
		winter := 100.0
		if month == 11 || month == 12 || month == 1 {
			winter = 350
		}
		for _, year := range []int{2022, 2023} {
			add(year, month, "delivery", "20s", "F", summer)
			add(year, month, "travel", "30s", "M", summer*0.8+float64(month))
			add(year, month, "shopping", "40s", "F", winter)
			add(year, month, "fashion", "20s", "F", winter*1.1)
			add(year, month, "books", "50s", "M", 120)
		}
	}
	add(2023, 3, "games", "10s", "M", 30)
	return out
}

func TestAnalyze(t *testing.T) {
	records := demoRecords()
	params := Params{Years: []int{2023}, ClusterCount: 3, TopN: 5, Seed: 42}

	res, err := Analyze(context.Background(), records, params)
	require.NoError(t, err)

	assert.Len(t, res.Periods, 12)
	assert.Len(t, res.Rows, 6)
	require.NotNil(t, res.Assignment)
	assert.Len(t, res.Assignment.Labels, 6)
	assert.Len(t, res.Summaries, 3)
	require.NotNil(t, res.Silhouette)
	assert.GreaterOrEqual(t, *res.Silhouette, -1.0)
	assert.LessOrEqual(t, *res.Silhouette, 1.0)
	assert.Equal(t, QualityBand(*res.Silhouette), res.Quality)
	assert.Equal(t, res.Assignment.Labels["delivery"], res.Assignment.Labels["travel"])
	assert.Equal(t, res.Assignment.Labels["shopping"], res.Assignment.Labels["fashion"])

	assert.Len(t, res.Risers, 5)
	assert.Len(t, res.Fallers, 5)
	assert.Len(t, res.Shares, 12*6)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.WarningText)
	assert.Equal(t, len(records), res.RecordCount)
	require.NotNil(t, res.Insights)
	assert.Equal(t, res.Risers[0].Category, res.Insights.TopRiser.Category)

	again, err := Analyze(context.Background(), records, params)
	require.NoError(t, err)
	assert.Equal(t, res.Assignment, again.Assignment)
	assert.Equal(t, res.Risers, again.Risers)
}

func TestAnalyzeStructuralErrors(t *testing.T) {
	records := demoRecords()

	_, err := Analyze(context.Background(), records, Params{Years: []int{1999}, ClusterCount: 2, TopN: 1})
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.True(t, IsStructural(err))

	_, err = Analyze(context.Background(), records, Params{Years: []int{2022}, ClusterCount: 6, TopN: 1})
	assert.ErrorIs(t, err, ErrInvalidClusterCount, "2022 has five categories")
	assert.True(t, IsStructural(err))

	_, err = Analyze(context.Background(), records, Params{ClusterCount: 1, TopN: 1})
	var pe *ParamsError
	assert.ErrorAs(t, err, &pe)
}

func TestAnalyzeWarnings(t *testing.T) {
	records := []core.Record{
		rec(2023, 1, "a", 10), rec(2023, 1, "b", 30),
		rec(2023, 2, "a", 0), rec(2023, 2, "b", 0),
		rec(2023, 3, "a", 20), rec(2023, 3, "b", 20),
	}
	res, err := Analyze(context.Background(), records, Params{ClusterCount: 2, TopN: 3})
	require.NoError(t, err)

	// two categories in two clusters leave the silhouette undefined
	assert.Nil(t, res.Silhouette)
	assert.Empty(t, res.Quality)
	require.Len(t, res.Warnings, 2)
	assert.ErrorIs(t, res.Warnings[0], ErrDegenerateShare)
	assert.ErrorIs(t, res.Warnings[1], ErrInsufficientData)
	assert.Len(t, res.WarningText, 2)
	assert.Equal(t, []core.Period{core.NewPeriod(2023, 2)}, res.Excluded)
	assert.Empty(t, res.Risers)
}

func TestAnalyzeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Analyze(ctx, demoRecords(), DefaultParams())
	assert.ErrorIs(t, err, context.Canceled)
}
