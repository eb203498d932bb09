package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharacterize(t *testing.T) {
	m := NewMatrixFromRows(quarterPeriods(2023), map[string][]float64{
		"A": {10, 0, 0, 0},
		"B": {0, 30, 0, 0},
		"C": {5, 5, 5, 5},
		"D": {1, 1, 1, 1},
	})
	a := &Assignment{K: 3, Labels: map[string]int{"A": 0, "B": 0, "C": 0, "D": 1}}

	got := Characterize(a, m)
	require.Len(t, got, 3)

	c0 := got[0]
	assert.Equal(t, 0, c0.ID)
	assert.Equal(t, []string{"B", "C", "A"}, c0.Members)
	assert.Equal(t, "B", c0.Representative)
	assert.Equal(t, 60.0, c0.Total)
	assert.Equal(t, 2, c0.DominantQuarter)
	assert.InDelta(t, 35.0/60, c0.DominantShare, 1e-12)
	assert.InDeltaSlice(t, []float64{15.0 / 60, 35.0 / 60, 5.0 / 60, 5.0 / 60}, c0.QuarterShares[:], 1e-12)
	assert.Equal(t, []Pairing{{First: "B", Second: "C"}, {First: "B", Second: "A"}}, c0.Pairings)
	assert.Equal(t, SeasonHint(2), c0.SeasonHint)
	assert.False(t, c0.Empty)

	c1 := got[1]
	assert.Equal(t, "D", c1.Representative)
	assert.Equal(t, 1, c1.DominantQuarter, "ties go to the earliest quarter")
	assert.Empty(t, c1.Pairings)

	c2 := got[2]
	assert.True(t, c2.Empty)
	assert.Empty(t, c2.Members)
	assert.Equal(t, 0, c2.DominantQuarter)
	assert.Empty(t, c2.SeasonHint)
}

func TestCharacterizeTwoMembersOnePairing(t *testing.T) {
	m := NewMatrixFromRows(quarterPeriods(2022), map[string][]float64{
		"x": {1, 1, 1, 1},
		"y": {2, 2, 2, 2},
	})
	a := &Assignment{K: 2, Labels: map[string]int{"x": 1, "y": 1}}

	got := Characterize(a, m)
	assert.True(t, got[0].Empty)
	assert.Equal(t, []Pairing{{First: "y", Second: "x"}}, got[1].Pairings)
}

func TestCharacterizeZeroSpendCluster(t *testing.T) {
	m := NewMatrixFromRows(quarterPeriods(2022), map[string][]float64{
		"a": {0, 0, 0, 0},
		"b": {0, 0, 0, 0},
	})
	a := &Assignment{K: 2, Labels: map[string]int{"a": 0, "b": 1}}

	got := Characterize(a, m)
	assert.Equal(t, "a", got[0].Representative)
	assert.Equal(t, 0, got[0].DominantQuarter)
	assert.False(t, got[0].Empty)
}

func TestSeasonHint(t *testing.T) {
	assert.Empty(t, SeasonHint(0))
	assert.Empty(t, SeasonHint(5))
	for q := 1; q <= 4; q++ {
		assert.NotEmpty(t, SeasonHint(q))
	}
}
