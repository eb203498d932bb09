package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	cases := []struct {
		name   string
		mutate func(*Params)
		field  string
	}{
		{"single cluster", func(p *Params) { p.ClusterCount = 1 }, "cluster_count"},
		{"zero top n", func(p *Params) { p.TopN = 0 }, "top_n"},
		{"negative restarts", func(p *Params) { p.Restarts = -1 }, "restarts"},
		{"bad year", func(p *Params) { p.Years = []int{2023, 0} }, "years[1]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)

			err := p.Validate()
			require.Error(t, err)
			var pe *ParamsError
			require.True(t, errors.As(err, &pe))
			assert.Contains(t, pe.Fields(), tc.field)
			assert.Contains(t, err.Error(), tc.field)
			assert.True(t, IsStructural(err))
		})
	}
}

func TestParamsKeyIgnoresYearOrder(t *testing.T) {
	a := Params{Years: []int{2023, 2021, 2023}, ClusterCount: 3, TopN: 5, Seed: 1}
	b := Params{Years: []int{2021, 2023}, ClusterCount: 3, TopN: 5, Seed: 1}
	assert.Equal(t, a.Key(), b.Key())

	b.Seed = 2
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, []int{2023, 2021, 2023}, a.Years, "Key must not reorder the caller's slice")
}

func TestIsStructural(t *testing.T) {
	assert.True(t, IsStructural(&EmptyInputError{}))
	assert.True(t, IsStructural(&InvalidClusterCountError{Requested: 9, Categories: 2}))
	assert.False(t, IsStructural(&InsufficientDataError{Metric: "silhouette"}))
	assert.False(t, IsStructural(&DegenerateShareError{}))
	assert.False(t, IsStructural(errors.New("boom")))
}
