package analysis

import "math"

// Profile maps a category to its standardized series (mean 0, unit variance).
type Profile map[string][]float64

// relative guard below which a standard deviation counts as zero; constant
// rows pick up float noise in the mean otherwise.
const zeroVarianceTolerance = 1e-12

// Normalize rescales every category row to zero mean and unit population
// variance. Rows with zero variance become zero vectors.
func Normalize(m *Matrix) Profile {
	out := make(Profile, m.Len())
	for _, c := range m.categories {
		out[c] = standardize(m.cells[c])
	}
	return out
}

func standardize(row []float64) []float64 {
	z := make([]float64, len(row))
	if len(row) == 0 {
		return z
	}

	var sum, maxAbs float64
	for _, v := range row {
		sum += v
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	mean := sum / float64(len(row))

	var ss float64
	for _, v := range row {
		d := v - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(row)))
	if std == 0 || std <= zeroVarianceTolerance*math.Max(1, maxAbs) {
		return z
	}

	for i, v := range row {
		z[i] = (v - mean) / std
	}
	return z
}

// Categories returns the profile keys in lexical order.
func (p Profile) Categories() []string {
	return sortedKeys(p)
}
