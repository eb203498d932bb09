package analysis

import (
	"sort"

	"cardtrend/internal/core"
)

// Matrix is a dense category × period amount table. Every category row holds
// a value for every period; combinations with no records are zero.
type Matrix struct {
	periods    []core.Period
	categories []string
	index      map[core.Period]int
	cells      map[string][]float64
}

// BuildMatrix sums record amounts by (category, period) over the records the
// filter keeps, then densifies the result.
func BuildMatrix(records []core.Record, filter core.PeriodFilter) (*Matrix, error) {
	sums := make(map[string]map[core.Period]float64)
	seenPeriods := make(map[core.Period]struct{})

	for _, r := range records {
		if !filter.Match(r.Period) {
			continue
		}
		row, ok := sums[r.Category]
		if !ok {
			row = make(map[core.Period]float64)
			sums[r.Category] = row
		}
		row[r.Period] += r.Amount
		seenPeriods[r.Period] = struct{}{}
	}

	if len(sums) == 0 {
		return nil, &EmptyInputError{Filter: filter, RecordCount: len(records)}
	}

	periods := make([]core.Period, 0, len(seenPeriods))
	for p := range seenPeriods {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })

	categories := make([]string, 0, len(sums))
	for c := range sums {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	return newMatrix(periods, categories, func(c string, p core.Period) float64 {
		return sums[c][p]
	}), nil
}

// NewMatrixFromRows builds a matrix directly from dense rows aligned with periods.
// Rows shorter than periods are zero padded. A repeated period keeps the
// column of its first occurrence.
func NewMatrixFromRows(periods []core.Period, rows map[string][]float64) *Matrix {
	ps := make([]core.Period, 0, len(periods))
	pos := make(map[core.Period]int, len(periods))
	for i, p := range periods {
		if _, dup := pos[p]; dup {
			continue
		}
		pos[p] = i
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].Before(ps[j]) })

	categories := make([]string, 0, len(rows))
	for c := range rows {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	return newMatrix(ps, categories, func(c string, p core.Period) float64 {
		row := rows[c]
		if i := pos[p]; i < len(row) {
			return row[i]
		}
		return 0
	})
}

func newMatrix(periods []core.Period, categories []string, value func(string, core.Period) float64) *Matrix {
	m := &Matrix{
		periods:    periods,
		categories: categories,
		index:      make(map[core.Period]int, len(periods)),
		cells:      make(map[string][]float64, len(categories)),
	}
	for i, p := range periods {
		m.index[p] = i
	}
	for _, c := range categories {
		row := make([]float64, len(periods))
		for i, p := range periods {
			row[i] = value(c, p)
		}
		m.cells[c] = row
	}
	return m
}

// Periods returns the matrix periods in chronological order.
func (m *Matrix) Periods() []core.Period {
	return append([]core.Period(nil), m.periods...)
}

// Categories returns the category labels in lexical order.
func (m *Matrix) Categories() []string {
	return append([]string(nil), m.categories...)
}

// Value returns the amount for a (category, period) pair; unknown pairs are zero.
func (m *Matrix) Value(category string, p core.Period) float64 {
	i, ok := m.index[p]
	if !ok {
		return 0
	}
	row, ok := m.cells[category]
	if !ok {
		return 0
	}
	return row[i]
}

// Row returns a copy of the category's amounts aligned with Periods().
func (m *Matrix) Row(category string) []float64 {
	row, ok := m.cells[category]
	if !ok {
		return nil
	}
	return append([]float64(nil), row...)
}

// CategoryTotal sums a category's amounts over all periods.
func (m *Matrix) CategoryTotal(category string) float64 {
	var total float64
	for _, v := range m.cells[category] {
		total += v
	}
	return total
}

// PeriodTotal sums one period's amounts over all categories.
func (m *Matrix) PeriodTotal(p core.Period) float64 {
	i, ok := m.index[p]
	if !ok {
		return 0
	}
	var total float64
	for _, c := range m.categories {
		total += m.cells[c][i]
	}
	return total
}

// GrandTotal is the sum of every cell.
func (m *Matrix) GrandTotal() float64 {
	var total float64
	for _, c := range m.categories {
		total += m.CategoryTotal(c)
	}
	return total
}

// Len returns the number of categories.
func (m *Matrix) Len() int { return len(m.categories) }

// Width returns the number of periods.
func (m *Matrix) Width() int { return len(m.periods) }

// MatrixRow is the serializable form of one category row.
type MatrixRow struct {
	Category string    `json:"category"`
	Amounts  []float64 `json:"amounts"`
	Total    float64   `json:"total"`
}

// Rows returns every category row in category order.
func (m *Matrix) Rows() []MatrixRow {
	out := make([]MatrixRow, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, MatrixRow{Category: c, Amounts: m.Row(c), Total: m.CategoryTotal(c)})
	}
	return out
}
