package analysis

import (
	"sort"

	"cardtrend/internal/core"
)

// ShareRecord is one category's percentage of a period's total spend.
type ShareRecord struct {
	Period   core.Period `json:"period"`
	Category string      `json:"category"`
	Amount   float64     `json:"amount"`
	SharePct float64     `json:"share_pct"`
}

// FluctuationRecord is the change in a category's share between two
// consecutive periods, in percentage points.
type FluctuationRecord struct {
	Period       core.Period `json:"period"`
	Previous     core.Period `json:"previous"`
	Category     string      `json:"category"`
	SharePct     float64     `json:"share_pct"`
	PrevSharePct float64     `json:"prev_share_pct"`
	DeltaPP      float64     `json:"delta_pp"`
}

// ShareReport holds per-period shares and their first differences.
// Periods with zero total spend are left out of both and listed in Excluded.
type ShareReport struct {
	Shares       []ShareRecord
	Fluctuations []FluctuationRecord
	Excluded     []core.Period
	Warnings     []error
}

// DetectFluctuations computes category shares per period and the share change
// between each pair of consecutive periods that both have non-zero spend.
func DetectFluctuations(m *Matrix) *ShareReport {
	report := &ShareReport{}
	n := len(m.periods)
	valid := make([]bool, n)
	shares := make(map[string][]float64, len(m.categories))
	for _, c := range m.categories {
		shares[c] = make([]float64, n)
	}

	for i, p := range m.periods {
		total := m.PeriodTotal(p)
		if total <= 0 {
			report.Excluded = append(report.Excluded, p)
			report.Warnings = append(report.Warnings, &DegenerateShareError{Period: p})
			continue
		}
		valid[i] = true
		for _, c := range m.categories {
			amount := m.cells[c][i]
			pct := amount / total * 100
			shares[c][i] = pct
			report.Shares = append(report.Shares, ShareRecord{Period: p, Category: c, Amount: amount, SharePct: pct})
		}
	}

	for i := 1; i < n; i++ {
		if !valid[i] || !valid[i-1] {
			continue
		}
		for _, c := range m.categories {
			cur, prev := shares[c][i], shares[c][i-1]
			report.Fluctuations = append(report.Fluctuations, FluctuationRecord{
				Period:       m.periods[i],
				Previous:     m.periods[i-1],
				Category:     c,
				SharePct:     cur,
				PrevSharePct: prev,
				DeltaPP:      cur - prev,
			})
		}
	}
	return report
}

// Risers returns the n largest share increases, largest first. n <= 0 returns all.
func (r *ShareReport) Risers(n int) []FluctuationRecord {
	return r.ranked(n, func(a, b float64) bool { return a > b })
}

// Fallers returns the n largest share decreases, most negative first.
func (r *ShareReport) Fallers(n int) []FluctuationRecord {
	return r.ranked(n, func(a, b float64) bool { return a < b })
}

func (r *ShareReport) ranked(n int, better func(a, b float64) bool) []FluctuationRecord {
	out := append([]FluctuationRecord(nil), r.Fluctuations...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DeltaPP != out[j].DeltaPP {
			return better(out[i].DeltaPP, out[j].DeltaPP)
		}
		if out[i].Period != out[j].Period {
			return out[i].Period.Before(out[j].Period)
		}
		return out[i].Category < out[j].Category
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// PeriodShares returns the shares of one period keyed by category, or nil when
// the period was excluded or is unknown.
func (r *ShareReport) PeriodShares(p core.Period) map[string]float64 {
	var out map[string]float64
	for _, s := range r.Shares {
		if s.Period != p {
			continue
		}
		if out == nil {
			out = make(map[string]float64)
		}
		out[s.Category] = s.SharePct
	}
	return out
}
