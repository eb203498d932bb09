package analysis

import (
	"slices"
	"sort"

	"cardtrend/internal/core"
)

// number of entries kept in top-category and growth listings
const insightTop = 5

// Insights collects the marketing-oriented summaries of a request.
type Insights struct {
	TopCategories     []CategoryAmount `json:"top_categories"`
	Growth            []GrowthRecord   `json:"growth"`
	AgePreferences    []Preference     `json:"age_preferences"`
	GenderPreferences []Preference     `json:"gender_preferences"`
	TopRiser          *RiserProfile    `json:"top_riser,omitempty"`
}

type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// GrowthRecord compares a category's spend in the first and last year present.
// New marks categories with no spend in the first year; GrowthPct is 0 for them.
type GrowthRecord struct {
	Category    string  `json:"category"`
	FirstYear   int     `json:"first_year"`
	LastYear    int     `json:"last_year"`
	FirstAmount float64 `json:"first_amount"`
	LastAmount  float64 `json:"last_amount"`
	GrowthPct   float64 `json:"growth_pct"`
	New         bool    `json:"new"`
}

// Preference is the category with the highest spend within one customer segment.
type Preference struct {
	Segment  string  `json:"segment"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// RiserProfile describes who drives the largest share increase.
type RiserProfile struct {
	Category       string      `json:"category"`
	Period         core.Period `json:"period"`
	DeltaPP        float64     `json:"delta_pp"`
	TopAgeGroup    string      `json:"top_age_group"`
	DominantGender string      `json:"dominant_gender,omitempty"` // empty unless exactly two genders
	GenderSharePct float64     `json:"gender_share_pct,omitempty"`
	Bundle         []string    `json:"bundle"`
}

// BuildInsights derives insights from the filtered records and the ranked risers.
func BuildInsights(records []core.Record, filter core.PeriodFilter, risers []FluctuationRecord) *Insights {
	kept := make([]core.Record, 0, len(records))
	for _, r := range records {
		if filter.Match(r.Period) {
			kept = append(kept, r)
		}
	}

	ins := &Insights{
		TopCategories:     topCategories(kept),
		Growth:            yearlyGrowth(kept),
		AgePreferences:    preferences(kept, func(r core.Record) string { return r.AgeGroup }),
		GenderPreferences: preferences(kept, func(r core.Record) string { return r.Gender }),
	}
	if len(risers) > 0 {
		ins.TopRiser = riserProfile(kept, risers)
	}
	return ins
}

func topCategories(records []core.Record) []CategoryAmount {
	sums := make(map[string]float64)
	for _, r := range records {
		sums[r.Category] += r.Amount
	}
	out := make([]CategoryAmount, 0, len(sums))
	for c, v := range sums {
		out = append(out, CategoryAmount{Category: c, Amount: v})
	}
	sortAmounts(out)
	if len(out) > insightTop {
		out = out[:insightTop]
	}
	return out
}

func yearlyGrowth(records []core.Record) []GrowthRecord {
	first, last := 0, 0
	for _, r := range records {
		if first == 0 || r.Period.Year < first {
			first = r.Period.Year
		}
		if r.Period.Year > last {
			last = r.Period.Year
		}
	}
	if first == last {
		return []GrowthRecord{}
	}

	sums := make(map[string]*GrowthRecord)
	for _, r := range records {
		g, ok := sums[r.Category]
		if !ok {
			g = &GrowthRecord{Category: r.Category, FirstYear: first, LastYear: last}
			sums[r.Category] = g
		}
		switch r.Period.Year {
		case first:
			g.FirstAmount += r.Amount
		case last:
			g.LastAmount += r.Amount
		}
	}

	out := make([]GrowthRecord, 0, len(sums))
	for _, g := range sums {
		if g.FirstAmount > 0 {
			g.GrowthPct = (g.LastAmount - g.FirstAmount) / g.FirstAmount * 100
		} else {
			g.New = g.LastAmount > 0
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.New != b.New {
			return a.New
		}
		if a.New && a.LastAmount != b.LastAmount {
			return a.LastAmount > b.LastAmount
		}
		if a.GrowthPct != b.GrowthPct {
			return a.GrowthPct > b.GrowthPct
		}
		return a.Category < b.Category
	})
	if len(out) > insightTop {
		out = out[:insightTop]
	}
	return out
}

func preferences(records []core.Record, segment func(core.Record) string) []Preference {
	sums := make(map[string]map[string]float64)
	for _, r := range records {
		s := segment(r)
		if s == "" {
			continue
		}
		if sums[s] == nil {
			sums[s] = make(map[string]float64)
		}
		sums[s][r.Category] += r.Amount
	}

	out := make([]Preference, 0, len(sums))
	for _, s := range sortedKeys(sums) {
		best := leader(sums[s])
		out = append(out, Preference{Segment: s, Category: best.Category, Amount: best.Amount})
	}
	return out
}

func riserProfile(records []core.Record, risers []FluctuationRecord) *RiserProfile {
	top := risers[0]
	p := &RiserProfile{Category: top.Category, Period: top.Period, DeltaPP: top.DeltaPP, Bundle: []string{}}

	ages := make(map[string]float64)
	genders := make(map[string]float64)
	inPeriod := make(map[string]bool)
	for _, r := range records {
		if r.Period == top.Period {
			inPeriod[r.Category] = true
		}
		if r.Category != top.Category {
			continue
		}
		if r.AgeGroup != "" {
			ages[r.AgeGroup] += r.Amount
		}
		if r.Gender != "" {
			genders[r.Gender] += r.Amount
		}
	}
	if len(ages) > 0 {
		p.TopAgeGroup = leader(ages).Category
	}
	if len(genders) == 2 {
		g := leader(genders)
		var total float64
		for _, v := range genders {
			total += v
		}
		if total > 0 {
			p.DominantGender = g.Category
			p.GenderSharePct = g.Amount / total * 100
		}
	}

	for i := 1; i < len(risers) && i < 3 && len(p.Bundle) < 2; i++ {
		c := risers[i].Category
		if c != top.Category && inPeriod[c] && !slices.Contains(p.Bundle, c) {
			p.Bundle = append(p.Bundle, c)
		}
	}
	return p
}

// leader returns the key with the largest value, ties to the lexically first.
func leader(m map[string]float64) CategoryAmount {
	var best CategoryAmount
	for i, k := range sortedKeys(m) {
		if i == 0 || m[k] > best.Amount {
			best = CategoryAmount{Category: k, Amount: m[k]}
		}
	}
	return best
}

func sortAmounts(xs []CategoryAmount) {
	sort.Slice(xs, func(i, j int) bool {
		if xs[i].Amount != xs[j].Amount {
			return xs[i].Amount > xs[j].Amount
		}
		return xs[i].Category < xs[j].Category
	})
}
