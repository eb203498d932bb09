package analysis

import "sort"

const (
	maxPairings    = 2
	pairingPoolLen = 3
)

// Pairing suggests two categories from the same cluster for a joint promotion.
type Pairing struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

// ClusterSummary describes one cluster of an assignment.
type ClusterSummary struct {
	ID              int        `json:"id"`
	Members         []string   `json:"members"` // highest total first
	Representative  string     `json:"representative"`
	DominantQuarter int        `json:"dominant_quarter"` // 1-4, 0 when empty
	DominantShare   float64    `json:"dominant_share"`
	QuarterShares   [4]float64 `json:"quarter_shares"`
	Total           float64    `json:"total"`
	Pairings        []Pairing  `json:"pairings"`
	SeasonHint      string     `json:"season_hint,omitempty"`
	Empty           bool       `json:"empty"`
}

var seasonHints = [5]string{
	"",
	"winter-spring campaign focus",
	"spring-summer campaign focus",
	"summer-autumn campaign focus",
	"autumn-winter campaign focus",
}

// SeasonHint returns the campaign window for a quarter, or "" outside 1-4.
func SeasonHint(quarter int) string {
	if quarter < 1 || quarter > 4 {
		return ""
	}
	return seasonHints[quarter]
}

// Characterize summarizes every cluster id in [0, a.K), in id order.
func Characterize(a *Assignment, m *Matrix) []ClusterSummary {
	out := make([]ClusterSummary, a.K)
	for id := 0; id < a.K; id++ {
		out[id] = summarize(id, a.Members(id), m)
	}
	return out
}

func summarize(id int, members []string, m *Matrix) ClusterSummary {
	s := ClusterSummary{ID: id, Members: []string{}, Pairings: []Pairing{}}
	if len(members) == 0 {
		s.Empty = true
		return s
	}

	totals := make(map[string]float64, len(members))
	for _, c := range members {
		totals[c] = m.CategoryTotal(c)
		s.Total += totals[c]
	}
	ranked := append([]string(nil), members...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if totals[ranked[i]] != totals[ranked[j]] {
			return totals[ranked[i]] > totals[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	s.Members = ranked
	s.Representative = ranked[0]

	var quarters [4]float64
	for i, p := range m.periods {
		for _, c := range members {
			quarters[p.Quarter()-1] += m.cells[c][i]
		}
	}
	if s.Total > 0 {
		for q := range quarters {
			s.QuarterShares[q] = quarters[q] / s.Total
		}
		best := 0
		for q := 1; q < 4; q++ {
			if quarters[q] > quarters[best] {
				best = q
			}
		}
		s.DominantQuarter = best + 1
		s.DominantShare = s.QuarterShares[best]
		s.SeasonHint = SeasonHint(s.DominantQuarter)
	}

	s.Pairings = pairings(ranked)
	return s
}

// pairings draws up to maxPairings unordered pairs from the leading members.
func pairings(ranked []string) []Pairing {
	pool := ranked
	if len(pool) > pairingPoolLen {
		pool = pool[:pairingPoolLen]
	}
	out := []Pairing{}
	for i := 0; i < len(pool) && len(out) < maxPairings; i++ {
		for j := i + 1; j < len(pool) && len(out) < maxPairings; j++ {
			out = append(out, Pairing{First: pool[i], Second: pool[j]})
		}
	}
	return out
}
