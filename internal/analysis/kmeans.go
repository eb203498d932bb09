package analysis

import (
	"math"
	"math/rand"
	"sort"
)

const (
	DefaultRestarts      = 10
	DefaultMaxIterations = 300

	// distances closer than this (relative) are ties
	tieTolerance = 1e-9
)

// SegmentOptions configures one k-means run.
type SegmentOptions struct {
	K             int
	Seed          int64
	Restarts      int // defaults to DefaultRestarts
	MaxIterations int // defaults to DefaultMaxIterations
}

// Assignment maps every category to exactly one cluster id in [0, K).
type Assignment struct {
	K          int            `json:"k"`
	Labels     map[string]int `json:"labels"`
	Inertia    float64        `json:"inertia"`
	Iterations int            `json:"iterations"`
	Converged  bool           `json:"converged"`
	Restart    int            `json:"restart"`
}

// Segment partitions categories into opts.K clusters of similar normalized
// profiles. Identical inputs and seed always yield the identical assignment.
//
// Restart 0 seeds centroids farthest-first from the most pronounced profile;
// later restarts use k-means++ draws from a single source seeded with
// opts.Seed. The lowest-inertia labelling wins; earlier restarts win ties.
func Segment(profile Profile, opts SegmentOptions) (*Assignment, error) {
	cats := profile.Categories()
	if opts.K < 2 || opts.K > len(cats) {
		return nil, &InvalidClusterCountError{Requested: opts.K, Categories: len(cats)}
	}
	restarts := opts.Restarts
	if restarts <= 0 {
		restarts = DefaultRestarts
	}
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	points := make([][]float64, len(cats))
	for i, c := range cats {
		points[i] = profile[c]
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	var best *lloydResult
	bestRestart := 0
	for r := 0; r < restarts; r++ {
		var init [][]float64
		if r == 0 {
			init = farthestFirst(points, opts.K)
		} else {
			init = kmeansPlusPlus(points, opts.K, rng)
		}
		res := lloyd(points, init, maxIter)
		if best == nil || lessInertia(res.inertia, best.inertia) {
			best = res
			bestRestart = r
		}
	}

	labels := make(map[string]int, len(cats))
	for i, c := range cats {
		labels[c] = best.labels[i]
	}
	return &Assignment{
		K:          opts.K,
		Labels:     labels,
		Inertia:    best.inertia,
		Iterations: best.iterations,
		Converged:  best.converged,
		Restart:    bestRestart,
	}, nil
}

type lloydResult struct {
	labels     []int
	inertia    float64
	iterations int
	converged  bool
}

// lloyd refines centroids until no label changes or maxIter is reached and
// returns the lowest-inertia labelling it saw.
func lloyd(points [][]float64, init [][]float64, maxIter int) *lloydResult {
	k := len(init)
	centroids := make([][]float64, k)
	for j := range init {
		centroids[j] = append([]float64(nil), init[j]...)
	}
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	best := &lloydResult{inertia: math.Inf(1)}
	for iter := 1; iter <= maxIter; iter++ {
		changed := false
		for i, p := range points {
			if l := nearest(p, centroids); l != labels[i] {
				labels[i] = l
				changed = true
			}
		}
		if updateCentroids(points, labels, centroids) {
			changed = true
		}

		inertia := sse(points, labels, centroids)
		if lessInertia(inertia, best.inertia) {
			best.labels = append(best.labels[:0], labels...)
			best.inertia = inertia
		}
		best.iterations = iter
		if !changed {
			best.converged = true
			break
		}
	}
	return best
}

// nearest returns the closest centroid; near-equal distances go to the lowest id.
func nearest(p []float64, centroids [][]float64) int {
	best := 0
	bestD := euclidean(p, centroids[0])
	for j := 1; j < len(centroids); j++ {
		d := euclidean(p, centroids[j])
		if d < bestD-tieTolerance*math.Max(1, bestD) {
			best, bestD = j, d
		}
	}
	return best
}

// updateCentroids moves each centroid to its members' mean. A cluster left
// empty takes over the point farthest from its own centroid, provided that
// point's cluster keeps at least one member and the point is not already on
// its centroid; otherwise it stays empty.
// Reports whether any label was moved.
func updateCentroids(points [][]float64, labels []int, centroids [][]float64) bool {
	k := len(centroids)
	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}
	for j := 0; j < k; j++ {
		if counts[j] > 0 {
			centroids[j] = mean(points, labels, j)
		}
	}

	moved := false
	for j := 0; j < k; j++ {
		if counts[j] > 0 {
			continue
		}
		donor, far := -1, -1.0
		for i, p := range points {
			if counts[labels[i]] < 2 {
				continue
			}
			if d := euclidean(p, centroids[labels[i]]); d > far+tieTolerance*math.Max(1, far) {
				donor, far = i, d
			}
		}
		// every point already sits on its centroid; there is nothing to split
		if donor < 0 || far <= tieTolerance {
			continue
		}
		from := labels[donor]
		labels[donor] = j
		counts[from]--
		counts[j]++
		centroids[j] = append([]float64(nil), points[donor]...)
		centroids[from] = mean(points, labels, from)
		moved = true
	}
	return moved
}

func mean(points [][]float64, labels []int, cluster int) []float64 {
	var out []float64
	n := 0
	for i, p := range points {
		if labels[i] != cluster {
			continue
		}
		if out == nil {
			out = make([]float64, len(p))
		}
		for d, v := range p {
			out[d] += v
		}
		n++
	}
	for d := range out {
		out[d] /= float64(n)
	}
	return out
}

func sse(points [][]float64, labels []int, centroids [][]float64) float64 {
	var total float64
	for i, p := range points {
		total += squaredDistance(p, centroids[labels[i]])
	}
	return total
}

// farthestFirst picks the profile with the largest peak magnitude, then
// repeatedly the profile farthest from every centroid chosen so far.
func farthestFirst(points [][]float64, k int) [][]float64 {
	chosen := make([]bool, len(points))
	first, peak := 0, -1.0
	for i, p := range points {
		var m float64
		for _, v := range p {
			m = math.Max(m, math.Abs(v))
		}
		if m > peak+tieTolerance*math.Max(1, peak) {
			first, peak = i, m
		}
	}
	centroids := [][]float64{append([]float64(nil), points[first]...)}
	chosen[first] = true

	for len(centroids) < k {
		next, far := -1, -1.0
		for i, p := range points {
			if chosen[i] {
				continue
			}
			d := math.Inf(1)
			for _, c := range centroids {
				d = math.Min(d, euclidean(p, c))
			}
			if d > far+tieTolerance*math.Max(1, far) {
				next, far = i, d
			}
		}
		chosen[next] = true
		centroids = append(centroids, append([]float64(nil), points[next]...))
	}
	return centroids
}

// kmeansPlusPlus draws centroids with probability proportional to the squared
// distance from the centroids already chosen.
func kmeansPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	chosen := make([]bool, len(points))
	first := rng.Intn(len(points))
	chosen[first] = true
	centroids := [][]float64{append([]float64(nil), points[first]...)}

	d2 := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			d2[i] = 0
			if chosen[i] {
				continue
			}
			d2[i] = math.Inf(1)
			for _, c := range centroids {
				d2[i] = math.Min(d2[i], squaredDistance(p, c))
			}
			total += d2[i]
		}

		next := -1
		if total > 0 {
			target := rng.Float64() * total
			var cum float64
			for i := range points {
				if d2[i] == 0 {
					continue
				}
				cum += d2[i]
				next = i
				if cum > target {
					break
				}
			}
		}
		if next < 0 {
			// every remaining point coincides with a centroid
			for i := range points {
				if !chosen[i] {
					next = i
					break
				}
			}
		}
		chosen[next] = true
		centroids = append(centroids, append([]float64(nil), points[next]...))
	}
	return centroids
}

func lessInertia(a, b float64) bool {
	if math.IsInf(b, 1) {
		return !math.IsInf(a, 1)
	}
	return a < b-tieTolerance*math.Max(1, b)
}

func squaredDistance(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func euclidean(a, b []float64) float64 {
	return math.Sqrt(squaredDistance(a, b))
}

// Members returns the categories assigned to cluster id, in lexical order.
func (a *Assignment) Members(id int) []string {
	var out []string
	for c, l := range a.Labels {
		if l == id {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Sizes returns the member count of each cluster id.
func (a *Assignment) Sizes() []int {
	sizes := make([]int, a.K)
	for _, l := range a.Labels {
		if l >= 0 && l < a.K {
			sizes[l]++
		}
	}
	return sizes
}

// Categories returns every assigned category in lexical order.
func (a *Assignment) Categories() []string {
	return sortedKeys(a.Labels)
}

// NonEmpty returns the number of clusters with at least one member.
func (a *Assignment) NonEmpty() int {
	n := 0
	for _, s := range a.Sizes() {
		if s > 0 {
			n++
		}
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
