package analysis

// Quality bands for a silhouette score.
const (
	QualityLow  = "low"
	QualityFair = "fair"
	QualityGood = "good"
)

// SilhouetteScore returns the mean silhouette coefficient of the assignment.
// A single-cluster assignment scores exactly 0. Categories alone in their
// cluster contribute 0.
func SilhouetteScore(profile Profile, a *Assignment) (float64, error) {
	cats := profile.Categories()
	if len(cats) == 0 {
		return 0, &InsufficientDataError{Metric: "silhouette", Have: 0, Need: 1}
	}
	if a.K == 1 {
		return 0, nil
	}
	if len(cats) <= a.K {
		return 0, &InsufficientDataError{Metric: "silhouette", Have: len(cats), Need: a.K}
	}

	byCluster := make(map[int][]string, a.K)
	for _, c := range cats {
		l := a.Labels[c]
		byCluster[l] = append(byCluster[l], c)
	}

	var total float64
	for _, c := range cats {
		own := a.Labels[c]
		if len(byCluster[own]) < 2 {
			continue
		}
		ai := meanDistance(profile, c, byCluster[own])
		bi := -1.0
		for id, members := range byCluster {
			if id == own || len(members) == 0 {
				continue
			}
			if d := meanDistance(profile, c, members); bi < 0 || d < bi {
				bi = d
			}
		}
		if bi < 0 {
			continue
		}
		if denom := max(ai, bi); denom > 0 {
			total += (bi - ai) / denom
		}
	}
	return total / float64(len(cats)), nil
}

// meanDistance averages the distance from c to every other category in members.
func meanDistance(profile Profile, c string, members []string) float64 {
	var sum float64
	n := 0
	for _, o := range members {
		if o == c {
			continue
		}
		sum += euclidean(profile[c], profile[o])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// QualityBand labels a silhouette score.
func QualityBand(score float64) string {
	switch {
	case score < 0.2:
		return QualityLow
	case score < 0.5:
		return QualityFair
	default:
		return QualityGood
	}
}
