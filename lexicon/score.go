package lexicon

// Clamp01 bounds v to [0, 1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Density normalises a hit count by the number of semantic units the text
// was decomposed into. Every rule-based facet uses this one normalisation.
func Density(hits, units int) float64 {
	if units <= 0 || hits <= 0 {
		return 0
	}
	return Clamp01(float64(hits) / float64(units))
}

// Scores converts per-key counts into densities for every key in order.
func Scores[K comparable](order []K, counts map[K]int, units int) map[K]float64 {
	scores := make(map[K]float64, len(order))
	for _, k := range order {
		scores[k] = Density(counts[k], units)
	}
	return scores
}

// Argmax returns the key with the highest score. Ties go to the key that
// comes first in order, so the result is deterministic. An empty order
// yields the zero value.
func Argmax[K comparable](order []K, scores map[K]float64) K {
	var best K
	bestScore := -1.0
	for _, k := range order {
		if s := scores[k]; s > bestScore {
			best, bestScore = k, s
		}
	}
	return best
}

// Zero returns a score map holding 0 for every key.
func Zero[K comparable](order []K) map[K]float64 {
	scores := make(map[K]float64, len(order))
	for _, k := range order {
		scores[k] = 0
	}
	return scores
}
