package classifier

// probToken is one pool's observed count and size for a single token,
// used to compute that token's contribution to the foreground or
// background side of a probability estimate.
type probToken struct {
	tokenCount int
	poolSize   int
}

// probability blends the observed foreground/background ratio for a token
// with the unknown-word prior, weighted by a confidence measure n. It
// mirrors the chi2-spamprob style estimator: more observations pull the
// result toward the raw ratio, fewer pull it toward 0.5.
func probability(foregrounds, backgrounds []probToken, fgTotalTokens, bgTotalTokens int) float64 {
	if fgTotalTokens <= 0 && bgTotalTokens <= 0 {
		return unknownWordProb
	}

	fgTotalTokens = max(1, fgTotalTokens)
	bgTotalTokens = max(1, bgTotalTokens)

	fgRatio := filteredAverage(computeRatios(foregrounds))
	bgRatio := filteredAverage(computeRatios(backgrounds))
	ratio := fgRatio / (fgRatio + bgRatio)

	n := computeN(foregrounds, backgrounds, float64(fgTotalTokens), float64(bgTotalTokens))

	return (sTimesX + n*ratio) / (unknownWordStrength + n)
}

func computeRatios(tokens []probToken) []float64 {
	ratios := make([]float64, len(tokens))
	for i, t := range tokens {
		if t.poolSize > 0 {
			ratios[i] = float64(t.tokenCount) / float64(t.poolSize)
		}
	}
	return ratios
}

// computeN measures confidence in a probability estimate for a token: the
// token count in each pool, scaled by how large the opposite side's total
// is relative to this pool's own size, averaged (ignoring zero entries)
// across the foreground side and again across the background side, then
// summed.
func computeN(foregrounds, backgrounds []probToken, fgTotalTokens, bgTotalTokens float64) float64 {
	fgNs := make([]float64, len(foregrounds))
	for i, t := range foregrounds {
		if t.poolSize > 0 {
			fgNs[i] = float64(t.tokenCount) * bgTotalTokens / float64(t.poolSize)
		}
	}

	bgNs := make([]float64, len(backgrounds))
	for i, t := range backgrounds {
		if t.poolSize > 0 {
			bgNs[i] = float64(t.tokenCount) * fgTotalTokens / float64(t.poolSize)
		}
	}

	return filteredAverage(fgNs) + filteredAverage(bgNs)
}

// filteredAverage averages only the strictly-positive entries of arr,
// returning 0 if there are none.
func filteredAverage(arr []float64) float64 {
	var sum float64
	var n int
	for _, v := range arr {
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
