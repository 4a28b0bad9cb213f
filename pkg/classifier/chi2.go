package classifier

import (
	"math"

	"github.com/peerworks/classifierd/pkg/corpus"
)

// chi2Q returns P(chi-square >= x2) with v degrees of freedom. v must be
// even and positive; any other v is an invalid-input sentinel (-1),
// matching the survival-function approximation used by the original
// chi-square combination.
func chi2Q(x2 float64, v int) float64 {
	if v <= 0 || v%2 != 0 {
		return -1.0
	}

	m := x2 / 2
	maxI := v / 2
	sum := math.Exp(-m)
	term := sum

	for i := 1; i <= maxI; i++ {
		term *= m / float64(i)
		sum += term
	}

	if sum > 1.0 {
		sum = 1.0
	}
	return sum
}

// chi2Combine combines every clue's probability into a single item-level
// score via Fisher's method, following the chi2-spamprob technique: the
// running products of probability and (1-probability) are rescaled
// through frexp whenever they risk underflowing, then converted back to
// log space before the chi-square survival function is applied.
func chi2Combine(clues []*corpus.Clue) float64 {
	h, s := 1.0, 1.0
	hExp, sExp := 0, 0

	for _, clue := range clues {
		s *= 1.0 - clue.Probability
		h *= clue.Probability

		if s < tinyVal {
			frac, exp := math.Frexp(s)
			s = frac
			sExp += exp
		}
		if h < tinyVal {
			frac, exp := math.Frexp(h)
			h = frac
			hExp += exp
		}
	}

	sLog := math.Log(s) + float64(sExp)*math.Ln2
	hLog := math.Log(h) + float64(hExp)*math.Ln2

	sScore := 1.0 - chi2Q(-2.0*sLog, len(clues)*2)
	hScore := 1.0 - chi2Q(-2.0*hLog, len(clues)*2)

	return (sScore - hScore + 1.0) / 2.0
}
