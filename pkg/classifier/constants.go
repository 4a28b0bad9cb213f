// Package classifier implements the Naive-Bayes / chi-square pipeline that
// trains a tag's classifier from its example pools and scores items
// against it.
package classifier

const (
	// unknownWordProb is the probability assigned to a token never seen
	// in either the foreground or background pools.
	unknownWordProb = 0.5

	// unknownWordStrength (S) is the confidence weight given to the
	// unknown-word prior when blending it with the observed ratio.
	unknownWordStrength = 0.45

	// sTimesX is S * unknownWordProb, the numerator term contributed by
	// the prior in the probability blend.
	sTimesX = unknownWordStrength * unknownWordProb

	// minProbStrength is the minimum |0.5 - probability| a clue must
	// have to be considered a discriminator at all.
	minProbStrength = 0.1

	// maxDiscriminators is the minimum cap on the number of clues used
	// to classify an item, regardless of item length.
	maxDiscriminators = 150

	// maxCluesRatio scales the clue cap with the item's token count for
	// long items: max(maxDiscriminators, maxCluesRatio * numTokens).
	maxCluesRatio = 0.5

	// tinyVal is the underflow threshold below which chi2Combine
	// rescales its running products into a mantissa/exponent pair.
	tinyVal = 1e-200
)
