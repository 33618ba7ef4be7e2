package lightgbm

import (
	"math"
	"math/rand/v2"
	"sort"
)

// SamplingStrategy handles row bagging and per-tree feature sampling.
// All draws come from one PCG stream seeded by TrainingParams.Seed, so a
// fit is reproducible for a given seed.
type SamplingStrategy struct {
	rng             *rand.Rand
	featureFraction float64
	baggingFraction float64
	baggingFreq     int
	bag             []int
}

// NewSamplingStrategy creates a new sampling strategy
func NewSamplingStrategy(params TrainingParams) *SamplingStrategy {
	return &SamplingStrategy{
		rng:             rand.New(rand.NewPCG(params.Seed, params.Seed^0x5851f42d4c957f2d)),
		featureFraction: params.FeatureFraction,
		baggingFraction: params.BaggingFraction,
		baggingFreq:     params.BaggingFreq,
	}
}

// sampleCount returns max(1, floor(n*frac)) with a small tolerance so that
// fractions like 7/12 of 12 give 7.
func sampleCount(n int, frac float64) int {
	k := int(math.Floor(float64(n)*frac + 1e-9))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

// SampleFeatures returns the sorted feature indices available to one tree.
func (s *SamplingStrategy) SampleFeatures(numFeatures int) []int {
	if s.featureFraction >= 1.0 || s.featureFraction <= 0 {
		return identity(numFeatures)
	}
	return s.partialShuffle(numFeatures, sampleCount(numFeatures, s.featureFraction))
}

// SampleInstances returns the in-bag rows for an iteration. A new bag is
// drawn every baggingFreq iterations and reused in between; without bagging
// all rows are used.
func (s *SamplingStrategy) SampleInstances(numInstances int, iteration int) []int {
	if s.baggingFreq <= 0 || s.baggingFraction >= 1.0 || s.baggingFraction <= 0 {
		if len(s.bag) != numInstances {
			s.bag = identity(numInstances)
		}
		return s.bag
	}
	if s.bag == nil || iteration%s.baggingFreq == 0 {
		s.bag = s.partialShuffle(numInstances, sampleCount(numInstances, s.baggingFraction))
	}
	return s.bag
}

// partialShuffle draws k of n indices without replacement (Fisher-Yates)
// and returns them in ascending order.
func (s *SamplingStrategy) partialShuffle(n, k int) []int {
	perm := identity(n)
	for i := 0; i < k; i++ {
		j := i + s.rng.IntN(n-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	out := perm[:k]
	sort.Ints(out)
	return out
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// RegularizationStrategy handles L1/L2 regularization
type RegularizationStrategy struct {
	lambdaL1 float64
	lambdaL2 float64
}

// NewRegularizationStrategy creates a new regularization strategy
func NewRegularizationStrategy(params TrainingParams) *RegularizationStrategy {
	return &RegularizationStrategy{
		lambdaL1: params.Alpha,
		lambdaL2: params.Lambda,
	}
}

// thresholdL1 applies soft thresholding to a gradient sum.
func (r *RegularizationStrategy) thresholdL1(sumGrad float64) float64 {
	if r.lambdaL1 <= 0 {
		return sumGrad
	}
	switch {
	case sumGrad > r.lambdaL1:
		return sumGrad - r.lambdaL1
	case sumGrad < -r.lambdaL1:
		return sumGrad + r.lambdaL1
	default:
		return 0
	}
}

// LeafOutput is the Newton step -T(G)/(H+lambda).
func (r *RegularizationStrategy) LeafOutput(sumGrad, sumHess float64) float64 {
	const epsilon = 1e-15
	return -r.thresholdL1(sumGrad) / (sumHess + r.lambdaL2 + epsilon)
}

// score is 0.5 * T(G)^2 / (H+lambda).
func (r *RegularizationStrategy) score(sumGrad, sumHess, extraL2 float64) float64 {
	const epsilon = 1e-15
	g := r.thresholdL1(sumGrad)
	return 0.5 * g * g / (sumHess + r.lambdaL2 + extraL2 + epsilon)
}

// SplitGain is the loss reduction of replacing the parent leaf by two
// children. It is compared against MinGainToSplit.
func (r *RegularizationStrategy) SplitGain(leftGrad, leftHess, rightGrad, rightHess, parentGrad, parentHess float64) float64 {
	return r.score(leftGrad, leftHess, 0) + r.score(rightGrad, rightHess, 0) - r.score(parentGrad, parentHess, 0)
}
