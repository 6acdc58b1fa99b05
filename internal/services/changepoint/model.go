package changepoint

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"BrentShift/internal/domain/models"
)

// Model evaluates the log posterior of a piecewise-constant-mean model with K
// change points over a log-return series:
//
//	tau_k   ~ DiscreteUniform(0, n-1)        k = 0..K-1
//	mu_j    ~ Normal(0, muPriorSD)           j = 0..K
//	sigma   ~ HalfNormal(sigmaPriorSD)
//	r_i     ~ Normal(mu[segment(i)], sigma)
//
// The break positions are sorted before segment assignment, which pins each
// mu_j to a position in time regardless of the order the tau components are
// stored in. A model is immutable after New and safe for concurrent chains.
type Model struct {
	returns []float64
	k       int

	muPrior distuv.Normal
	sigmaSD float64

	// prefix sums over returns, so a segment's likelihood costs O(1)
	sum  []float64 // sum[i] = returns[0] + ... + returns[i-1]
	sum2 []float64 // same for squares
}

// New builds a model for the given spec.
func New(spec models.ModelSpec) (*Model, error) {
	n := len(spec.Returns)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 returns, got %d", models.ErrMalformedInput, n)
	}
	if spec.Breaks < 1 {
		return nil, fmt.Errorf("change points must be >= 1, got %d", spec.Breaks)
	}
	if spec.MuPriorSD <= 0 || spec.SigmaPriorSD <= 0 {
		return nil, fmt.Errorf("prior scales must be positive, got mu=%v sigma=%v", spec.MuPriorSD, spec.SigmaPriorSD)
	}

	m := &Model{
		returns: spec.Returns,
		k:       spec.Breaks,
		muPrior: distuv.Normal{Mu: 0, Sigma: spec.MuPriorSD},
		sigmaSD: spec.SigmaPriorSD,
		sum:     make([]float64, n+1),
		sum2:    make([]float64, n+1),
	}
	for i, r := range spec.Returns {
		m.sum[i+1] = m.sum[i] + r
		m.sum2[i+1] = m.sum2[i] + r*r
	}
	return m, nil
}

// N returns the number of observations.
func (m *Model) N() int { return len(m.returns) }

// K returns the number of change points.
func (m *Model) K() int { return m.k }

// LogPosterior evaluates the unnormalized log posterior density. It returns
// -Inf outside the support (sigma <= 0 or any tau outside [0, n-1]).
// mu must have K+1 entries; tau has K entries in any order.
func (m *Model) LogPosterior(tau []int, mu []float64, sigma float64) float64 {
	n := len(m.returns)
	if sigma <= 0 {
		return math.Inf(-1)
	}
	for _, t := range tau {
		if t < 0 || t > n-1 {
			return math.Inf(-1)
		}
	}

	sorted := Sorted(tau)

	// likelihood, segment by segment
	lp := -float64(n) * (math.Log(sigma) + 0.5*math.Log(2*math.Pi))
	inv2 := 1 / (2 * sigma * sigma)
	lo := 0
	for j := 0; j <= m.k; j++ {
		hi := n
		if j < m.k {
			hi = sorted[j]
		}
		if hi > lo {
			cnt := float64(hi - lo)
			s1 := m.sum[hi] - m.sum[lo]
			s2 := m.sum2[hi] - m.sum2[lo]
			sse := s2 - 2*mu[j]*s1 + cnt*mu[j]*mu[j]
			lp -= sse * inv2
		}
		lo = hi
	}

	// priors
	for _, v := range mu {
		lp += m.muPrior.LogProb(v)
	}
	lp += halfNormalLogProb(sigma, m.sigmaSD)
	lp -= float64(m.k) * math.Log(float64(n)) // uniform tau mass

	return lp
}

// SegmentOf maps observation index i to its segment given sorted breaks.
// An observation at a break index belongs to the segment after the break.
func SegmentOf(i int, sorted []int) int {
	s := 0
	for _, t := range sorted {
		if t <= i {
			s++
		}
	}
	return s
}

// SegmentSizes returns the observation count of each of the K+1 segments for
// sorted breaks over n observations. Duplicate breaks yield empty segments.
func SegmentSizes(n int, sorted []int) []int {
	sizes := make([]int, len(sorted)+1)
	lo := 0
	for j := range sizes {
		hi := n
		if j < len(sorted) {
			hi = sorted[j]
		}
		if hi < lo {
			hi = lo
		}
		sizes[j] = hi - lo
		lo = hi
	}
	return sizes
}

// Sorted returns an ascending copy of tau.
func Sorted(tau []int) []int {
	out := make([]int, len(tau))
	copy(out, tau)
	sort.Ints(out)
	return out
}

// halfNormalLogProb is the log density of |X| where X ~ Normal(0, scale).
func halfNormalLogProb(x, scale float64) float64 {
	if x < 0 {
		return math.Inf(-1)
	}
	return math.Ln2 + distuv.Normal{Mu: 0, Sigma: scale}.LogProb(x)
}
