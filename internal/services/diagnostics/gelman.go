package diagnostics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"BrentShift/internal/domain/models"
)

const tiny = 1e-12

// Evaluate computes convergence diagnostics for every monitored parameter of
// the posterior: each sorted break index, each segment mean, and the noise sd.
// Converged is false as soon as any split R-hat exceeds threshold or cannot
// be computed.
func Evaluate(post *models.Posterior, threshold float64) models.Diagnostics {
	d := models.Diagnostics{Converged: true}
	if post == nil || post.TotalDraws() == 0 {
		d.Converged = false
		return d
	}

	check := func(name string, chains [][]float64) {
		rhat := SplitRHat(chains)
		ess := ESS(chains)
		if math.IsNaN(rhat) || rhat > threshold {
			d.Converged = false
		}
		// keep stored values JSON-safe: NaN -> -1, +Inf -> large finite
		rhat = sanitize(rhat)
		ess = sanitize(ess)
		d.Params = append(d.Params, models.ParamDiagnostic{Name: name, RHat: rhat, ESS: ess})
		if rhat > d.MaxRHat {
			d.MaxRHat = rhat
		}
	}

	for k := 0; k < post.Breaks; k++ {
		check(fmt.Sprintf("tau_%d", k), tauChains(post, k))
	}
	for j := 0; j <= post.Breaks; j++ {
		check(fmt.Sprintf("mu_%d", j), muChains(post, j))
	}
	check("sigma", sigmaChains(post))

	return d
}

// SplitRHat computes the split potential scale reduction statistic. Each
// chain is halved, so even a single chain yields a between-sequence term.
// Identical constant sequences give 1; sequences stuck at different
// constants give +Inf.
func SplitRHat(chains [][]float64) float64 {
	seqs := splitChains(chains)
	m := len(seqs)
	if m < 2 || len(seqs[0]) < 2 {
		return math.NaN()
	}
	n := float64(len(seqs[0]))

	means := make([]float64, m)
	vars := make([]float64, m)
	for i, s := range seqs {
		means[i] = stat.Mean(s, nil)
		vars[i] = stat.Variance(s, nil)
	}

	w := stat.Mean(vars, nil)
	b := n * stat.Variance(means, nil)

	if w < tiny {
		if b < tiny {
			return 1
		}
		return math.Inf(1)
	}

	varPlus := (n-1)/n*w + b/n
	return math.Sqrt(varPlus / w)
}

// ESS estimates the effective sample size across chains using the combined
// autocorrelation with Geyer's initial positive sequence. Constant chains
// count as fully effective. The estimate is capped at the total draw count.
func ESS(chains [][]float64) float64 {
	seqs := splitChains(chains)
	m := len(seqs)
	if m == 0 || len(seqs[0]) < 2 {
		return math.NaN()
	}
	n := len(seqs[0])
	total := float64(m * n)

	means := make([]float64, m)
	vars := make([]float64, m)
	for i, s := range seqs {
		means[i] = stat.Mean(s, nil)
		vars[i] = stat.Variance(s, nil)
	}
	w := stat.Mean(vars, nil)
	b := float64(n) * stat.Variance(means, nil)
	varPlus := (float64(n-1)/float64(n))*w + b/float64(n)
	if varPlus < tiny {
		return total
	}

	// combined autocorrelation at lag t over all sequences
	rho := func(t int) float64 {
		acSum := 0.0
		for i, s := range seqs {
			acSum += autocov(s, means[i], t)
		}
		return 1 - (w-acSum/float64(m))/varPlus
	}

	tau := 0.0
	for t := 0; t+1 < n; t += 2 {
		pair := rho(t) + rho(t+1)
		if pair < 0 {
			break
		}
		tau += 2 * pair
	}
	tau -= 1
	if tau < 1 {
		tau = 1
	}

	ess := total / tau
	if ess > total {
		ess = total
	}
	return ess
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) {
		return -1
	}
	if math.IsInf(v, 1) {
		return 1e9
	}
	return v
}

// splitChains halves every chain, dropping the middle draw of odd chains.
func splitChains(chains [][]float64) [][]float64 {
	var out [][]float64
	minLen := math.MaxInt
	for _, c := range chains {
		h := len(c) / 2
		if h == 0 {
			continue
		}
		out = append(out, c[:h], c[len(c)-h:])
		if h < minLen {
			minLen = h
		}
	}
	// equalize lengths so the between-sequence variance is well defined
	for i := range out {
		out[i] = out[i][:minLen]
	}
	return out
}

// autocov is the biased lag-t autocovariance of s around mean.
func autocov(s []float64, mean float64, t int) float64 {
	if t >= len(s) {
		return 0
	}
	sum := 0.0
	for i := 0; i+t < len(s); i++ {
		sum += (s[i] - mean) * (s[i+t] - mean)
	}
	return sum / float64(len(s))
}

func tauChains(post *models.Posterior, k int) [][]float64 {
	out := make([][]float64, len(post.Chains))
	for c, ch := range post.Chains {
		s := make([]float64, len(ch.Tau))
		for i, row := range ch.Tau {
			s[i] = float64(row[k])
		}
		out[c] = s
	}
	return out
}

func muChains(post *models.Posterior, j int) [][]float64 {
	out := make([][]float64, len(post.Chains))
	for c, ch := range post.Chains {
		s := make([]float64, len(ch.Mu))
		for i, row := range ch.Mu {
			s[i] = row[j]
		}
		out[c] = s
	}
	return out
}

func sigmaChains(post *models.Posterior) [][]float64 {
	out := make([][]float64, len(post.Chains))
	for c, ch := range post.Chains {
		s := make([]float64, len(ch.Sigma))
		copy(s, ch.Sigma)
		out[c] = s
	}
	return out
}
