package models

// ModelSpec fixes the piecewise-constant-mean change-point model for one run.
type ModelSpec struct {
	Returns      []float64 // log returns, the modeled observations
	Breaks       int       // number of change points (K)
	MuPriorSD    float64   // prior sd of the K+1 segment means
	SigmaPriorSD float64   // prior scale of the half-normal noise sd
}

// Segments returns the number of mean segments (K+1).
func (s ModelSpec) Segments() int { return s.Breaks + 1 }

// SampleOptions control one posterior sampling run.
type SampleOptions struct {
	Draws  int    // retained draws per chain
	Tune   int    // adaptation draws per chain, discarded
	Chains int    // independent chains, pooled afterwards
	Seed   uint64 // base seed; chain c derives its own stream from Seed+c

	// OnProgress, when set, is invoked from chain goroutines as sampling
	// advances. Implementations must be safe for concurrent use.
	OnProgress func(Progress)
}

// Progress reports sampling advancement for one chain.
type Progress struct {
	Chain int    `json:"chain"`
	Phase string `json:"phase"` // "tune" | "draw"
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

// ChainDraws holds the retained draws of a single chain. Tau rows store the
// sorted transform of the break indices, so every row is ascending.
type ChainDraws struct {
	Tau   [][]int     // draws x K
	Mu    [][]float64 // draws x K+1
	Sigma []float64   // draws
}

// Posterior is the sampling output of all chains for one model.
type Posterior struct {
	Breaks int
	Chains []ChainDraws
}

// TotalDraws counts retained draws across all chains.
func (p *Posterior) TotalDraws() int {
	n := 0
	for _, c := range p.Chains {
		n += len(c.Sigma)
	}
	return n
}

// PooledTau concatenates draws of sorted break index k from all chains.
func (p *Posterior) PooledTau(k int) []int {
	out := make([]int, 0, p.TotalDraws())
	for _, c := range p.Chains {
		for _, row := range c.Tau {
			out = append(out, row[k])
		}
	}
	return out
}

// PooledMu concatenates draws of segment mean j from all chains.
func (p *Posterior) PooledMu(j int) []float64 {
	out := make([]float64, 0, p.TotalDraws())
	for _, c := range p.Chains {
		for _, row := range c.Mu {
			out = append(out, row[j])
		}
	}
	return out
}

// PooledSigma concatenates noise-sd draws from all chains.
func (p *Posterior) PooledSigma() []float64 {
	out := make([]float64, 0, p.TotalDraws())
	for _, c := range p.Chains {
		out = append(out, c.Sigma...)
	}
	return out
}
