package sampling

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"BrentShift/internal/domain/models"
	"BrentShift/internal/domain/service"
	"BrentShift/internal/services/changepoint"
	"BrentShift/pkg/logger"
)

// Defaults applied by Sample when the corresponding option is zero.
const (
	DefaultDraws  = 2000
	DefaultTune   = 1000
	DefaultChains = 4

	DefaultMuPriorSD    = 0.1
	DefaultSigmaPriorSD = 0.1

	// adaptWindow is how many proposals a component collects between
	// step-size adjustments during the tune phase.
	adaptWindow = 50

	progressEvery = 100
)

// Gibbs is the in-process sampler: adaptive Metropolis-within-Gibbs with an
// integer random walk on the break indices, Gaussian random walks on the
// segment means and a log-scale random walk on the noise sd. Step sizes adapt
// only during the tune phase and stay frozen for the retained draws.
type Gibbs struct {
	log *logger.Logger
}

// NewGibbs builds the sampler. log may be nil.
func NewGibbs(log *logger.Logger) *Gibbs {
	return &Gibbs{log: log}
}

var _ service.PosteriorSampler = (*Gibbs)(nil)

// Sample runs opts.Chains independent chains in parallel and returns every
// chain's draws separately so mixing can be checked across chains. The first
// chain error cancels the remaining chains; a context deadline surfaces as
// ErrBudgetExceeded.
func (g *Gibbs) Sample(ctx context.Context, spec models.ModelSpec, opts models.SampleOptions) (*models.Posterior, error) {
	if spec.MuPriorSD == 0 {
		spec.MuPriorSD = DefaultMuPriorSD
	}
	if spec.SigmaPriorSD == 0 {
		spec.SigmaPriorSD = DefaultSigmaPriorSD
	}
	model, err := changepoint.New(spec)
	if err != nil {
		return nil, err
	}
	if opts.Draws <= 0 {
		opts.Draws = DefaultDraws
	}
	if opts.Tune <= 0 {
		opts.Tune = DefaultTune
	}
	if opts.Chains <= 0 {
		opts.Chains = DefaultChains
	}

	start := time.Now()
	chains := make([]models.ChainDraws, opts.Chains)
	eg, gctx := errgroup.WithContext(ctx)
	for c := 0; c < opts.Chains; c++ {
		eg.Go(func() error {
			draws, err := runChain(gctx, model, spec, opts, c)
			if err != nil {
				return err
			}
			chains[c] = draws
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if g.log != nil {
		g.log.Info("posterior sampling finished",
			logger.Int("chains", opts.Chains),
			logger.Int("draws", opts.Draws),
			logger.Int("tune", opts.Tune),
			logger.Int("observations", model.N()),
			logger.Duration("elapsed", time.Since(start)),
		)
	}
	return &models.Posterior{Breaks: spec.Breaks, Chains: chains}, nil
}

func runChain(ctx context.Context, m *changepoint.Model, spec models.ModelSpec, opts models.SampleOptions, chain int) (models.ChainDraws, error) {
	st := newChainState(m, spec, opts.Seed, chain)
	out := models.ChainDraws{
		Tau:   make([][]int, 0, opts.Draws),
		Mu:    make([][]float64, 0, opts.Draws),
		Sigma: make([]float64, 0, opts.Draws),
	}

	total := opts.Tune + opts.Draws
	for sweep := 0; sweep < total; sweep++ {
		select {
		case <-ctx.Done():
			return models.ChainDraws{}, stopErr(ctx, chain, sweep, total)
		default:
		}

		tuning := sweep < opts.Tune
		st.step(m, tuning)

		if !tuning {
			mu := make([]float64, len(st.mu))
			copy(mu, st.mu)
			out.Tau = append(out.Tau, changepoint.Sorted(st.tau))
			out.Mu = append(out.Mu, mu)
			out.Sigma = append(out.Sigma, st.sigma)
		}
		report(opts, chain, sweep)
	}
	return out, nil
}

// stopErr maps a blown deadline to the budget error; an external cancel
// passes through unchanged.
func stopErr(ctx context.Context, chain, sweep, total int) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: chain %d stopped at iteration %d/%d", models.ErrBudgetExceeded, chain, sweep, total)
	}
	return ctx.Err()
}

func report(opts models.SampleOptions, chain, sweep int) {
	if opts.OnProgress == nil {
		return
	}
	p := models.Progress{Chain: chain, Phase: "tune", Done: sweep + 1, Total: opts.Tune}
	if sweep >= opts.Tune {
		p = models.Progress{Chain: chain, Phase: "draw", Done: sweep - opts.Tune + 1, Total: opts.Draws}
	}
	if p.Done%progressEvery == 0 || p.Done == p.Total {
		opts.OnProgress(p)
	}
}

// chainState is one chain's current position plus its adaptive step sizes.
// Components are indexed K tau walks, then K+1 mu walks, then sigma.
type chainState struct {
	rng *rand.Rand

	tau   []int
	mu    []float64
	sigma float64
	lp    float64

	tauStep   []float64
	muStep    []float64
	sigmaStep float64 // acts on log(sigma)

	accepted []int
	tried    []int
}

func newChainState(m *changepoint.Model, spec models.ModelSpec, seed uint64, chain int) *chainState {
	rng := rand.New(rand.NewPCG(seed+uint64(chain), uint64(chain)))
	n := m.N()
	k := m.K()

	st := &chainState{
		rng:       rng,
		tau:       make([]int, k),
		mu:        make([]float64, k+1),
		tauStep:   make([]float64, k),
		muStep:    make([]float64, k+1),
		sigmaStep: 0.5,
		accepted:  make([]int, 2*k+2),
		tried:     make([]int, 2*k+2),
	}

	// Overdispersed starts: uniform break positions, jittered means, noise sd
	// spread around its prior scale. Divergent starts make the cross-chain
	// convergence check meaningful.
	for i := range st.tau {
		st.tau[i] = rng.IntN(n)
		st.tauStep[i] = math.Max(1, float64(n)/20)
	}
	for j := range st.mu {
		st.mu[j] = rng.NormFloat64() * spec.MuPriorSD * 0.1
		st.muStep[j] = spec.MuPriorSD
	}
	st.sigma = spec.SigmaPriorSD * (0.5 + rng.Float64())
	st.lp = m.LogPosterior(st.tau, st.mu, st.sigma)
	return st
}

// step advances every component once with a Metropolis move.
func (s *chainState) step(m *changepoint.Model, tuning bool) {
	comp := 0

	for k := range s.tau {
		delta := int(math.Round(s.rng.NormFloat64() * s.tauStep[k]))
		old := s.tau[k]
		s.tau[k] = old + delta
		if !s.accept(comp, m.LogPosterior(s.tau, s.mu, s.sigma)) {
			s.tau[k] = old
		}
		s.adapt(comp, tuning, &s.tauStep[k], 0.5)
		comp++
	}

	for j := range s.mu {
		old := s.mu[j]
		s.mu[j] = old + s.rng.NormFloat64()*s.muStep[j]
		if !s.accept(comp, m.LogPosterior(s.tau, s.mu, s.sigma)) {
			s.mu[j] = old
		}
		s.adapt(comp, tuning, &s.muStep[j], 0)
		comp++
	}

	// sigma walks in log space; the acceptance ratio carries the log(sigma)
	// change-of-variables term.
	old := s.sigma
	s.sigma = math.Exp(math.Log(old) + s.rng.NormFloat64()*s.sigmaStep)
	lpNew := m.LogPosterior(s.tau, s.mu, s.sigma)
	s.tried[comp]++
	logr := (lpNew + math.Log(s.sigma)) - (s.lp + math.Log(old))
	if logr >= 0 || s.rng.Float64() < math.Exp(logr) {
		s.lp = lpNew
		s.accepted[comp]++
	} else {
		s.sigma = old
	}
	s.adapt(comp, tuning, &s.sigmaStep, 0)
}

func (s *chainState) accept(comp int, lpNew float64) bool {
	s.tried[comp]++
	if lpNew >= s.lp || s.rng.Float64() < math.Exp(lpNew-s.lp) {
		s.lp = lpNew
		s.accepted[comp]++
		return true
	}
	return false
}

func (s *chainState) adapt(comp int, tuning bool, scale *float64, floor float64) {
	if !tuning || s.tried[comp] < adaptWindow {
		return
	}
	rate := float64(s.accepted[comp]) / float64(s.tried[comp])
	*scale = tuneScale(*scale, rate)
	if *scale < floor {
		*scale = floor
	}
	s.accepted[comp] = 0
	s.tried[comp] = 0
}
