package sampling

import (
	"context"
	"errors"
	"math/rand/v2"
	"reflect"
	"sync"
	"testing"
	"time"

	"gonum.org/v1/gonum/stat"

	"BrentShift/internal/domain/models"
	"BrentShift/internal/services/changepoint"
	"BrentShift/internal/services/diagnostics"
)

// shiftReturns builds a synthetic log-return series with one segment per
// entry of sizes, each with its own mean and shared noise sd.
func shiftReturns(rng *rand.Rand, sizes []int, means []float64, sd float64) []float64 {
	var out []float64
	for s, n := range sizes {
		for i := 0; i < n; i++ {
			out = append(out, means[s]+rng.NormFloat64()*sd)
		}
	}
	return out
}

func TestSampleRecoversSingleShift(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	returns := shiftReturns(rng, []int{60, 140}, []float64{0.05, -0.05}, 0.02)

	spec := models.ModelSpec{Returns: returns, Breaks: 1, MuPriorSD: 0.1, SigmaPriorSD: 0.1}
	opts := models.SampleOptions{Draws: 1500, Tune: 800, Chains: 4, Seed: 7}

	post, err := NewGibbs(nil).Sample(context.Background(), spec, opts)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if got := post.TotalDraws(); got != 4*1500 {
		t.Fatalf("TotalDraws = %d, want %d", got, 4*1500)
	}
	for c, ch := range post.Chains {
		if len(ch.Tau) != 1500 || len(ch.Mu) != 1500 || len(ch.Sigma) != 1500 {
			t.Fatalf("chain %d draw counts = %d/%d/%d, want 1500 each", c, len(ch.Tau), len(ch.Mu), len(ch.Sigma))
		}
		for _, row := range ch.Tau {
			if len(row) != 1 {
				t.Fatalf("chain %d tau row width = %d, want 1", c, len(row))
			}
			if row[0] < 0 || row[0] > len(returns)-1 {
				t.Fatalf("chain %d tau draw %d outside [0,%d]", c, row[0], len(returns)-1)
			}
		}
	}

	modal := changepoint.ModalValue(post.PooledTau(0))
	if modal < 58 || modal > 62 {
		t.Errorf("modal break index = %d, want near 60", modal)
	}
	if m := stat.Mean(post.PooledMu(0), nil); m < 0.03 || m > 0.07 {
		t.Errorf("posterior mean of first segment = %v, want near 0.05", m)
	}
	if m := stat.Mean(post.PooledMu(1), nil); m < -0.07 || m > -0.03 {
		t.Errorf("posterior mean of second segment = %v, want near -0.05", m)
	}
	if m := stat.Mean(post.PooledSigma(), nil); m < 0.01 || m > 0.03 {
		t.Errorf("posterior mean of sigma = %v, want near 0.02", m)
	}

	ev := diagnostics.Evaluate(post, 1.1)
	if !ev.Converged {
		t.Errorf("well-separated shift did not converge: max rhat %v", ev.MaxRHat)
	}
}

func TestSampleRecoversTwoShifts(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 0))
	returns := shiftReturns(rng, []int{50, 50, 50}, []float64{0.08, -0.08, 0.08}, 0.02)

	spec := models.ModelSpec{Returns: returns, Breaks: 2, MuPriorSD: 0.1, SigmaPriorSD: 0.1}
	opts := models.SampleOptions{Draws: 1200, Tune: 1000, Chains: 4, Seed: 3}

	post, err := NewGibbs(nil).Sample(context.Background(), spec, opts)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	for c, ch := range post.Chains {
		for i, row := range ch.Tau {
			if len(row) != 2 {
				t.Fatalf("chain %d tau row width = %d, want 2", c, len(row))
			}
			if row[0] > row[1] {
				t.Fatalf("chain %d draw %d tau row %v not ascending", c, i, row)
			}
		}
	}

	first := changepoint.ModalValue(post.PooledTau(0))
	second := changepoint.ModalValue(post.PooledTau(1))
	if first < 47 || first > 53 {
		t.Errorf("modal first break = %d, want near 50", first)
	}
	if second < 97 || second > 103 {
		t.Errorf("modal second break = %d, want near 100", second)
	}
}

func TestSampleDeterministicForSeed(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 0))
	returns := shiftReturns(rng, []int{40, 40}, []float64{0.04, -0.04}, 0.02)

	spec := models.ModelSpec{Returns: returns, Breaks: 1, MuPriorSD: 0.1, SigmaPriorSD: 0.1}
	opts := models.SampleOptions{Draws: 300, Tune: 200, Chains: 2, Seed: 99}

	a, err := NewGibbs(nil).Sample(context.Background(), spec, opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := NewGibbs(nil).Sample(context.Background(), spec, opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same seed produced different draws")
	}

	opts.Seed = 100
	c, err := NewGibbs(nil).Sample(context.Background(), spec, opts)
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if reflect.DeepEqual(a, c) {
		t.Fatal("different seeds produced identical draws")
	}
}

func TestSampleBudgetExceeded(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 0))
	returns := shiftReturns(rng, []int{30, 30}, []float64{0.05, -0.05}, 0.02)
	spec := models.ModelSpec{Returns: returns, Breaks: 1, MuPriorSD: 0.1, SigmaPriorSD: 0.1}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	post, err := NewGibbs(nil).Sample(ctx, spec, models.SampleOptions{Draws: 100, Tune: 50, Chains: 2, Seed: 1})
	if post != nil {
		t.Fatal("expected no posterior after blown budget")
	}
	if !errors.Is(err, models.ErrBudgetExceeded) {
		t.Fatalf("err = %v, want ErrBudgetExceeded", err)
	}
}

func TestSampleCancelIsNotBudget(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 0))
	returns := shiftReturns(rng, []int{30, 30}, []float64{0.05, -0.05}, 0.02)
	spec := models.ModelSpec{Returns: returns, Breaks: 1, MuPriorSD: 0.1, SigmaPriorSD: 0.1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGibbs(nil).Sample(ctx, spec, models.SampleOptions{Draws: 100, Tune: 50, Chains: 2, Seed: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, models.ErrBudgetExceeded) {
		t.Fatal("external cancel must not report a blown budget")
	}
}

func TestSampleReportsProgress(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 0))
	returns := shiftReturns(rng, []int{15, 15}, []float64{0.05, -0.05}, 0.02)
	spec := models.ModelSpec{Returns: returns, Breaks: 1, MuPriorSD: 0.1, SigmaPriorSD: 0.1}

	var mu sync.Mutex
	var got []models.Progress
	opts := models.SampleOptions{
		Draws:  200,
		Tune:   100,
		Chains: 1,
		Seed:   1,
		OnProgress: func(p models.Progress) {
			mu.Lock()
			got = append(got, p)
			mu.Unlock()
		},
	}

	if _, err := NewGibbs(nil).Sample(context.Background(), spec, opts); err != nil {
		t.Fatalf("Sample: %v", err)
	}

	want := []models.Progress{
		{Chain: 0, Phase: "tune", Done: 100, Total: 100},
		{Chain: 0, Phase: "draw", Done: 100, Total: 200},
		{Chain: 0, Phase: "draw", Done: 200, Total: 200},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("progress = %+v, want %+v", got, want)
	}
}

func TestSampleRejectsBadSpec(t *testing.T) {
	_, err := NewGibbs(nil).Sample(context.Background(), models.ModelSpec{Returns: []float64{0.01, 0.02}, Breaks: 0}, models.SampleOptions{})
	if err == nil {
		t.Fatal("expected error for zero change points")
	}
	_, err = NewGibbs(nil).Sample(context.Background(), models.ModelSpec{Returns: []float64{0.01}, Breaks: 1}, models.SampleOptions{})
	if !errors.Is(err, models.ErrMalformedInput) {
		t.Fatalf("err = %v, want ErrMalformedInput for a one-point series", err)
	}
}
