package changepoint

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"

	"BrentShift/internal/domain/models"
)

func testSpec(returns []float64, k int) models.ModelSpec {
	return models.ModelSpec{
		Returns:      returns,
		Breaks:       k,
		MuPriorSD:    0.1,
		SigmaPriorSD: 0.1,
	}
}

func stepReturns(n, breakAt int, before, after float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i < breakAt {
			out[i] = before
		} else {
			out[i] = after
		}
	}
	return out
}

func TestNewValidation(t *testing.T) {
	if _, err := New(testSpec([]float64{0.1}, 1)); err == nil {
		t.Errorf("expected error for short series")
	}
	if _, err := New(testSpec([]float64{0.1, 0.2, 0.3}, 0)); err == nil {
		t.Errorf("expected error for zero breaks")
	}
	bad := testSpec([]float64{0.1, 0.2, 0.3}, 1)
	bad.MuPriorSD = 0
	if _, err := New(bad); err == nil {
		t.Errorf("expected error for zero prior scale")
	}
}

func TestSegmentOf(t *testing.T) {
	sorted := []int{3, 5}
	cases := []struct{ i, want int }{
		{0, 0}, {2, 0}, {3, 1}, {4, 1}, {5, 2}, {9, 2},
	}
	for _, c := range cases {
		if got := SegmentOf(c.i, sorted); got != c.want {
			t.Errorf("SegmentOf(%d): got %d want %d", c.i, got, c.want)
		}
	}
	// duplicate breaks skip the middle segment entirely
	if got := SegmentOf(4, []int{4, 4}); got != 2 {
		t.Errorf("duplicate breaks: got %d want 2", got)
	}
	if got := SegmentOf(3, []int{4, 4}); got != 0 {
		t.Errorf("duplicate breaks before: got %d want 0", got)
	}
}

func TestSegmentSizes(t *testing.T) {
	cases := []struct {
		n      int
		sorted []int
		want   []int
	}{
		{10, []int{3, 5}, []int{3, 2, 5}},
		{10, []int{4, 4}, []int{4, 0, 6}},
		{6, []int{0}, []int{0, 6}},
		{6, []int{5}, []int{5, 1}},
	}
	for _, c := range cases {
		got := SegmentSizes(c.n, c.sorted)
		if len(got) != len(c.want) {
			t.Fatalf("n=%d sorted=%v: got %v want %v", c.n, c.sorted, got, c.want)
		}
		total := 0
		for j := range got {
			if got[j] != c.want[j] {
				t.Errorf("n=%d sorted=%v: got %v want %v", c.n, c.sorted, got, c.want)
				break
			}
			total += got[j]
		}
		if total != c.n {
			t.Errorf("n=%d sorted=%v: sizes sum to %d", c.n, c.sorted, total)
		}
	}
}

func TestSortedIsIdempotentAndCopies(t *testing.T) {
	in := []int{7, 2, 5}
	once := Sorted(in)
	twice := Sorted(once)
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("sorting not idempotent: %v vs %v", once, twice)
		}
	}
	if in[0] != 7 || in[1] != 2 || in[2] != 5 {
		t.Errorf("input mutated: %v", in)
	}
}

func TestLogPosteriorSupport(t *testing.T) {
	m, err := New(testSpec(stepReturns(16, 8, 0.1, -0.1), 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mu := []float64{0.1, -0.1}

	if lp := m.LogPosterior([]int{8}, mu, 0); !math.IsInf(lp, -1) {
		t.Errorf("sigma=0 should be -Inf, got %v", lp)
	}
	if lp := m.LogPosterior([]int{-1}, mu, 0.05); !math.IsInf(lp, -1) {
		t.Errorf("tau=-1 should be -Inf, got %v", lp)
	}
	if lp := m.LogPosterior([]int{16}, mu, 0.05); !math.IsInf(lp, -1) {
		t.Errorf("tau=n should be -Inf, got %v", lp)
	}
	if lp := m.LogPosterior([]int{8}, mu, 0.05); math.IsInf(lp, 0) || math.IsNaN(lp) {
		t.Errorf("interior point should be finite, got %v", lp)
	}
	// unsorted tau must evaluate like its sorted version
	m2, _ := New(testSpec(stepReturns(16, 8, 0.1, -0.1), 2))
	mu3 := []float64{0.1, 0.0, -0.1}
	a := m2.LogPosterior([]int{12, 4}, mu3, 0.05)
	b := m2.LogPosterior([]int{4, 12}, mu3, 0.05)
	if math.Abs(a-b) > 1e-12 {
		t.Errorf("order of tau must not matter: %v vs %v", a, b)
	}
}

func TestLogPosteriorPrefersTruth(t *testing.T) {
	m, err := New(testSpec(stepReturns(16, 8, 0.1, -0.1), 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	truth := m.LogPosterior([]int{8}, []float64{0.1, -0.1}, 0.05)
	wrongBreak := m.LogPosterior([]int{3}, []float64{0.1, -0.1}, 0.05)
	swappedMeans := m.LogPosterior([]int{8}, []float64{-0.1, 0.1}, 0.05)
	if truth <= wrongBreak {
		t.Errorf("true break should beat wrong break: %v <= %v", truth, wrongBreak)
	}
	if truth <= swappedMeans {
		t.Errorf("true means should beat swapped means: %v <= %v", truth, swappedMeans)
	}
}

func TestLogPosteriorDuplicateBreaksFinite(t *testing.T) {
	m, err := New(testSpec(stepReturns(16, 8, 0.1, -0.1), 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lp := m.LogPosterior([]int{8, 8}, []float64{0.1, 0.0, -0.1}, 0.05)
	if math.IsInf(lp, 0) || math.IsNaN(lp) {
		t.Errorf("duplicate breaks should stay finite, got %v", lp)
	}
}

// The prefix-sum evaluation must agree with a direct per-observation sum.
func TestLogPosteriorMatchesNaive(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.03, 0.05, -0.04, 0.01, -0.06, 0.02, 0.0, -0.02, 0.04, -0.03}
	spec := testSpec(returns, 2)
	m, err := New(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tau := []int{4, 9}
	mu := []float64{0.01, -0.02, 0.015}
	sigma := 0.03

	lik := distuv.Normal{}
	naive := 0.0
	for i, r := range returns {
		lik.Mu = mu[SegmentOf(i, tau)]
		lik.Sigma = sigma
		naive += lik.LogProb(r)
	}
	prior := distuv.Normal{Mu: 0, Sigma: spec.MuPriorSD}
	for _, v := range mu {
		naive += prior.LogProb(v)
	}
	naive += math.Ln2 + distuv.Normal{Mu: 0, Sigma: spec.SigmaPriorSD}.LogProb(sigma)
	naive -= 2 * math.Log(float64(len(returns)))

	got := m.LogPosterior(tau, mu, sigma)
	if math.Abs(got-naive) > 1e-9 {
		t.Errorf("prefix-sum lp %v disagrees with naive %v", got, naive)
	}
}
