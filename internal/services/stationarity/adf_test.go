package stationarity

import (
	"errors"
	"math/rand/v2"
	"testing"

	"BrentShift/internal/domain/models"
)

func TestCheckStationaryReturns(t *testing.T) {
	rng := rand.New(rand.NewPCG(17, 0))
	returns := make([]float64, 500)
	for i := range returns {
		returns[i] = rng.NormFloat64() * 0.02
	}

	st, err := Check(returns)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !st.Stationary {
		t.Errorf("white-noise returns not flagged stationary, statistic %v", st.Statistic)
	}
	if st.Statistic > -5 {
		t.Errorf("statistic = %v, want strongly negative for white noise", st.Statistic)
	}
	if st.Lag < 0 {
		t.Errorf("negative chosen lag %d", st.Lag)
	}
}

func TestCheckUnitRootPrices(t *testing.T) {
	// log-price-like series: a random walk with small drift
	rng := rand.New(rand.NewPCG(23, 0))
	prices := make([]float64, 400)
	level := 3.0
	for i := range prices {
		level += 0.01 + rng.NormFloat64()*0.02
		prices[i] = level
	}

	st, err := Check(prices)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if st.Stationary {
		t.Errorf("random walk flagged stationary, statistic %v vs 5%% value %v", st.Statistic, st.CriticalValues["5%"])
	}
}

func TestCheckCriticalValues(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 0))
	xs := make([]float64, 200)
	for i := range xs {
		xs[i] = rng.NormFloat64()
	}

	st, err := Check(xs)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	cv1, cv5, cv10 := st.CriticalValues["1%"], st.CriticalValues["5%"], st.CriticalValues["10%"]
	if len(st.CriticalValues) != 3 {
		t.Fatalf("critical values = %v, want 1%%/5%%/10%%", st.CriticalValues)
	}
	if !(cv1 < cv5 && cv5 < cv10 && cv10 < 0) {
		t.Errorf("critical values not ordered: 1%%=%v 5%%=%v 10%%=%v", cv1, cv5, cv10)
	}
	// finite-sample values sit below the asymptotic ones
	if cv5 > -2.86154 {
		t.Errorf("5%% value %v above asymptotic limit", cv5)
	}
}

func TestCheckRejectsBadSeries(t *testing.T) {
	short := []float64{1, 2, 3}
	if _, err := Check(short); !errors.Is(err, models.ErrMalformedInput) {
		t.Fatalf("short series err = %v, want ErrMalformedInput", err)
	}

	flat := make([]float64, 100)
	for i := range flat {
		flat[i] = 2.5
	}
	if _, err := Check(flat); !errors.Is(err, models.ErrMalformedInput) {
		t.Fatalf("constant series err = %v, want ErrMalformedInput", err)
	}
}
