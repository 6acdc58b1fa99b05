package preprocess

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"BrentShift/internal/domain/models"
)

// Prepare validates a raw price series and derives its log returns.
// The input is not mutated; the returned dataset owns sorted copies.
// Prices must be strictly positive and at least two observations long.
func Prepare(series models.PriceSeries) (models.Dataset, error) {
	if len(series) < 2 {
		return models.Dataset{}, fmt.Errorf("%w: need at least 2 prices, got %d", models.ErrMalformedInput, len(series))
	}

	sorted := make(models.PriceSeries, len(series))
	copy(sorted, series)
	// Stable keeps input order for same-day observations.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	for i, p := range sorted {
		if p.Date.IsZero() {
			return models.Dataset{}, fmt.Errorf("%w: row %d has no date", models.ErrMalformedInput, i)
		}
		if p.Price <= 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			return models.Dataset{}, fmt.Errorf("%w: non-positive price %v on %s",
				models.ErrMalformedInput, p.Price, p.Date.Format("2006-01-02"))
		}
	}

	return models.Dataset{
		Prices:  sorted,
		Returns: LogReturns(sorted.Prices()),
	}, nil
}

// LogReturns computes r_i = ln(p_i+1 / p_i). The result is one element
// shorter than the input; nil if there are fewer than two prices.
func LogReturns(prices []float64) models.LogReturnSeries {
	if len(prices) < 2 {
		return nil
	}
	out := make(models.LogReturnSeries, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		out = append(out, math.Log(prices[i]/prices[i-1]))
	}
	return out
}

// RollingVolatility computes the rolling sample standard deviation of the
// returns over the given window. Element i covers returns [i, i+window).
// Returns nil when the series is shorter than the window.
func RollingVolatility(returns []float64, window int) []float64 {
	if window <= 1 || len(returns) < window {
		return nil
	}
	out := make([]float64, 0, len(returns)-window+1)
	for i := 0; i+window <= len(returns); i++ {
		out = append(out, stat.StdDev(returns[i:i+window], nil))
	}
	return out
}
