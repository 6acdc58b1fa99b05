package changepoint

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"BrentShift/internal/domain/models"
)

// Summarize extracts point estimates from a posterior: the modal index per
// break, its price date, posterior means per segment, and the implied price
// change across each break. Pure function of its inputs.
func Summarize(ds models.Dataset, post *models.Posterior) (models.Summary, error) {
	if post == nil || post.TotalDraws() == 0 {
		return models.Summary{}, fmt.Errorf("%w: nothing to summarize", models.ErrEmptyPosterior)
	}

	k := post.Breaks
	sum := models.Summary{
		ChangePoints: make([]models.ChangePoint, k),
		SegmentMeans: make([]float64, k+1),
		Impacts:      make([]models.SegmentImpact, k),
	}

	for i := 0; i < k; i++ {
		idx := ModalValue(post.PooledTau(i))
		if idx < 0 || idx >= len(ds.Returns) {
			return models.Summary{}, fmt.Errorf("modal break index %d outside return series of length %d", idx, len(ds.Returns))
		}
		sum.ChangePoints[i] = models.ChangePoint{
			Index: idx,
			// the return at idx is realized on price date idx+1
			Date: ds.DateOf(idx),
		}
	}

	for j := 0; j <= k; j++ {
		sum.SegmentMeans[j] = stat.Mean(post.PooledMu(j), nil)
	}
	sum.SigmaMean = stat.Mean(post.PooledSigma(), nil)

	for i := 0; i < k; i++ {
		before := sum.SegmentMeans[i]
		after := sum.SegmentMeans[i+1]
		sum.Impacts[i] = models.SegmentImpact{
			Segment:        i,
			MeanBefore:     before,
			MeanAfter:      after,
			PriceChangePct: (math.Exp(after) - math.Exp(before)) / math.Exp(before) * 100,
		}
	}

	return sum, nil
}

// ModalValue returns the most frequent value of draws. Ties resolve to the
// smallest value, matching bincount-then-argmax behavior. draws must be
// non-negative and non-empty.
func ModalValue(draws []int) int {
	maxv := 0
	for _, d := range draws {
		if d > maxv {
			maxv = d
		}
	}
	counts := make([]int, maxv+1)
	for _, d := range draws {
		counts[d]++
	}
	best, bestCount := 0, -1
	for v, c := range counts {
		if c > bestCount {
			best, bestCount = v, c
		}
	}
	return best
}
