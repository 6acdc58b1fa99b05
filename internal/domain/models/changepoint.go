package models

import "time"

// ChangePoint is one detected structural break.
type ChangePoint struct {
	Index int       // modal posterior value, index into the log-return series
	Date  time.Time // price date the break takes effect (return index + 1)
}

// SegmentImpact quantifies the mean-level shift across one change point.
type SegmentImpact struct {
	Segment        int     // segment index before the break
	MeanBefore     float64 // posterior mean log return before
	MeanAfter      float64 // posterior mean log return after
	PriceChangePct float64 // (e^after - e^before) / e^before * 100
}

// Summary holds the point estimates extracted from a posterior.
type Summary struct {
	ChangePoints []ChangePoint
	SegmentMeans []float64       // K+1 posterior means
	Impacts      []SegmentImpact // K entries, aligned with ChangePoints
	SigmaMean    float64
}
