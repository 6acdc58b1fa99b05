package models

import "time"

// PricePoint is one observed daily closing price.
type PricePoint struct {
	Date  time.Time
	Price float64
}

// PriceSeries is a date-ascending daily price series. Treated as read-only
// once preprocessing has produced it.
type PriceSeries []PricePoint

// Dates returns a copy of the observation dates in series order.
func (s PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s))
	for i, p := range s {
		out[i] = p.Date
	}
	return out
}

// Prices returns a copy of the price values in series order.
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Price
	}
	return out
}

// LogReturnSeries holds ln(P_t / P_t-1). Element i is the return realized on
// price date i+1, so the series is one shorter than its price series.
type LogReturnSeries []float64

// Dataset pairs a price series with its derived log returns so the one-off
// index shift between them stays explicit instead of living in callers' heads.
type Dataset struct {
	Prices  PriceSeries
	Returns LogReturnSeries
}

// DateOf returns the price date on which return index i was realized.
func (d Dataset) DateOf(i int) time.Time {
	return d.Prices[i+1].Date
}
