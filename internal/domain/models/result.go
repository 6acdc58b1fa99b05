package models

import "time"

// ParamDiagnostic carries convergence statistics of one monitored parameter.
type ParamDiagnostic struct {
	Name string  `json:"name"`
	RHat float64 `json:"rhat"`
	ESS  float64 `json:"ess"`
}

// Stationarity is the outcome of the augmented Dickey-Fuller pre-model check.
type Stationarity struct {
	Statistic      float64            `json:"statistic"`
	Lag            int                `json:"lag"`
	CriticalValues map[string]float64 `json:"critical_values"`
	Stationary     bool               `json:"stationary"` // unit root rejected at 5%
}

// Diagnostics aggregates everything a run reports about its own quality.
type Diagnostics struct {
	Params             []ParamDiagnostic `json:"params"`
	MaxRHat            float64           `json:"max_rhat"`
	Converged          bool              `json:"converged"`
	SegmentSizes       []int             `json:"segment_sizes"`
	DegenerateSegments []int             `json:"degenerate_segments,omitempty"`
	Stationarity       *Stationarity     `json:"stationarity,omitempty"`
	RollingVolatility  float64           `json:"rolling_volatility"` // last full window
}

// ChangePointRecord is a fully attributed change point as persisted and
// served. Dates are plain ISO days; EventDate may be the NoEventDate sentinel.
type ChangePointRecord struct {
	Index            int     `json:"index"`
	Date             string  `json:"change_point_date"`
	MeanBefore       float64 `json:"mean_before"`
	MeanAfter        float64 `json:"mean_after"`
	PriceChangePct   float64 `json:"price_change_pct"`
	EventDate        string  `json:"event_date"`
	EventDescription string  `json:"event_description"`
}

// AnalysisResult is the single structured artifact of one pipeline run.
// The pipeline writes it once; the serving layer only reads it.
type AnalysisResult struct {
	RunID          string              `json:"run_id"`
	GeneratedAt    time.Time           `json:"generated_at"`
	Breaks         int                 `json:"breaks"`
	Draws          int                 `json:"draws"`
	Tune           int                 `json:"tune"`
	Chains         int                 `json:"chains"`
	Seed           uint64              `json:"seed"`
	Observations   int                 `json:"observations"` // log returns modeled
	FirstDate      string              `json:"first_date"`
	LastDate       string              `json:"last_date"`
	ChangePoints   []ChangePointRecord `json:"change_points"`
	SegmentMeans   []float64           `json:"segment_means"`
	SigmaMean      float64             `json:"sigma_mean"`
	Diagnostics    Diagnostics         `json:"diagnostics"`
	Warnings       []string            `json:"warnings,omitempty"`
	ElapsedSeconds float64             `json:"elapsed_seconds"`
}
