package repository

import (
	"context"
	"errors"

	"BrentShift/internal/domain/models"
)

// ErrNoResult is returned by ResultStore.Latest when no run has been persisted yet.
var ErrNoResult = errors.New("no analysis result persisted")

// PriceSource loads the raw price series to analyze.
type PriceSource interface {
	Load(ctx context.Context) (models.PriceSeries, error)
}

// EventSource loads the candidate events for change-point attribution.
type EventSource interface {
	Load(ctx context.Context) ([]models.Event, error)
}

// ResultStore persists one analysis result per run and serves the latest back.
type ResultStore interface {
	Init(ctx context.Context) error // ensure files/tables exist
	Save(ctx context.Context, res *models.AnalysisResult) error
	SaveSeries(ctx context.Context, runID string, s models.PriceSeries) error
	Latest(ctx context.Context) (*models.AnalysisResult, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// Publisher announces completed runs to downstream consumers.
type Publisher interface {
	PublishResult(ctx context.Context, res *models.AnalysisResult) error
	Close() error
}

// Metrics records pipeline health indicators.
type Metrics interface {
	RecordRun(status string)
	RecordError(kind string)
	RecordStageLatency(stage string, seconds float64)
	RecordDraws(n int)
	RecordMaxRHat(v float64)
}
