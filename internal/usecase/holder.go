package usecase

import (
	"sync"

	"BrentShift/internal/domain/models"
)

// Snapshot is everything the serving layer reads: the latest result plus the
// series and events it was computed from.
type Snapshot struct {
	Result *models.AnalysisResult
	Prices models.PriceSeries
	Events []models.Event
}

// Holder hands the latest snapshot from the pipeline to concurrent readers.
// Handlers never see a half-updated run: the whole snapshot swaps at once.
type Holder struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewHolder() *Holder {
	return &Holder{}
}

func (h *Holder) Set(snap Snapshot) {
	h.mu.Lock()
	h.snap = snap
	h.mu.Unlock()
}

func (h *Holder) Get() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}

// Ready reports whether a run has completed or been restored yet.
func (h *Holder) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap.Result != nil
}
