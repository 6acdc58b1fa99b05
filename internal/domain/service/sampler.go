package service

import (
	"context"

	"BrentShift/internal/domain/models"
)

// PosteriorSampler draws from the posterior of a change-point model. The
// pipeline depends on this interface only, so the sampling backend can be
// swapped (in-process walker, remote service, fixture in tests).
type PosteriorSampler interface {
	Sample(ctx context.Context, spec models.ModelSpec, opts models.SampleOptions) (*models.Posterior, error)
}
