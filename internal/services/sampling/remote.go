package sampling

import (
	"context"
	"fmt"
	"time"

	"BrentShift/internal/domain/models"
	"BrentShift/internal/domain/service"
	"BrentShift/internal/services/changepoint"
	xhttp "BrentShift/pkg/http"
)

// Remote delegates posterior sampling to an external HTTP worker that fits
// the same model (typically a PyMC process). The worker receives the model
// and run options as JSON and answers with per-chain draws.
type Remote struct {
	baseURL string
	client  *xhttp.Client
}

// NewRemote builds a client for the worker at baseURL. The timeout bounds the
// whole sampling call, so it should cover the worker's full run, not a
// single round trip.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Remote{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

var _ service.PosteriorSampler = (*Remote)(nil)

type sampleRequest struct {
	Returns      []float64 `json:"returns"`
	Breaks       int       `json:"breaks"`
	MuPriorSD    float64   `json:"mu_prior_sd"`
	SigmaPriorSD float64   `json:"sigma_prior_sd"`
	Draws        int       `json:"draws"`
	Tune         int       `json:"tune"`
	Chains       int       `json:"chains"`
	Seed         uint64    `json:"seed"`
}

type sampleResponse struct {
	Chains []struct {
		Tau   [][]int     `json:"tau"`
		Mu    [][]float64 `json:"mu"`
		Sigma []float64   `json:"sigma"`
	} `json:"chains"`
}

// Sample posts the model to the worker and converts its reply. Tau rows are
// re-sorted locally so the posterior upholds the ascending-row contract no
// matter what the worker sends.
func (r *Remote) Sample(ctx context.Context, spec models.ModelSpec, opts models.SampleOptions) (*models.Posterior, error) {
	if r.baseURL == "" {
		return nil, fmt.Errorf("remote sampler url not configured")
	}
	req := sampleRequest{
		Returns:      spec.Returns,
		Breaks:       spec.Breaks,
		MuPriorSD:    spec.MuPriorSD,
		SigmaPriorSD: spec.SigmaPriorSD,
		Draws:        opts.Draws,
		Tune:         opts.Tune,
		Chains:       opts.Chains,
		Seed:         opts.Seed,
	}
	var resp sampleResponse
	err := r.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    r.baseURL + "/sample",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: req,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("remote sample: %w", err)
	}
	if len(resp.Chains) == 0 {
		return nil, fmt.Errorf("%w: remote sampler returned no chains", models.ErrEmptyPosterior)
	}

	post := &models.Posterior{
		Breaks: spec.Breaks,
		Chains: make([]models.ChainDraws, len(resp.Chains)),
	}
	for i, c := range resp.Chains {
		tau := make([][]int, len(c.Tau))
		for j, row := range c.Tau {
			if len(row) != spec.Breaks {
				return nil, fmt.Errorf("remote sample: chain %d draw %d has %d break indices, want %d", i, j, len(row), spec.Breaks)
			}
			tau[j] = changepoint.Sorted(row)
		}
		post.Chains[i] = models.ChainDraws{Tau: tau, Mu: c.Mu, Sigma: c.Sigma}
	}
	return post, nil
}
