package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"BrentShift/internal/domain/models"
	domrepo "BrentShift/internal/domain/repository"
	"BrentShift/pkg/config"
	applogger "BrentShift/pkg/logger"
)

type fakePriceSource struct {
	series models.PriceSeries
	err    error
}

func (f *fakePriceSource) Load(ctx context.Context) (models.PriceSeries, error) {
	return f.series, f.err
}

type fakeEventSource struct{ evs []models.Event }

func (f *fakeEventSource) Load(ctx context.Context) ([]models.Event, error) { return f.evs, nil }

type fakeSampler struct {
	post    *models.Posterior
	err     error
	gotSpec models.ModelSpec
	gotOpts models.SampleOptions
}

func (f *fakeSampler) Sample(ctx context.Context, spec models.ModelSpec, opts models.SampleOptions) (*models.Posterior, error) {
	f.gotSpec = spec
	f.gotOpts = opts
	return f.post, f.err
}

type memStore struct {
	saved     *models.AnalysisResult
	seriesRun string
	series    models.PriceSeries
}

func (m *memStore) Init(ctx context.Context) error { return nil }
func (m *memStore) Save(ctx context.Context, res *models.AnalysisResult) error {
	m.saved = res
	return nil
}
func (m *memStore) SaveSeries(ctx context.Context, runID string, s models.PriceSeries) error {
	m.seriesRun = runID
	m.series = s
	return nil
}
func (m *memStore) Latest(ctx context.Context) (*models.AnalysisResult, error) {
	if m.saved == nil {
		return nil, domrepo.ErrNoResult
	}
	return m.saved, nil
}
func (m *memStore) Health(ctx context.Context) error { return nil }
func (m *memStore) Close() error                     { return nil }

type memPublisher struct{ published []*models.AnalysisResult }

func (m *memPublisher) PublishResult(ctx context.Context, res *models.AnalysisResult) error {
	m.published = append(m.published, res)
	return nil
}
func (m *memPublisher) Close() error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordRun(string)                   {}
func (nopMetrics) RecordError(string)                 {}
func (nopMetrics) RecordStageLatency(string, float64) {}
func (nopMetrics) RecordDraws(int)                    {}
func (nopMetrics) RecordMaxRHat(float64)              {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{
		Level:  "error",
		Format: "json",
		Output: filepath.Join(t.TempDir(), "test.log"),
	})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Analysis.ChangePoints = 1
	cfg.Analysis.Draws = 8
	cfg.Analysis.Tune = 4
	cfg.Analysis.Chains = 2
	cfg.Analysis.Seed = 1
	cfg.Analysis.RHatThreshold = 1.1
	cfg.Analysis.EventWindowDays = 7
	cfg.Analysis.MinSegment = 2
	cfg.Analysis.VolatilityWindow = 30
	return cfg
}

// fixtureSeries is five consecutive trading days with a crash after day 3.
func fixtureSeries() models.PriceSeries {
	prices := []float64{100, 110, 90, 50, 45}
	out := make(models.PriceSeries, len(prices))
	for i, p := range prices {
		out[i] = models.PricePoint{
			Date:  time.Date(2020, 3, 2+i, 0, 0, 0, 0, time.UTC),
			Price: p,
		}
	}
	return out
}

// constantPosterior pins every chain to the same draw, so summaries are exact
// and the convergence check passes through its constant-chain path.
func constantPosterior(chains, draws, tau int, mu []float64, sigma float64) *models.Posterior {
	post := &models.Posterior{Breaks: 1, Chains: make([]models.ChainDraws, chains)}
	for c := 0; c < chains; c++ {
		ch := models.ChainDraws{}
		for d := 0; d < draws; d++ {
			ch.Tau = append(ch.Tau, []int{tau})
			ch.Mu = append(ch.Mu, append([]float64(nil), mu...))
			ch.Sigma = append(ch.Sigma, sigma)
		}
		post.Chains[c] = ch
	}
	return post
}

func TestPipelineRun(t *testing.T) {
	sampler := &fakeSampler{post: constantPosterior(2, 8, 2, []float64{0.05, -0.35}, 0.02)}
	store := &memStore{}
	pub := &memPublisher{}
	holder := NewHolder()
	evs := []models.Event{{
		Date:        time.Date(2020, 3, 6, 0, 0, 0, 0, time.UTC),
		Description: "OPEC+ deal collapses",
	}}

	pipe := NewPipeline(
		&fakePriceSource{series: fixtureSeries()},
		&fakeEventSource{evs: evs},
		sampler,
		store,
		pub,
		nopMetrics{},
		holder,
		nil,
		testConfig(),
		nil,
		testLogger(t),
	)

	res, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.RunID == "" {
		t.Error("run id not assigned")
	}
	if res.Observations != 4 || res.FirstDate != "2020-03-02" || res.LastDate != "2020-03-06" {
		t.Errorf("window = %d obs %s..%s", res.Observations, res.FirstDate, res.LastDate)
	}
	if sampler.gotSpec.Breaks != 1 || len(sampler.gotSpec.Returns) != 4 {
		t.Errorf("sampler got spec %+v", sampler.gotSpec)
	}
	if sampler.gotOpts.Draws != 8 || sampler.gotOpts.Chains != 2 {
		t.Errorf("sampler got opts %+v", sampler.gotOpts)
	}

	if len(res.ChangePoints) != 1 {
		t.Fatalf("change points = %d, want 1", len(res.ChangePoints))
	}
	cp := res.ChangePoints[0]
	// modal return index 2 lands on the price date one step later
	if cp.Index != 2 || cp.Date != "2020-03-05" {
		t.Errorf("change point = %+v, want index 2 on 2020-03-05", cp)
	}
	if cp.EventDate != "2020-03-06" || cp.EventDescription != "OPEC+ deal collapses" {
		t.Errorf("attribution = %q %q", cp.EventDate, cp.EventDescription)
	}
	if cp.MeanBefore != 0.05 || cp.MeanAfter != -0.35 {
		t.Errorf("segment means = %v/%v", cp.MeanBefore, cp.MeanAfter)
	}
	if cp.PriceChangePct > -30 || cp.PriceChangePct < -40 {
		t.Errorf("price impact = %v%%, want a drop in the thirties", cp.PriceChangePct)
	}

	if !res.Diagnostics.Converged {
		t.Errorf("constant chains reported unconverged: %+v", res.Diagnostics)
	}
	if got := res.Diagnostics.SegmentSizes; len(got) != 2 || got[0] != 2 || got[1] != 2 {
		t.Errorf("segment sizes = %v, want [2 2]", got)
	}

	// four returns are too few for the Dickey-Fuller check; the run carries on
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "stationarity check failed") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want a stationarity notice", res.Warnings)
	}

	if store.saved != res {
		t.Error("result not persisted")
	}
	if store.seriesRun != res.RunID || len(store.series) != 5 {
		t.Errorf("series archive = %q with %d rows", store.seriesRun, len(store.series))
	}
	if len(pub.published) != 1 {
		t.Errorf("published %d announcements, want 1", len(pub.published))
	}
	if !holder.Ready() || holder.Get().Result != res {
		t.Error("holder not updated with the finished run")
	}
	if len(holder.Get().Events) != 1 {
		t.Errorf("holder events = %d, want 1", len(holder.Get().Events))
	}
}

func TestPipelineUnconvergedWarning(t *testing.T) {
	// two chains pinned to different break locations cannot be converged
	post := &models.Posterior{Breaks: 1, Chains: make([]models.ChainDraws, 2)}
	taus := []int{1, 3}
	for c := 0; c < 2; c++ {
		ch := models.ChainDraws{}
		for d := 0; d < 8; d++ {
			ch.Tau = append(ch.Tau, []int{taus[c]})
			ch.Mu = append(ch.Mu, []float64{0.05, -0.35})
			ch.Sigma = append(ch.Sigma, 0.02)
		}
		post.Chains[c] = ch
	}

	pipe := NewPipeline(
		&fakePriceSource{series: fixtureSeries()},
		&fakeEventSource{},
		&fakeSampler{post: post},
		&memStore{},
		&memPublisher{},
		nopMetrics{},
		NewHolder(),
		nil,
		testConfig(),
		nil,
		testLogger(t),
	)

	res, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Diagnostics.Converged {
		t.Fatal("split chains reported converged")
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "convergence not reached") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want a convergence notice", res.Warnings)
	}
	if len(res.ChangePoints) != 1 || res.ChangePoints[0].EventDate != models.NoEventDate {
		t.Errorf("change points = %+v, want the no-event sentinel", res.ChangePoints)
	}
}

func TestPipelineSamplerFailure(t *testing.T) {
	wantErr := errors.New("worker down")
	store := &memStore{}
	pipe := NewPipeline(
		&fakePriceSource{series: fixtureSeries()},
		&fakeEventSource{},
		&fakeSampler{err: wantErr},
		store,
		&memPublisher{},
		nopMetrics{},
		NewHolder(),
		nil,
		testConfig(),
		nil,
		testLogger(t),
	)

	_, err := pipe.Run(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want the sampler failure", err)
	}
	if store.saved != nil {
		t.Error("failed run must not persist a result")
	}
}

func TestPipelineBadSeries(t *testing.T) {
	series := models.PriceSeries{
		{Date: time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC), Price: 100},
		{Date: time.Date(2020, 3, 3, 0, 0, 0, 0, time.UTC), Price: -5},
	}
	pipe := NewPipeline(
		&fakePriceSource{series: series},
		&fakeEventSource{},
		&fakeSampler{},
		&memStore{},
		&memPublisher{},
		nopMetrics{},
		NewHolder(),
		nil,
		testConfig(),
		nil,
		testLogger(t),
	)

	_, err := pipe.Run(context.Background())
	if !errors.Is(err, models.ErrMalformedInput) {
		t.Fatalf("err = %v, want ErrMalformedInput for a negative price", err)
	}
}
