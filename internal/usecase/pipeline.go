package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"BrentShift/internal/domain/models"
	domrepo "BrentShift/internal/domain/repository"
	domsvc "BrentShift/internal/domain/service"
	"BrentShift/internal/services/changepoint"
	"BrentShift/internal/services/diagnostics"
	"BrentShift/internal/services/events"
	"BrentShift/internal/services/preprocess"
	"BrentShift/internal/services/report"
	"BrentShift/internal/services/stationarity"
	"BrentShift/pkg/config"
	applogger "BrentShift/pkg/logger"
	"BrentShift/pkg/util"
)

// Pipeline runs one full analysis: load, preprocess, sample, diagnose,
// summarize, attribute, persist, announce. Runs are serialized; a second
// caller blocks until the active run finishes.
type Pipeline struct {
	prices   domrepo.PriceSource
	events   domrepo.EventSource
	sampler  domsvc.PosteriorSampler
	store    domrepo.ResultStore
	pub      domrepo.Publisher
	metrics  domrepo.Metrics
	holder   *Holder
	reporter *report.Writer
	cfg      *config.Config
	progress func(models.Progress)
	l        *applogger.Logger

	mu sync.Mutex
}

func NewPipeline(
	prices domrepo.PriceSource,
	eventSource domrepo.EventSource,
	sampler domsvc.PosteriorSampler,
	store domrepo.ResultStore,
	pub domrepo.Publisher,
	metrics domrepo.Metrics,
	holder *Holder,
	reporter *report.Writer,
	cfg *config.Config,
	progress func(models.Progress),
	l *applogger.Logger,
) *Pipeline {
	return &Pipeline{
		prices:   prices,
		events:   eventSource,
		sampler:  sampler,
		store:    store,
		pub:      pub,
		metrics:  metrics,
		holder:   holder,
		reporter: reporter,
		cfg:      cfg,
		progress: progress,
		l:        l,
	}
}

// Run executes one analysis and returns the persisted result.
func (p *Pipeline) Run(ctx context.Context) (*models.AnalysisResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runID := uuid.NewString()
	started := time.Now()
	p.l.Info("analysis run starting",
		applogger.String("run_id", runID),
		applogger.Int("change_points", p.cfg.Analysis.ChangePoints),
	)

	res, err := p.run(ctx, runID)
	if err != nil {
		p.metrics.RecordRun("error")
		p.l.Error("analysis run failed",
			applogger.String("run_id", runID),
			applogger.Duration("elapsed", time.Since(started)),
			applogger.Error(err),
		)
		return nil, err
	}

	res.ElapsedSeconds = time.Since(started).Seconds()
	p.metrics.RecordRun("ok")
	p.l.Info("analysis run finished",
		applogger.String("run_id", runID),
		applogger.Int("change_points", len(res.ChangePoints)),
		applogger.Bool("converged", res.Diagnostics.Converged),
		applogger.Duration("elapsed", time.Since(started)),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, runID string) (*models.AnalysisResult, error) {
	ac := p.cfg.Analysis

	series, err := p.stageLoadPrices(ctx)
	if err != nil {
		return nil, err
	}
	evs, err := p.events.Load(ctx)
	if err != nil {
		p.metrics.RecordError("load_events")
		return nil, fmt.Errorf("load events: %w", err)
	}

	ds, err := p.stagePrepare(series)
	if err != nil {
		return nil, err
	}

	var warnings []string
	stat, statErr := stationarity.Check(ds.Returns)
	if statErr != nil {
		warnings = append(warnings, fmt.Sprintf("stationarity check failed: %v", statErr))
		p.l.Warn("stationarity check failed", applogger.Error(statErr))
	} else if !stat.Stationary {
		warnings = append(warnings, fmt.Sprintf("log returns may be non-stationary (ADF %.3f above the 5%% value %.3f)",
			stat.Statistic, stat.CriticalValues["5%"]))
	}

	post, err := p.stageSample(ctx, ds)
	if err != nil {
		return nil, err
	}

	summary, err := p.stageSummarize(ds, post)
	if err != nil {
		return nil, err
	}

	diag := p.stageDiagnose(ds, post, summary)
	if statErr == nil {
		diag.Stationarity = &stat
	}
	if !diag.Converged {
		warnings = append(warnings, fmt.Sprintf("convergence not reached: max rhat %.4f above %.2f; treat break dates as unstable",
			diag.MaxRHat, ac.RHatThreshold))
	}
	if len(diag.DegenerateSegments) > 0 {
		warnings = append(warnings, fmt.Sprintf("segments %v hold fewer than %d observations; the model may be over-segmented",
			diag.DegenerateSegments, ac.MinSegment))
	}

	dates := make([]time.Time, len(summary.ChangePoints))
	for i, cp := range summary.ChangePoints {
		dates[i] = cp.Date
	}
	assoc := events.Associate(dates, evs, ac.EventWindowDays)

	res := p.buildResult(runID, ds, summary, diag, assoc, warnings)

	if err := p.stagePersist(ctx, res, ds.Prices); err != nil {
		return nil, err
	}
	p.announce(ctx, res)
	p.writeReport(res)
	p.holder.Set(Snapshot{Result: res, Prices: ds.Prices, Events: evs})

	return res, nil
}

func (p *Pipeline) stageLoadPrices(ctx context.Context) (models.PriceSeries, error) {
	start := time.Now()
	series, err := p.prices.Load(ctx)
	if err != nil {
		p.metrics.RecordError("load_prices")
		return nil, fmt.Errorf("load prices: %w", err)
	}
	p.metrics.RecordStageLatency("load_prices", time.Since(start).Seconds())
	return series, nil
}

func (p *Pipeline) stagePrepare(series models.PriceSeries) (models.Dataset, error) {
	start := time.Now()
	ds, err := preprocess.Prepare(series)
	if err != nil {
		p.metrics.RecordError("prepare")
		return models.Dataset{}, fmt.Errorf("prepare series: %w", err)
	}
	p.metrics.RecordStageLatency("prepare", time.Since(start).Seconds())
	p.l.Info("series prepared",
		applogger.Int("prices", len(ds.Prices)),
		applogger.Int("returns", len(ds.Returns)),
		applogger.String("first", util.FormatDay(ds.Prices[0].Date)),
		applogger.String("last", util.FormatDay(ds.Prices[len(ds.Prices)-1].Date)),
	)
	return ds, nil
}

func (p *Pipeline) stageSample(ctx context.Context, ds models.Dataset) (*models.Posterior, error) {
	ac := p.cfg.Analysis
	start := time.Now()

	sctx := ctx
	if ac.Budget > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, ac.Budget)
		defer cancel()
	}

	spec := models.ModelSpec{
		Returns:      ds.Returns,
		Breaks:       ac.ChangePoints,
		MuPriorSD:    ac.MuPriorSD,
		SigmaPriorSD: ac.SigmaPriorSD,
	}
	opts := models.SampleOptions{
		Draws:      ac.Draws,
		Tune:       ac.Tune,
		Chains:     ac.Chains,
		Seed:       ac.Seed,
		OnProgress: p.progress,
	}
	post, err := p.sampler.Sample(sctx, spec, opts)
	if err != nil {
		p.metrics.RecordError("sample")
		if errors.Is(err, models.ErrBudgetExceeded) {
			return nil, fmt.Errorf("sampling budget of %s exceeded: %w", ac.Budget, err)
		}
		return nil, fmt.Errorf("sample posterior: %w", err)
	}
	p.metrics.RecordDraws(post.TotalDraws())
	p.metrics.RecordStageLatency("sample", time.Since(start).Seconds())
	return post, nil
}

func (p *Pipeline) stageSummarize(ds models.Dataset, post *models.Posterior) (models.Summary, error) {
	start := time.Now()
	summary, err := changepoint.Summarize(ds, post)
	if err != nil {
		p.metrics.RecordError("summarize")
		return models.Summary{}, fmt.Errorf("summarize posterior: %w", err)
	}
	p.metrics.RecordStageLatency("summarize", time.Since(start).Seconds())
	return summary, nil
}

func (p *Pipeline) stageDiagnose(ds models.Dataset, post *models.Posterior, summary models.Summary) models.Diagnostics {
	ac := p.cfg.Analysis
	start := time.Now()

	diag := diagnostics.Evaluate(post, ac.RHatThreshold)
	p.metrics.RecordMaxRHat(diag.MaxRHat)

	modal := make([]int, len(summary.ChangePoints))
	for i, cp := range summary.ChangePoints {
		modal[i] = cp.Index
	}
	diag.SegmentSizes = changepoint.SegmentSizes(len(ds.Returns), modal)
	for seg, size := range diag.SegmentSizes {
		if size < ac.MinSegment {
			diag.DegenerateSegments = append(diag.DegenerateSegments, seg)
		}
	}

	if vol := preprocess.RollingVolatility(ds.Returns, ac.VolatilityWindow); len(vol) > 0 {
		diag.RollingVolatility = vol[len(vol)-1]
	}

	p.metrics.RecordStageLatency("diagnose", time.Since(start).Seconds())
	return diag
}

func (p *Pipeline) buildResult(
	runID string,
	ds models.Dataset,
	summary models.Summary,
	diag models.Diagnostics,
	assoc []models.Association,
	warnings []string,
) *models.AnalysisResult {
	ac := p.cfg.Analysis

	records := make([]models.ChangePointRecord, len(summary.ChangePoints))
	for i, cp := range summary.ChangePoints {
		records[i] = models.ChangePointRecord{
			Index:            cp.Index,
			Date:             util.FormatDay(cp.Date),
			MeanBefore:       summary.Impacts[i].MeanBefore,
			MeanAfter:        summary.Impacts[i].MeanAfter,
			PriceChangePct:   summary.Impacts[i].PriceChangePct,
			EventDate:        assoc[i].EventDate,
			EventDescription: assoc[i].EventDescription,
		}
	}

	return &models.AnalysisResult{
		RunID:        runID,
		GeneratedAt:  time.Now().UTC(),
		Breaks:       ac.ChangePoints,
		Draws:        ac.Draws,
		Tune:         ac.Tune,
		Chains:       ac.Chains,
		Seed:         ac.Seed,
		Observations: len(ds.Returns),
		FirstDate:    util.FormatDay(ds.Prices[0].Date),
		LastDate:     util.FormatDay(ds.Prices[len(ds.Prices)-1].Date),
		ChangePoints: records,
		SegmentMeans: summary.SegmentMeans,
		SigmaMean:    summary.SigmaMean,
		Diagnostics:  diag,
		Warnings:     warnings,
	}
}

func (p *Pipeline) stagePersist(ctx context.Context, res *models.AnalysisResult, series models.PriceSeries) error {
	start := time.Now()
	if err := p.store.Save(ctx, res); err != nil {
		p.metrics.RecordError("persist")
		return fmt.Errorf("persist result: %w", err)
	}
	if err := p.store.SaveSeries(ctx, res.RunID, series); err != nil {
		// the result itself is safe; losing the series archive is not fatal
		p.metrics.RecordError("persist_series")
		p.l.Warn("series archive failed",
			applogger.String("run_id", res.RunID),
			applogger.Error(err),
		)
	}
	p.metrics.RecordStageLatency("persist", time.Since(start).Seconds())
	return nil
}

// announce is best-effort: a lost announcement never fails a finished run.
func (p *Pipeline) announce(ctx context.Context, res *models.AnalysisResult) {
	if p.pub == nil {
		return
	}
	if err := p.pub.PublishResult(ctx, res); err != nil {
		p.metrics.RecordError("publish")
		p.l.Warn("run announcement failed",
			applogger.String("run_id", res.RunID),
			applogger.Error(err),
		)
	}
}

func (p *Pipeline) writeReport(res *models.AnalysisResult) {
	if p.reporter == nil {
		return
	}
	path, err := p.reporter.Write(res)
	if err != nil {
		p.l.Warn("run report failed",
			applogger.String("run_id", res.RunID),
			applogger.Error(err),
		)
		return
	}
	p.l.Info("run report written",
		applogger.String("run_id", res.RunID),
		applogger.String("path", path),
	)
}
