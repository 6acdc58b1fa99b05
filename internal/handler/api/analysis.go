package api

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"BrentShift/internal/domain/models"
	domrepo "BrentShift/internal/domain/repository"
	icache "BrentShift/internal/service/cache"
	"BrentShift/internal/service/metrics"
	"BrentShift/internal/service/progress"
	"BrentShift/internal/service/ratelimit"
	"BrentShift/internal/usecase"
	xhttp "BrentShift/pkg/http"
	applogger "BrentShift/pkg/logger"
	"BrentShift/pkg/util"
)

// AnalysisHandler serves the latest completed run. Everything here is
// read-only: the pipeline writes the snapshot, handlers only look at it.
type AnalysisHandler struct {
	l      *applogger.Logger
	holder *usecase.Holder
	store  domrepo.ResultStore
	hub    *progress.Hub

	cache    icache.BytesCache
	cacheTTL time.Duration
	rl       *ratelimit.Limiter
	rps      float64
	burst    float64
	plotPath string
}

func NewAnalysisHandler(l *applogger.Logger, holder *usecase.Holder, store domrepo.ResultStore, hub *progress.Hub) *AnalysisHandler {
	metrics.Register()
	return &AnalysisHandler{
		l:        l,
		holder:   holder,
		store:    store,
		hub:      hub,
		rl:       ratelimit.New(),
		cacheTTL: 60 * time.Second,
		rps:      20,
		burst:    40,
	}
}

// SetCache enables response caching on the list endpoints.
func (h *AnalysisHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache = c
	if ttl > 0 {
		h.cacheTTL = ttl
	}
}

// SetRateLimit overrides the per-IP token bucket.
func (h *AnalysisHandler) SetRateLimit(rps float64, burst int) {
	if rps > 0 {
		h.rps = rps
	}
	if burst > 0 {
		h.burst = float64(burst)
	}
}

// SetPlotPath points /api/plot at a pre-rendered chart file.
func (h *AnalysisHandler) SetPlotPath(path string) { h.plotPath = path }

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/prices", h.Prices)
	g.GET("/change_points", h.ChangePoints)
	g.GET("/events", h.Events)
	g.GET("/result", h.Result)
	g.GET("/diagnostics", h.Diagnostics)
	g.GET("/plot", h.Plot)
	e.GET("/healthz", h.Health)
	e.GET("/ws/progress", h.Progress)
}

func (h *AnalysisHandler) Prices(c echo.Context) error {
	start := time.Now()
	endpoint := "prices"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.PricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, endpoint) {
		return xhttp.TooManyRequestsResponse(c, "rate limited")
	}
	snap := h.holder.Get()
	if snap.Result == nil {
		return xhttp.NotFoundResponse(c, "no analysis available yet")
	}

	key := "prices:" + req.From + ":" + req.To + ":" + strconv.Itoa(req.Limit)
	if b, ok := h.cached(endpoint, key); ok {
		return c.JSONBlob(http.StatusOK, b)
	}

	rows := filterPrices(snap.Prices, req)
	return h.respondCached(c, endpoint, key, rows)
}

func (h *AnalysisHandler) ChangePoints(c echo.Context) error {
	start := time.Now()
	endpoint := "change_points"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if !h.allow(c, endpoint) {
		return xhttp.TooManyRequestsResponse(c, "rate limited")
	}
	snap := h.holder.Get()
	if snap.Result == nil {
		return xhttp.NotFoundResponse(c, "no analysis available yet")
	}
	return xhttp.SuccessResponse(c, snap.Result.ChangePoints)
}

func (h *AnalysisHandler) Events(c echo.Context) error {
	start := time.Now()
	endpoint := "events"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if !h.allow(c, endpoint) {
		return xhttp.TooManyRequestsResponse(c, "rate limited")
	}
	snap := h.holder.Get()
	if snap.Result == nil {
		return xhttp.NotFoundResponse(c, "no analysis available yet")
	}

	key := "events"
	if b, ok := h.cached(endpoint, key); ok {
		return c.JSONBlob(http.StatusOK, b)
	}

	rows := make([]models.EventRow, len(snap.Events))
	for i, ev := range snap.Events {
		rows[i] = models.EventRow{
			EventDate:        util.FormatDay(ev.Date),
			EventDescription: ev.Description,
		}
	}
	return h.respondCached(c, endpoint, key, rows)
}

func (h *AnalysisHandler) Result(c echo.Context) error {
	start := time.Now()
	endpoint := "result"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	snap := h.holder.Get()
	if snap.Result == nil {
		return xhttp.NotFoundResponse(c, "no analysis available yet")
	}
	return xhttp.SuccessResponse(c, snap.Result)
}

func (h *AnalysisHandler) Diagnostics(c echo.Context) error {
	start := time.Now()
	endpoint := "diagnostics"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	snap := h.holder.Get()
	if snap.Result == nil {
		return xhttp.NotFoundResponse(c, "no analysis available yet")
	}
	payload := struct {
		models.Diagnostics
		Warnings []string `json:"warnings,omitempty"`
	}{snap.Result.Diagnostics, snap.Result.Warnings}
	return xhttp.SuccessResponse(c, payload)
}

// Plot serves the pre-rendered chart. Unlike the JSON endpoints it answers
// with a real 404, because the consumer is usually an <img> tag.
func (h *AnalysisHandler) Plot(c echo.Context) error {
	if h.plotPath == "" {
		return echo.NewHTTPError(http.StatusNotFound, "no plot configured")
	}
	if _, err := os.Stat(h.plotPath); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "plot not found")
	}
	return c.File(h.plotPath)
}

func (h *AnalysisHandler) Health(c echo.Context) error {
	type lastRun struct {
		RunID       string    `json:"run_id"`
		GeneratedAt time.Time `json:"generated_at"`
		Converged   bool      `json:"converged"`
	}
	status := struct {
		Status  string   `json:"status"`
		Ready   bool     `json:"analysis_ready"`
		Storage string   `json:"storage"`
		LastRun *lastRun `json:"last_run,omitempty"`
	}{Status: "ok", Ready: h.holder.Ready(), Storage: "ok"}

	if h.store != nil {
		if err := h.store.Health(c.Request().Context()); err != nil {
			status.Status = "degraded"
			status.Storage = err.Error()
		}
	}
	if snap := h.holder.Get(); snap.Result != nil {
		status.LastRun = &lastRun{
			RunID:       snap.Result.RunID,
			GeneratedAt: snap.Result.GeneratedAt,
			Converged:   snap.Result.Diagnostics.Converged,
		}
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *AnalysisHandler) allow(c echo.Context, endpoint string) bool {
	if h.rl.Allow(c.RealIP()+":"+endpoint, h.burst, h.rps) {
		return true
	}
	h.l.Warn("api rate_limited",
		applogger.String("endpoint", endpoint),
		applogger.String("remote", c.RealIP()))
	return false
}

// cached returns the stored envelope for key, counting hits and misses.
func (h *AnalysisHandler) cached(endpoint, key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		h.l.Warn("api cache_get_error", applogger.String("key", key), applogger.Error(err))
		return nil, false
	}
	if !ok {
		metrics.APICache.WithLabelValues(endpoint, "miss").Inc()
		return nil, false
	}
	metrics.APICache.WithLabelValues(endpoint, "hit").Inc()
	return b, true
}

// respondCached writes the standard envelope and stores its bytes so a cache
// hit can replay the response without rebuilding it.
func (h *AnalysisHandler) respondCached(c echo.Context, endpoint, key string, data interface{}) error {
	if h.cache == nil {
		return xhttp.SuccessResponse(c, data)
	}
	b, err := json.Marshal(xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    data,
	})
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.l.Error("api marshal_error", applogger.String("endpoint", endpoint), applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if err := h.cache.SetBytes(key, b, h.cacheTTL); err != nil {
		h.l.Warn("api cache_set_error", applogger.String("key", key), applogger.Error(err))
	}
	return c.JSONBlob(http.StatusOK, b)
}

func filterPrices(s models.PriceSeries, req *models.PricesRequest) []models.PriceRow {
	var from, to time.Time
	if req.From != "" {
		from, _ = time.Parse(util.DayFormat, req.From)
	}
	if req.To != "" {
		to, _ = time.Parse(util.DayFormat, req.To)
	}
	rows := make([]models.PriceRow, 0, len(s))
	for _, p := range s {
		if !from.IsZero() && p.Date.Before(from) {
			continue
		}
		if !to.IsZero() && p.Date.After(to) {
			continue
		}
		rows = append(rows, models.PriceRow{Date: util.FormatDay(p.Date), Price: p.Price})
	}
	if req.Limit > 0 && len(rows) > req.Limit {
		rows = rows[:req.Limit]
	}
	return rows
}

// Progress upgrades to a websocket and streams sampler progress.
func (h *AnalysisHandler) Progress(c echo.Context) error {
	if h.hub == nil {
		return echo.NewHTTPError(http.StatusNotFound, "progress stream disabled")
	}
	return h.hub.Serve(c.Response(), c.Request())
}
