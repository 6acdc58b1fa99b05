package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "BrentShift/internal/domain/repository"
	internalrepo "BrentShift/internal/repository"
	icache "BrentShift/internal/service/cache"
	"BrentShift/internal/service/progress"
	"BrentShift/internal/services/preprocess"
	"BrentShift/internal/usecase"
	"BrentShift/pkg/config"
	xhttp "BrentShift/pkg/http"
	applogger "BrentShift/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg     *config.Config
	l       *applogger.Logger
	pipe    *usecase.Pipeline
	sched   *usecase.Scheduler
	holder  *usecase.Holder
	store   domrepo.ResultStore
	prices  domrepo.PriceSource
	events  domrepo.EventSource
	pub     domrepo.Publisher
	hub     *progress.Hub
	cache   icache.BytesCache
	handler xhttp.Handler

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	pipe *usecase.Pipeline,
	sched *usecase.Scheduler,
	holder *usecase.Holder,
	store domrepo.ResultStore,
	prices domrepo.PriceSource,
	events domrepo.EventSource,
	pub domrepo.Publisher,
	hub *progress.Hub,
	cache icache.BytesCache,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:     cfg,
		l:       l,
		pipe:    pipe,
		sched:   sched,
		holder:  holder,
		store:   store,
		prices:  prices,
		events:  events,
		pub:     pub,
		hub:     hub,
		cache:   cache,
		handler: handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Forward aggregated warnings/errors to Kafka when a log topic is set
	if kp, ok := a.pub.(*internalrepo.KafkaPublisher); ok && a.cfg.Kafka.LogTopic != "" {
		a.l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          a.cfg.Kafka.LogTopic,
			Publisher:      kp,
		})
	}

	opts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithRequestMetrics(a.l, 2*time.Second))
	}
	a.httpServer = xhttp.NewServer(a.handler, opts...)

	// Serve the last persisted run, if any, while a fresh one computes
	a.restoreSnapshot(ctx)

	if a.cfg.Analysis.RunOnStart || !a.holder.Ready() {
		go func() {
			if _, err := a.pipe.Run(ctx); err != nil {
				a.l.Error("startup analysis failed", applogger.Error(err))
			}
		}()
	}

	a.sched.Start()

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// restoreSnapshot loads the latest persisted result and the current series so
// the API answers immediately after a restart.
func (a *App) restoreSnapshot(ctx context.Context) {
	res, err := a.store.Latest(ctx)
	if err != nil {
		if !errors.Is(err, domrepo.ErrNoResult) {
			a.l.Warn("restore previous result failed", applogger.Error(err))
		}
		return
	}

	snap := usecase.Snapshot{Result: res}
	if series, perr := a.prices.Load(ctx); perr == nil {
		if ds, derr := preprocess.Prepare(series); derr == nil {
			snap.Prices = ds.Prices
		}
	}
	if evs, eerr := a.events.Load(ctx); eerr == nil {
		snap.Events = evs
	}
	a.holder.Set(snap)
	a.l.Info("previous result restored",
		applogger.String("run_id", res.RunID),
		applogger.Int("change_points", len(res.ChangePoints)),
	)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	a.hub.CloseAll()

	// Flush any aggregated logs before their transport goes away
	a.l.RemoveCollector()

	if err := a.pub.Close(); err != nil {
		a.l.Warn("publisher close error", applogger.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.l.Warn("store close error", applogger.Error(err))
	}
	if rc, ok := a.cache.(*icache.RedisCache); ok {
		if err := rc.Close(); err != nil {
			a.l.Warn("redis close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
