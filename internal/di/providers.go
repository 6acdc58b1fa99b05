package di

import (
	"context"
	"fmt"
	"time"

	domrepo "BrentShift/internal/domain/repository"
	domsvc "BrentShift/internal/domain/service"
	"BrentShift/internal/handler/api"
	internalrepo "BrentShift/internal/repository"
	icache "BrentShift/internal/service/cache"
	"BrentShift/internal/service/progress"
	"BrentShift/internal/services/report"
	"BrentShift/internal/services/sampling"
	"BrentShift/internal/usecase"
	pkgch "BrentShift/pkg/clickhouse"
	"BrentShift/pkg/config"
	xhttp "BrentShift/pkg/http"
	pkgkafka "BrentShift/pkg/kafka"
	applogger "BrentShift/pkg/logger"
	pkgmetrics "BrentShift/pkg/metrics"
	"BrentShift/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return pkgmetrics.New()
}

// ProvidePriceSource picks the price loader: local CSV when a path is
// configured, HTTP fetch otherwise. Config validation guarantees one is set.
func ProvidePriceSource(cfg *config.Config, l *applogger.Logger) domrepo.PriceSource {
	if cfg.Data.PricesPath != "" {
		return internalrepo.NewCSVPriceSource(cfg.Data.PricesPath, cfg.Data.DateFormat, l)
	}
	return internalrepo.NewHTTPPriceSource(cfg.Data.PricesURL, cfg.Data.DateFormat, 0, l)
}

// ProvideEventSource creates the event catalog; with no CSV configured it
// serves the built-in curated events.
func ProvideEventSource(cfg *config.Config, l *applogger.Logger) domrepo.EventSource {
	return internalrepo.NewEventCatalog(cfg.Data.EventsPath, l)
}

// ProvideResultStore creates the persistence backend and ensures its
// files/tables exist before anything runs.
func ProvideResultStore(cfg *config.Config, l *applogger.Logger) (domrepo.ResultStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.Storage.Backend {
	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		store := internalrepo.NewCHResultStore(client, l)
		if err := store.Init(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		return store, nil
	default:
		store := internalrepo.NewFileResultStore(cfg.Storage.Dir, l)
		if err := store.Init(ctx); err != nil {
			return nil, fmt.Errorf("result store dir: %w", err)
		}
		return store, nil
	}
}

// ProvidePublisher creates the Kafka announcer, or a no-op when Kafka is off.
func ProvidePublisher(cfg *config.Config) (domrepo.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NoopPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideSampler picks the posterior sampler implementation.
func ProvideSampler(cfg *config.Config, l *applogger.Logger) domsvc.PosteriorSampler {
	if cfg.Analysis.Sampler == "remote" {
		return sampling.NewRemote(cfg.Analysis.Remote.URL, cfg.Analysis.Remote.Timeout)
	}
	return sampling.NewGibbs(l)
}

// ProvideHolder creates the served-snapshot holder.
func ProvideHolder() *usecase.Holder {
	return usecase.NewHolder()
}

// ProvideProgressHub creates the websocket progress fan-out.
func ProvideProgressHub(l *applogger.Logger) *progress.Hub {
	return progress.NewHub(l)
}

// ProvideReportWriter creates the markdown run-report writer.
func ProvideReportWriter(cfg *config.Config) *report.Writer {
	return report.NewWriter(cfg.Storage.Dir)
}

// ProvideCache creates the API response cache: Redis when enabled, an
// in-process TTL map otherwise.
func ProvideCache(cfg *config.Config) (icache.BytesCache, error) {
	if !cfg.Cache.Redis.Enabled {
		return icache.NewTTLCache(), nil
	}
	rc := icache.NewRedisCache(icache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvidePipeline creates the analysis use case.
func ProvidePipeline(
	prices domrepo.PriceSource,
	eventSource domrepo.EventSource,
	sampler domsvc.PosteriorSampler,
	store domrepo.ResultStore,
	pub domrepo.Publisher,
	metrics domrepo.Metrics,
	holder *usecase.Holder,
	reporter *report.Writer,
	cfg *config.Config,
	hub *progress.Hub,
	l *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(prices, eventSource, sampler, store, pub, metrics, holder, reporter, cfg, hub.Broadcast, l)
}

// ProvideScheduler creates the cron trigger; disabled when no spec is set.
func ProvideScheduler(pipe *usecase.Pipeline, cfg *config.Config, l *applogger.Logger) (*usecase.Scheduler, error) {
	sched, err := usecase.NewScheduler(pipe, cfg.Schedule.Cron, l)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	return sched, nil
}

// ProvideHandler creates the read-only API handler.
func ProvideHandler(
	l *applogger.Logger,
	holder *usecase.Holder,
	store domrepo.ResultStore,
	hub *progress.Hub,
	cache icache.BytesCache,
	cfg *config.Config,
) xhttp.Handler {
	h := api.NewAnalysisHandler(l, holder, store, hub)
	h.SetCache(cache, cfg.Cache.TTL)
	h.SetRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	h.SetPlotPath(cfg.Plot.Path)
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	pipe *usecase.Pipeline,
	sched *usecase.Scheduler,
	holder *usecase.Holder,
	store domrepo.ResultStore,
	prices domrepo.PriceSource,
	eventSource domrepo.EventSource,
	pub domrepo.Publisher,
	hub *progress.Hub,
	cache icache.BytesCache,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, pipe, sched, holder, store, prices, eventSource, pub, hub, cache, handler)
}
