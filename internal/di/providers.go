package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ImpVol/internal/domain/models"
	"ImpVol/internal/domain/repository"
	domsvc "ImpVol/internal/domain/service"
	"ImpVol/internal/handler/api"
	mid "ImpVol/internal/middleware"
	internalrepo "ImpVol/internal/repository"
	"ImpVol/internal/service/cache"
	svcmetrics "ImpVol/internal/service/metrics"
	"ImpVol/internal/service/quotefeed"
	"ImpVol/internal/service/ratelimit"
	"ImpVol/internal/usecase"
	pkgch "ImpVol/pkg/clickhouse"
	"ImpVol/pkg/config"
	xhttp "ImpVol/pkg/http"
	pkgkafka "ImpVol/pkg/kafka"
	"ImpVol/pkg/logger"
	"ImpVol/pkg/metrics"
	"ImpVol/pkg/server"
)

// ProvideSolverConfig exposes the configured solver settings.
func ProvideSolverConfig(cfg *config.Config) models.SolverConfig {
	return cfg.Solver
}

// ProvideKafkaProducer creates a Kafka producer when the kafka backend or the
// log digest needs one, nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" && !cfg.Digest.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideDigest creates the warn/error digest published to Kafka, nil when disabled.
func ProvideDigest(cfg *config.Config, producer *pkgkafka.Producer) *logger.Digest {
	if !cfg.Digest.Enabled || producer == nil {
		return nil
	}
	return logger.NewDigest(logger.DigestConfig{
		Interval:  cfg.Digest.Interval,
		Threshold: cfg.Digest.Threshold,
		Sink:      internalrepo.NewKafkaDigestSink(producer, cfg.Digest.Topic),
	})
}

// ProvideLogger builds the application logger and attaches the digest.
func ProvideLogger(cfg *config.Config, digest *logger.Digest) (*logger.Logger, error) {
	l, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, err
	}
	if digest != nil {
		l.AttachDigest(digest)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideClickHouseClient connects to ClickHouse for the clickhouse backend, nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Backend.Type != "clickhouse" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ClickHouse.DialTimeout+5*time.Second)
	defer cancel()
	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(10, 5, 5*time.Minute),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideIVStorage creates the ClickHouse IV store and its table, nil without a client.
func ProvideIVStorage(client *pkgch.Client, cfg *config.Config, l *logger.Logger) (repository.IVStorage, error) {
	if client == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseIVStore(client, cfg.ClickHouse.Database, cfg.ClickHouse.Table, l)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideIVPublisher creates the Kafka IV publisher for the kafka backend, nil otherwise.
func ProvideIVPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.IVPublisher {
	if cfg.Backend.Type != "kafka" || producer == nil {
		return nil
	}
	return internalrepo.NewKafkaIVPublisher(producer, cfg.Kafka.ResultsTopic)
}

// ProvideMetrics creates the Prometheus recorder and registers the solver metrics.
func ProvideMetrics() repository.Metrics {
	svcmetrics.Register()
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideCache returns Redis when enabled, an in-process TTL cache otherwise.
func ProvideCache(cfg *config.Config, l *logger.Logger) cache.BytesCache {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewTTLCache(10000)
	}
	rc := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		l.Warn("redis unavailable, falling back to in-process cache", logger.Error(err))
		_ = rc.Close()
		return cache.NewTTLCache(10000)
	}
	return rc
}

func ProvideIVCalculator(c cache.BytesCache, cfg *config.Config, l *logger.Logger) *usecase.IVCalculator {
	return usecase.NewIVCalculator(c, cfg.Cache.TTL, l)
}

func ProvideChainSolver(calc domsvc.Calculator, cfg *config.Config) *usecase.ChainSolver {
	return usecase.NewChainSolver(calc, cfg.Pipeline.Workers)
}

func ProvideQuoteProcessor(
	calc domsvc.Calculator,
	solver models.SolverConfig,
	pub repository.IVPublisher,
	store repository.IVStorage,
	m repository.Metrics,
	cfg *config.Config,
	l *logger.Logger,
) *usecase.QuoteProcessor {
	return usecase.NewQuoteProcessor(calc, solver, pub, store, m, cfg.Backend.Type, l)
}

// ProvideQuoteCollector streams the websocket feed through the realtime pipeline, nil when the feed is off.
// With backend.batch_size above one, solved records are written in batches.
func ProvideQuoteCollector(cfg *config.Config, proc *usecase.QuoteProcessor, m repository.Metrics, l *logger.Logger) *usecase.QuoteCollector {
	if !cfg.Feed.Enabled {
		return nil
	}
	stream := quotefeed.New(cfg.Feed.APIKey, cfg.Feed.URL, cfg.Feed.Symbols, cfg.Feed.ReconnectDelay, cfg.Feed.PingInterval, l)
	var sink mid.Proc = proc
	if cfg.Backend.BatchSize > 1 {
		sink = usecase.NewQuoteBatcher(proc, cfg.Backend.BatchSize, cfg.Backend.BatchTimeout, m, l)
	}
	pipe := mid.NewRealtimePipeline(sink, m,
		mid.WithMinInterval(cfg.Pipeline.MinInterval),
		mid.WithBufferSize(cfg.Pipeline.BufferSize),
	)
	return usecase.NewQuoteCollector(stream, sink, m, pipe, l)
}

// ProvideKafkaConsumer creates the quotes consumer when enabled, nil otherwise.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideKafkaQuotesHandler(cfg *config.Config, proc *usecase.QuoteProcessor, m repository.Metrics) pkgkafka.MessageHandler {
	return usecase.NewKafkaQuotesHandler(cfg.Kafka.QuotesTopic, proc, m)
}

func ProvideIVHandler(l *logger.Logger, calc domsvc.Calculator, chain domsvc.ChainSolver, store repository.IVStorage, solver models.SolverConfig) *api.IVHandler {
	return api.NewIVHandler(l, calc, chain, store, solver)
}

func ProvideHTTPServer(cfg *config.Config, l *logger.Logger, h *api.IVHandler) *xhttp.Server {
	return xhttp.NewServer(l, []xhttp.Handler{h},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithMetricsPath(cfg.Metrics.Path),
		xhttp.WithRateLimit(ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)),
		xhttp.WithLimiterSweep(cfg.RateLimit.Sweep, cfg.RateLimit.Idle),
	)
}

// ProvideResources lists what the app closes on shutdown. The digest is
// appended last so it is closed first and can still flush through the producer.
func ProvideResources(digest *logger.Digest, producer *pkgkafka.Producer, client *pkgch.Client, c cache.BytesCache) server.Resources {
	var rs server.Resources
	if producer != nil {
		rs = append(rs, server.Resource{Name: "kafka producer", Close: producer.Close})
	}
	if client != nil {
		rs = append(rs, server.Resource{Name: "clickhouse", Close: client.Close})
	}
	if rc, ok := c.(*cache.RedisCache); ok {
		rs = append(rs, server.Resource{Name: "redis", Close: rc.Close})
	}
	if digest != nil {
		rs = append(rs, server.Resource{Name: "log digest", Close: func() error { digest.Close(); return nil }})
	}
	return rs
}

func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	srv *xhttp.Server,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	handler pkgkafka.MessageHandler,
	rs server.Resources,
) *server.App {
	return server.New(cfg, l, srv, collector, consumer, handler, rs)
}
