package di

import (
	"context"
	"fmt"
	"time"

	domrepo "SignalFusion/internal/domain/repository"
	domsvc "SignalFusion/internal/domain/service"
	"SignalFusion/internal/handler/api"
	mid "SignalFusion/internal/middleware"
	internalrepo "SignalFusion/internal/repository"
	"SignalFusion/internal/service/binance"
	"SignalFusion/internal/service/ratelimit"
	"SignalFusion/internal/services/analytics"
	"SignalFusion/internal/services/decision"
	"SignalFusion/internal/services/fusion"
	"SignalFusion/internal/services/indicators"
	"SignalFusion/internal/services/sentiment"
	"SignalFusion/internal/services/strategies"
	"SignalFusion/internal/usecase"
	"SignalFusion/pkg/cache"
	pkgch "SignalFusion/pkg/clickhouse"
	"SignalFusion/pkg/config"
	xhttp "SignalFusion/pkg/http"
	pkgkafka "SignalFusion/pkg/kafka"
	applogger "SignalFusion/pkg/logger"
	"SignalFusion/pkg/metrics"
	pkgpg "SignalFusion/pkg/postgres"
	"SignalFusion/pkg/queue"
	"SignalFusion/pkg/server"

	"github.com/redis/go-redis/v9"
)

const initTimeout = 10 * time.Second

// ProvideLogger builds the application logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideRedisClient returns nil when Redis is disabled.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// ProvideCache fronts Redis with a short in-process L1, or falls back to
// memory only.
func ProvideCache(cfg *config.Config, rc *redis.Client) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(10000))
	}
	return cache.NewLayeredCache(cache.NewRedisCache(rc, cfg.Redis.KeyPrefix), 5*time.Second)
}

// ProvideQueue picks the Redis queue when Redis is available.
func ProvideQueue(cfg *config.Config, log *applogger.Logger, rc *redis.Client) queue.Server {
	qc := &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}
	if rc == nil {
		return queue.NewMemoryQueue(log, qc)
	}
	return queue.NewRedisQueue(log, qc, rc, queue.WithKeyPrefix(cfg.Redis.KeyPrefix))
}

// ProvideClickHouseClient returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(pkgch.Config{
		Host:             cfg.ClickHouse.Host,
		Port:             cfg.ClickHouse.Port,
		Database:         cfg.ClickHouse.Database,
		User:             cfg.ClickHouse.User,
		Password:         cfg.ClickHouse.Password,
		UseHTTP:          cfg.ClickHouse.UseHTTP,
		AsyncInsert:      cfg.ClickHouse.AsyncInsert,
		WaitForAsync:     cfg.ClickHouse.WaitForAsync,
		DialTimeout:      cfg.ClickHouse.DialTimeout,
		ReadTimeout:      cfg.ClickHouse.ReadTimeout,
		MaxExecutionTime: cfg.ClickHouse.MaxExecutionTime,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideCandleStore creates the candles table and returns the store, or nil
// without ClickHouse.
func ProvideCandleStore(cfg *config.Config, ch *pkgch.Client, log *applogger.Logger) (domrepo.CandleStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHCandleStore(ch, cfg.ClickHouse.Database, log)
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvidePostgresClient returns nil when Postgres is disabled.
func ProvidePostgresClient(cfg *config.Config) (*pkgpg.Client, error) {
	if !cfg.Postgres.Enabled {
		return nil, nil
	}
	client, err := pkgpg.NewClient(
		pkgpg.WithDSN(cfg.Postgres.DSN),
		pkgpg.WithPool(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.ConnMaxLifetime),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}
	return client, nil
}

// ProvidePredictionHistory migrates and returns the Postgres history, or an
// in-memory ring without Postgres.
func ProvidePredictionHistory(pg *pkgpg.Client) (domrepo.PredictionHistory, error) {
	if pg == nil {
		return internalrepo.NewMemoryPredictionHistory(1000), nil
	}
	h := internalrepo.NewPGPredictionHistory(pg)
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := h.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	return h, nil
}

// ProvideKafkaProducer returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		RequiredAcks: cfg.Kafka.RequiredAcks,
		Compression:  cfg.Kafka.Compression,
		MaxAttempts:  cfg.Kafka.Producer.MaxAttempts,
		WriteTimeout: cfg.Kafka.Producer.WriteTimeout,
		ReadTimeout:  cfg.Kafka.Producer.ReadTimeout,
		BatchSize:    cfg.Kafka.Producer.BatchSize,
		BatchBytes:   cfg.Kafka.Producer.BatchBytes,
		BatchTimeout: cfg.Kafka.Producer.Linger,
		Async:        cfg.Kafka.Producer.Async,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideCandlePublisher returns nil without a producer.
func ProvideCandlePublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.CandlePublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaCandlePublisher(producer, cfg.Kafka.Topics.Candles)
}

// ProvidePredictionPublisher drops predictions when Kafka is disabled.
func ProvidePredictionPublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.PredictionPublisher {
	if producer == nil {
		return internalrepo.NoopPredictionPublisher{}
	}
	return internalrepo.NewKafkaPredictionPublisher(producer, cfg.Kafka.Topics.Predictions)
}

// ProvideKafkaConsumer is only built for the kafka backend, where the
// consumer persists streamed candles.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Backend.Type != usecase.BackendKafka || len(cfg.Market.StreamCoins) == 0 {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TracingHook{})
	return consumer, nil
}

// ProvideKafkaCandlesHandler stores consumed candles and schedules refreshes.
func ProvideKafkaCandlesHandler(cfg *config.Config, store domrepo.CandleStore, pc *internalrepo.PredictionCache, jobs queue.Server, m domrepo.Metrics, log *applogger.Logger) *usecase.KafkaCandlesHandler {
	return usecase.NewKafkaCandlesHandler(cfg.Kafka.Topics.Candles, store, pc, jobs, m, log)
}

// EngineConfig maps the engine section onto the decision engine settings.
func EngineConfig(cfg *config.Config) decision.Config {
	e := cfg.Engine
	in := e.Indicators
	st := e.Strategies
	return decision.Config{
		Weights:        fusion.Weights{Strategy: e.Weights.Strategy, ML: e.Weights.ML, News: e.Weights.News},
		MinConfidence:  e.MinConfidence,
		HighConfidence: e.HighConfidence,
		Indicators: indicators.Params{
			RSIPeriod:       in.RSIPeriod,
			EMAFast:         in.EMAFast,
			EMASlow:         in.EMASlow,
			MACDFast:        in.MACDFast,
			MACDSlow:        in.MACDSlow,
			MACDSignal:      in.MACDSignal,
			BollingerPeriod: in.BollingerPeriod,
			BollingerStd:    in.BollingerStd,
			ATRPeriod:       in.ATRPeriod,
			VolumePeriod:    in.VolumePeriod,
		},
		Strategies: strategies.Config{
			RSIOverbought:         st.RSIOverbought,
			RSIOversold:           st.RSIOversold,
			VolumeSpikeMultiplier: st.VolumeSpikeMultiplier,
			SRLookback:            st.SRLookback,
			SRClusterThreshold:    st.SRClusterThreshold,
			Enabled:               st.Enabled,
		},
		SentimentWeights: sentiment.Weights{FearGreed: e.SentimentWeights.FearGreed, News: e.SentimentWeights.News},
		StopLossPct:      e.Risk.StopLossPct,
	}
}

// ProvideEngine validates the engine settings once at startup.
func ProvideEngine(cfg *config.Config) (*decision.Engine, error) {
	return decision.NewEngine(EngineConfig(cfg))
}

// ProvideCandleSource reads Binance klines through the cache, falling back to
// stored candles when Binance is down.
func ProvideCandleSource(cfg *config.Config, c cache.Service, store domrepo.CandleStore, log *applogger.Logger) domrepo.CandleSource {
	return internalrepo.NewCachedCandleSource(binance.New(cfg.Binance.RestURL, cfg.Binance.Timeout), c, store, log)
}

// ProvideClassifier returns nil unless the model service is enabled.
func ProvideClassifier(cfg *config.Config) domsvc.ClassifierEnsemble {
	if !cfg.Analytics.Enabled {
		return nil
	}
	return analytics.NewHTTPClassifier(cfg)
}

// ProvideFearGreed returns nil when sentiment is disabled.
func ProvideFearGreed(cfg *config.Config) domsvc.FearGreedProvider {
	if !cfg.Sentiment.Enabled {
		return nil
	}
	return analytics.NewHTTPFearGreed(cfg)
}

// ProvideNewsSentiment needs the model service to score headlines.
func ProvideNewsSentiment(cfg *config.Config) domsvc.NewsSentimentProvider {
	if !cfg.Sentiment.Enabled || !cfg.Analytics.Enabled {
		return nil
	}
	return analytics.NewHTTPNewsSentiment(cfg)
}

func ProvidePredictionCache(cfg *config.Config, c cache.Service, log *applogger.Logger) *internalrepo.PredictionCache {
	return internalrepo.NewPredictionCache(c, cfg.Engine.CacheTTL, log)
}

// ProvidePredictionService assembles the prediction use case.
func ProvidePredictionService(
	cfg *config.Config,
	engine *decision.Engine,
	candles domrepo.CandleSource,
	classifier domsvc.ClassifierEnsemble,
	fearGreed domsvc.FearGreedProvider,
	news domsvc.NewsSentimentProvider,
	pc *internalrepo.PredictionCache,
	history domrepo.PredictionHistory,
	pub domrepo.PredictionPublisher,
	m domrepo.Metrics,
	log *applogger.Logger,
) (*usecase.PredictionService, error) {
	return usecase.NewPredictionService(usecase.PredictionDeps{
		Engine:     engine,
		Candles:    candles,
		Classifier: classifier,
		FearGreed:  fearGreed,
		News:       news,
		Cache:      pc,
		History:    history,
		Publisher:  pub,
		Metrics:    m,
		Logger:     log,
	}, usecase.PredictionOptions{
		CandleLimit: cfg.Engine.CandleLimit,
		MLTimeout:   cfg.Analytics.Timeout * time.Duration(cfg.Analytics.Retries+1),
		NewsTimeout: cfg.Sentiment.Timeout * 2,
		Lookback:    cfg.Sentiment.Lookback,
	})
}

func ProvideMarketData(candles domrepo.CandleSource, engine *decision.Engine) *usecase.MarketDataUseCase {
	return usecase.NewMarketDataUseCase(candles, engine)
}

// EngineInfoFrom publishes the effective engine settings.
func EngineInfoFrom(cfg *config.Config, engine *decision.Engine) api.EngineInfo {
	ec := engine.Config()
	var info api.EngineInfo
	info.Weights.Strategy = ec.Weights.Strategy
	info.Weights.ML = ec.Weights.ML
	info.Weights.News = ec.Weights.News
	info.Thresholds.MinConfidence = ec.MinConfidence
	info.Thresholds.HighConfidence = ec.HighConfidence
	info.Risk.MaxTradeRisk = cfg.Engine.Risk.MaxTradeRisk
	info.Risk.StopLoss = ec.StopLossPct
	info.Risk.TakeProfit = cfg.Engine.Risk.TakeProfitPct
	return info
}

// ProvideHTTPHandler builds the API handler with per-IP throttling.
func ProvideHTTPHandler(cfg *config.Config, log *applogger.Logger, svc *usecase.PredictionService, md *usecase.MarketDataUseCase, engine *decision.Engine) *api.PredictionEchoHandler {
	var lim *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		lim = ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute)
	}
	return api.NewPredictionEchoHandler(log, svc, md, EngineInfoFrom(cfg, engine), api.Options{
		PushInterval: cfg.Market.PushInterval,
		RateLimiter:  lim,
	})
}

func ProvideHTTPServer(cfg *config.Config, log *applogger.Logger, h *api.PredictionEchoHandler) *xhttp.Server {
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path, cfg.Metrics.SlowThreshold),
		xhttp.WithLogger(log),
	)
}

// ProvideCandleProcessor returns nil when no series are streamed.
func ProvideCandleProcessor(
	cfg *config.Config,
	pub domrepo.CandlePublisher,
	store domrepo.CandleStore,
	m domrepo.Metrics,
	log *applogger.Logger,
) (*usecase.CandleProcessor, error) {
	if len(cfg.Market.StreamCoins) == 0 {
		return nil, nil
	}
	switch cfg.Backend.Type {
	case usecase.BackendKafka:
		if pub == nil {
			return nil, fmt.Errorf("backend %q requires kafka.enabled", cfg.Backend.Type)
		}
	case usecase.BackendClickHouse:
		if store == nil {
			return nil, fmt.Errorf("backend %q requires clickhouse.enabled", cfg.Backend.Type)
		}
	}
	return usecase.NewCandleProcessor(pub, store, m, log, cfg.Backend.Type, cfg.Backend.BatchSize, cfg.Backend.BatchTimeout), nil
}

// ProvideCandleCollector connects the Binance kline stream to the processor
// through the throttling pipeline.
func ProvideCandleCollector(cfg *config.Config, proc *usecase.CandleProcessor, m domrepo.Metrics, log *applogger.Logger) *usecase.CandleCollector {
	if proc == nil {
		return nil
	}
	stream := binance.NewStream(
		cfg.Binance.WebSocketURL,
		cfg.Market.StreamCoins,
		cfg.Market.StreamTimeframes,
		cfg.Binance.ReconnectDelay,
		cfg.Binance.PingInterval,
		log,
	)
	pipe := mid.NewCandlePipeline(proc, m,
		mid.WithMaxRPS(cfg.Market.MaxRPS),
		mid.WithBufferSize(cfg.Market.BufferSize),
	)
	return usecase.NewCandleCollector(stream, proc, m, pipe, log)
}

func ProvideRefreshJob(cfg *config.Config, svc *usecase.PredictionService, log *applogger.Logger) *usecase.RefreshJob {
	return usecase.NewRefreshJob(svc, cfg.Engine.MinConfidence, log)
}

// ProvideScheduler returns nil unless enabled. The cache lock keeps replicas
// from enqueueing the same tick.
func ProvideScheduler(cfg *config.Config, jobs queue.Server, c cache.Service, log *applogger.Logger) *usecase.Scheduler {
	if !cfg.Scheduler.Enabled || len(cfg.Market.StreamCoins) == 0 {
		return nil
	}
	return usecase.NewScheduler(jobs, c, cfg.Market.StreamCoins, cfg.Market.StreamTimeframes, cfg.Scheduler.Interval, log)
}

// ProvideApp collects the long-running components and the clients to close.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	srv *xhttp.Server,
	collector *usecase.CandleCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaCandlesHandler,
	jobs queue.Server,
	refresh *usecase.RefreshJob,
	scheduler *usecase.Scheduler,
	c cache.Service,
	ch *pkgch.Client,
	pg *pkgpg.Client,
	producer *pkgkafka.Producer,
) *server.App {
	comps := server.Components{
		HTTP:      srv,
		Collector: collector,
		Consumer:  consumer,
		Jobs:      jobs,
		JobList:   []queue.Job{refresh},
		Scheduler: scheduler,
	}
	if consumer != nil {
		comps.Handlers = []pkgkafka.MessageHandler{kh}
	}

	if producer != nil && cfg.Logging.Collect.Enabled {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.Collect.Interval,
			CountThreshold: cfg.Logging.Collect.Threshold,
			Topic:          cfg.Kafka.Topics.Logs,
			Publisher:      internalrepo.NewKafkaLogPublisher(producer),
		})
	}

	// The cache owns the Redis client. The producer goes last so the log
	// collector can flush through it.
	comps.Closers = append(comps.Closers, server.Closer{Name: "cache", Close: c.Close})
	if ch != nil {
		comps.Closers = append(comps.Closers, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	if pg != nil {
		comps.Closers = append(comps.Closers, server.Closer{Name: "postgres", Close: pg.Close})
	}
	if producer != nil {
		comps.Closers = append(comps.Closers, server.Closer{Name: "kafka producer", Close: producer.Close})
	}
	return server.New(cfg, log, comps)
}
