package usecase

import (
	"context"
	"encoding/json"
	"time"

	"SignalFusion/internal/domain/models"
	domrepo "SignalFusion/internal/domain/repository"
	pkgkafka "SignalFusion/pkg/kafka"
	applogger "SignalFusion/pkg/logger"
	"SignalFusion/pkg/queue"
)

// KafkaCandlesHandler consumes closed candles, writes them to storage, drops
// cached predictions for the series and schedules a refresh.
type KafkaCandlesHandler struct {
	topic   string
	storage domrepo.CandleStore
	cache   domrepo.PredictionCache
	jobs    queue.Publisher
	metrics domrepo.Metrics
	log     *applogger.Logger
}

func NewKafkaCandlesHandler(topic string, storage domrepo.CandleStore, cache domrepo.PredictionCache, jobs queue.Publisher, metrics domrepo.Metrics, log *applogger.Logger) *KafkaCandlesHandler {
	if log == nil {
		log = applogger.Nop()
	}
	return &KafkaCandlesHandler{topic: topic, storage: storage, cache: cache, jobs: jobs, metrics: metrics, log: log}
}

func (h *KafkaCandlesHandler) Topic() string { return h.topic }

func (h *KafkaCandlesHandler) Handle(ctx context.Context, b []byte) error {
	var c models.StreamCandle
	if err := json.Unmarshal(b, &c); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if c.Coin == "" || c.Timeframe == "" || c.Timestamp.IsZero() {
		// malformed but decodable; retrying will not help
		h.metrics.RecordError("consumer_invalid")
		h.log.Warn("dropping candle without series", applogger.String("topic", h.topic))
		return nil
	}
	// E2E latency from bar close to now (approx)
	if tf, ok := domrepo.ParseTimeframe(c.Timeframe); ok {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(c.Timestamp.Add(tf.Duration())).Seconds())
	}

	if h.storage != nil {
		start := time.Now()
		err := h.storage.StoreBatch(ctx, []*models.StreamCandle{&c})
		h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
		if err != nil {
			h.metrics.RecordError("consumer_store")
			return err
		}
		h.metrics.RecordMessageSent("clickhouse", c.Coin)
	}

	// a new bar makes every cached threshold for the series stale
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, c.Coin, c.Timeframe); err != nil {
			h.log.Warn("invalidate cached predictions failed", applogger.String("series", c.Key()), applogger.Error(err))
		}
	}

	if h.jobs != nil {
		if err := h.jobs.Enqueue(ctx, RefreshJobType, RefreshPayload{Coin: c.Coin, Timeframe: c.Timeframe}); err != nil {
			// the candle is stored; the scheduler will catch up
			h.log.Warn("enqueue prediction refresh failed", applogger.String("series", c.Key()), applogger.Error(err))
		}
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaCandlesHandler)(nil)
