package di

import (
	"testing"

	"SignalFusion/internal/usecase"
	"SignalFusion/pkg/cache"
	"SignalFusion/pkg/config"
	applogger "SignalFusion/pkg/logger"
	"SignalFusion/pkg/queue"

	"github.com/creasty/defaults"
)

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	var c config.Config
	if err := defaults.Set(&c); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	return &c
}

func TestEngineFromDefaults(t *testing.T) {
	cfg := defaultConfig(t)
	engine, err := ProvideEngine(cfg)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	info := EngineInfoFrom(cfg, engine)
	if info.Thresholds.MinConfidence != 60 || info.Thresholds.HighConfidence != 75 {
		t.Fatalf("thresholds %+v", info.Thresholds)
	}
	if info.Risk.StopLoss != 3 || info.Risk.TakeProfit != 5 {
		t.Fatalf("risk %+v", info.Risk)
	}
	sum := info.Weights.Strategy + info.Weights.ML + info.Weights.News
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("weights sum to %v", sum)
	}
}

func TestEngineRejectsBadRSIBands(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Engine.Strategies.RSIOversold = 80
	if _, err := ProvideEngine(cfg); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestMemoryFallbacks(t *testing.T) {
	cfg := defaultConfig(t)

	c := ProvideCache(cfg, nil)
	if _, ok := c.(*cache.MemoryCache); !ok {
		t.Fatalf("cache is %T, want memory", c)
	}
	defer c.Close()

	q := ProvideQueue(cfg, applogger.Nop(), nil)
	if _, ok := q.(*queue.MemoryQueue); !ok {
		t.Fatalf("queue is %T, want memory", q)
	}

	h, err := ProvidePredictionHistory(nil)
	if err != nil || h == nil {
		t.Fatalf("history: %v", err)
	}
	if ProvideClassifier(cfg) != nil {
		t.Fatal("classifier must be nil with analytics disabled")
	}
	if ProvideNewsSentiment(cfg) != nil {
		t.Fatal("news sentiment needs the analytics service")
	}
	if ProvideFearGreed(cfg) == nil {
		t.Fatal("fear/greed is on by default")
	}
}

func TestCandleProcessorBackends(t *testing.T) {
	cfg := defaultConfig(t)
	log := applogger.Nop()

	p, err := ProvideCandleProcessor(cfg, nil, nil, nil, log)
	if err != nil || p != nil {
		t.Fatalf("no streamed coins: p=%v err=%v", p, err)
	}
	if ProvideCandleCollector(cfg, nil, nil, log) != nil {
		t.Fatal("collector without processor")
	}

	cfg.Market.StreamCoins = []string{"BTC"}
	cfg.Market.StreamTimeframes = []string{"1h"}
	cfg.Backend.Type = usecase.BackendClickHouse
	if _, err := ProvideCandleProcessor(cfg, nil, nil, nil, log); err == nil {
		t.Fatal("clickhouse backend without a store must fail")
	}
	cfg.Backend.Type = usecase.BackendKafka
	if _, err := ProvideCandleProcessor(cfg, nil, nil, nil, log); err == nil {
		t.Fatal("kafka backend without a publisher must fail")
	}
}

func TestSchedulerGate(t *testing.T) {
	cfg := defaultConfig(t)
	c := cache.NewMemoryCache()
	defer c.Close()
	q := ProvideQueue(cfg, applogger.Nop(), nil)

	if ProvideScheduler(cfg, q, c, nil) != nil {
		t.Fatal("scheduler is disabled by default")
	}
	cfg.Scheduler.Enabled = true
	cfg.Market.StreamCoins = []string{"BTC"}
	cfg.Market.StreamTimeframes = []string{"1h"}
	if ProvideScheduler(cfg, q, c, nil) == nil {
		t.Fatal("expected scheduler")
	}
}
