package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, "environment: test\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Port != 8080 || c.Engine.MinConfidence != 60 || c.Engine.CandleLimit != 100 {
		t.Fatalf("defaults not applied: %+v", c.Server)
	}
	if c.Engine.Weights.Strategy != 0.40 || c.Engine.Weights.ML != 0.35 || c.Engine.Weights.News != 0.25 {
		t.Fatalf("unexpected weights %+v", c.Engine.Weights)
	}
	if c.Sentiment.Lookback != 24*time.Hour || c.Market.PushInterval != 10*time.Second {
		t.Fatalf("duration defaults not applied")
	}
	if c.Binance.RestURL != "https://api.binance.com" {
		t.Fatalf("rest url=%q", c.Binance.RestURL)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	c, err := Load(writeConfig(t, `
environment: prod
engine:
  min_confidence: 70
  weights:
    strategy: 0.5
    ml: 0.3
    news: 0.2
  strategies:
    enabled:
      volume_spike: false
market:
  stream_coins: [BTC, ETH]
  stream_timeframes: [1h]
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Engine.MinConfidence != 70 || c.Engine.Weights.Strategy != 0.5 {
		t.Fatalf("file values not applied")
	}
	if on, ok := c.Engine.Strategies.Enabled["volume_spike"]; !ok || on {
		t.Fatalf("enabled map not parsed: %v", c.Engine.Strategies.Enabled)
	}
	// untouched nested defaults survive
	if c.Engine.Indicators.RSIPeriod != 14 {
		t.Fatalf("rsi period=%d", c.Engine.Indicators.RSIPeriod)
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("MIN_CONFIDENCE", "65")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost/db?sslmode=disable")
	t.Setenv("SCHEDULER_ENABLED", "yes")
	t.Setenv("SERVER_PORT", "not-a-port")
	c, err := LoadWithEnv(writeConfig(t, "environment: test\n"))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[1] != "k2:9092" || !c.Kafka.Enabled {
		t.Fatalf("brokers=%v", c.Kafka.Brokers)
	}
	if c.Engine.MinConfidence != 65 || !c.Postgres.Enabled {
		t.Fatalf("env overrides not applied")
	}
	if !c.Scheduler.Enabled {
		t.Fatalf("SCHEDULER_ENABLED=yes not applied")
	}
	if c.Server.Port != 8080 {
		t.Fatalf("invalid SERVER_PORT should keep the default, got %d", c.Server.Port)
	}
}

func TestValidateRejectsBadBackend(t *testing.T) {
	if _, err := Load(writeConfig(t, "environment: test\nbackend:\n  type: s3\n")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateRejectsZeroWeights(t *testing.T) {
	body := "environment: test\nengine:\n  weights:\n    strategy: 0\n    ml: 0\n    news: 0\n"
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateRejectsOutOfRangeThreshold(t *testing.T) {
	if _, err := Load(writeConfig(t, "environment: test\nengine:\n  min_confidence: 120\n")); err == nil {
		t.Fatalf("expected error")
	}
}
