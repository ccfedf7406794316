package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"SignalFusion/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Logging struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic"`
		Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format"`
		Collect    struct {
			Enabled   bool          `yaml:"enabled"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100" validate:"gte=1"`
		} `yaml:"collect"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		Path          string        `yaml:"path" default:"/metrics"`
		SlowThreshold time.Duration `yaml:"slow_threshold" default:"1s"`
	} `yaml:"metrics"`
	Tracing struct {
		Enabled     bool   `yaml:"enabled"`
		ServiceName string `yaml:"service_name" default:"signalfusion"`
	} `yaml:"tracing"`
	Backend struct {
		Type         string        `yaml:"type" default:"clickhouse"`
		BatchSize    int           `yaml:"batch_size" default:"500" validate:"gte=1"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"2s"`
	} `yaml:"backend"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Topics       struct {
			Candles     string `yaml:"candles" default:"signalfusion.candles"`
			Predictions string `yaml:"predictions" default:"signalfusion.predictions"`
			Logs        string `yaml:"logs" default:"signalfusion.logs"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"signalfusion-candles"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"1000"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"signalfusion.candles.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"signalfusion"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Postgres struct {
		Enabled         bool          `yaml:"enabled"`
		DSN             string        `yaml:"dsn"`
		MaxOpenConns    int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns    int           `yaml:"max_idle_conns" default:"5"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
	} `yaml:"postgres"`
	Redis struct {
		Enabled   bool   `yaml:"enabled"`
		Addr      string `yaml:"addr" default:"localhost:6379"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix" default:"signalfusion"`
	} `yaml:"redis"`
	Binance struct {
		RestURL        string        `yaml:"rest_url" default:"https://api.binance.com" validate:"required,url"`
		WebSocketURL   string        `yaml:"websocket_url" default:"wss://stream.binance.com:9443"`
		Timeout        time.Duration `yaml:"timeout" default:"10s"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"binance"`
	Analytics struct {
		Enabled bool          `yaml:"enabled"`
		URL     string        `yaml:"url" default:"http://localhost:8000"`
		Timeout time.Duration `yaml:"timeout" default:"3s"`
		Retries int           `yaml:"retries" default:"2" validate:"gte=1"`
	} `yaml:"analytics"`
	Sentiment struct {
		Enabled           bool          `yaml:"enabled" default:"true"`
		FearGreedURL      string        `yaml:"fear_greed_url" default:"https://api.alternative.me/fng/"`
		CryptoPanicURL    string        `yaml:"cryptopanic_url" default:"https://cryptopanic.com/api/v1"`
		CryptoPanicAPIKey string        `yaml:"cryptopanic_api_key"`
		Lookback          time.Duration `yaml:"lookback" default:"24h"`
		MaxNewsItems      int           `yaml:"max_news_items" default:"20" validate:"gte=1"`
		Timeout           time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"sentiment"`
	Engine EngineConfig `yaml:"engine"`
	Market struct {
		StreamCoins      []string      `yaml:"stream_coins"`
		StreamTimeframes []string      `yaml:"stream_timeframes"`
		PushInterval     time.Duration `yaml:"push_interval" default:"10s"`
		MaxRPS           int           `yaml:"max_rps" default:"50"`
		BufferSize       int           `yaml:"buffer_size" default:"1000"`
	} `yaml:"market"`
	Scheduler struct {
		Enabled  bool          `yaml:"enabled"`
		Interval time.Duration `yaml:"interval" default:"5m"`
	} `yaml:"scheduler"`
	Queue struct {
		Workers    int           `yaml:"workers" default:"2" validate:"gte=1"`
		QueueSize  int           `yaml:"queue_size" default:"100"`
		RetryLimit int           `yaml:"retry_limit" default:"2"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"5s"`
	} `yaml:"queue"`
	RateLimit struct {
		Enabled bool    `yaml:"enabled" default:"true"`
		RPS     float64 `yaml:"rps" default:"5"`
		Burst   int     `yaml:"burst" default:"10"`
	} `yaml:"rate_limit"`
}

// EngineConfig carries the decision engine settings.
type EngineConfig struct {
	Weights struct {
		Strategy float64 `yaml:"strategy" default:"0.40" validate:"gte=0"`
		ML       float64 `yaml:"ml" default:"0.35" validate:"gte=0"`
		News     float64 `yaml:"news" default:"0.25" validate:"gte=0"`
	} `yaml:"weights"`
	MinConfidence  float64       `yaml:"min_confidence" default:"60" validate:"gte=0,lte=100"`
	HighConfidence float64       `yaml:"high_confidence" default:"75" validate:"gte=0,lte=100"`
	CandleLimit    int           `yaml:"candle_limit" default:"100" validate:"gte=30,lte=1000"`
	CacheTTL       time.Duration `yaml:"cache_ttl" default:"30s"`
	Risk           struct {
		MaxTradeRisk  float64 `yaml:"max_trade_risk" default:"2"`
		StopLossPct   float64 `yaml:"stop_loss_pct" default:"3" validate:"gt=0"`
		TakeProfitPct float64 `yaml:"take_profit_pct" default:"5"`
	} `yaml:"risk"`
	Indicators struct {
		RSIPeriod       int     `yaml:"rsi_period" default:"14" validate:"gte=1"`
		EMAFast         int     `yaml:"ema_fast" default:"9" validate:"gte=1"`
		EMASlow         int     `yaml:"ema_slow" default:"21" validate:"gte=1"`
		MACDFast        int     `yaml:"macd_fast" default:"12" validate:"gte=1"`
		MACDSlow        int     `yaml:"macd_slow" default:"26" validate:"gte=1"`
		MACDSignal      int     `yaml:"macd_signal" default:"9" validate:"gte=1"`
		BollingerPeriod int     `yaml:"bollinger_period" default:"20" validate:"gte=1"`
		BollingerStd    float64 `yaml:"bollinger_std" default:"2" validate:"gt=0"`
		ATRPeriod       int     `yaml:"atr_period" default:"14" validate:"gte=1"`
		VolumePeriod    int     `yaml:"volume_period" default:"20" validate:"gte=1"`
	} `yaml:"indicators"`
	Strategies struct {
		RSIOverbought         float64         `yaml:"rsi_overbought" default:"70" validate:"gt=0,lte=100"`
		RSIOversold           float64         `yaml:"rsi_oversold" default:"30" validate:"gte=0,lt=100"`
		VolumeSpikeMultiplier float64         `yaml:"volume_spike_multiplier" default:"2" validate:"gt=0"`
		SRLookback            int             `yaml:"sr_lookback" default:"50" validate:"gte=5"`
		SRClusterThreshold    float64         `yaml:"sr_cluster_threshold" default:"0.02" validate:"gte=0"`
		Enabled               map[string]bool `yaml:"enabled"`
	} `yaml:"strategies"`
	SentimentWeights struct {
		FearGreed float64 `yaml:"fear_greed" default:"0.3" validate:"gte=0"`
		News      float64 `yaml:"news" default:"0.7" validate:"gte=0"`
	} `yaml:"sentiment_weights"`
}

var validate = validator.New()

func parse(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	c.Server.Port = util.ParseIntDefault(os.Getenv("SERVER_PORT"), c.Server.Port)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
		c.Postgres.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("BINANCE_REST_URL"); v != "" {
		c.Binance.RestURL = v
	}
	if v := os.Getenv("ANALYTICS_URL"); v != "" {
		c.Analytics.URL = v
		c.Analytics.Enabled = true
	}
	if v := os.Getenv("CRYPTOPANIC_API_KEY"); v != "" {
		c.Sentiment.CryptoPanicAPIKey = v
	}
	if v := os.Getenv("STREAM_COINS"); v != "" {
		c.Market.StreamCoins = splitList(v)
	}
	if v := os.Getenv("STREAM_TIMEFRAMES"); v != "" {
		c.Market.StreamTimeframes = splitList(v)
	}
	c.Engine.MinConfidence = util.ParseFloatDefault(os.Getenv("MIN_CONFIDENCE"), c.Engine.MinConfidence)
	c.RateLimit.RPS = util.ParseFloatDefault(os.Getenv("RATE_LIMIT_RPS"), c.RateLimit.RPS)
	c.Scheduler.Enabled = util.ParseBoolDefault(os.Getenv("SCHEDULER_ENABLED"), c.Scheduler.Enabled)
	c.Tracing.Enabled = util.ParseBoolDefault(os.Getenv("TRACING_ENABLED"), c.Tracing.Enabled)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if c.Backend.Type == "kafka" && len(c.Market.StreamCoins) > 0 && !c.Kafka.Enabled {
		return fmt.Errorf("backend.type 'kafka' requires kafka.enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Postgres.Enabled && c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required when postgres is enabled")
	}
	w := c.Engine.Weights
	if w.Strategy+w.ML+w.News <= 0 {
		return fmt.Errorf("engine.weights must sum to a positive value")
	}
	if c.Engine.Strategies.RSIOversold >= c.Engine.Strategies.RSIOverbought {
		return fmt.Errorf("engine.strategies.rsi_oversold must be below rsi_overbought")
	}
	if len(c.Market.StreamCoins) > 0 && len(c.Market.StreamTimeframes) == 0 {
		return fmt.Errorf("market.stream_timeframes cannot be empty when stream_coins are set")
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
