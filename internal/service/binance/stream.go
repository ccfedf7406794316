package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"SignalFusion/internal/domain/models"
	drepo "SignalFusion/internal/domain/repository"
	applogger "SignalFusion/pkg/logger"

	"github.com/gorilla/websocket"
)

// Stream implements CandleStream over the Binance combined kline websocket.
type Stream struct {
	websocketURL   string
	coins          []string
	timeframes     []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// NewStream subscribes to every coin × timeframe pair.
func NewStream(websocketURL string, coins, timeframes []string, reconnectDelay, pingInterval time.Duration, log *applogger.Logger) *Stream {
	if log == nil {
		log = applogger.Nop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Stream{
		websocketURL:   strings.TrimRight(websocketURL, "/"),
		coins:          coins,
		timeframes:     timeframes,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

// streamURL builds /stream?streams=btcusdt@kline_1m/ethusdt@kline_1m...
func (s *Stream) streamURL() string {
	names := make([]string, 0, len(s.coins)*len(s.timeframes))
	for _, c := range s.coins {
		for _, tf := range s.timeframes {
			names = append(names, strings.ToLower(models.ExchangeSymbol(c))+"@kline_"+tf)
		}
	}
	return s.websocketURL + "/stream?streams=" + strings.Join(names, "/")
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	s.log.Info("binance stream connected",
		applogger.Int("coins", len(s.coins)),
		applogger.Strings("timeframes", s.timeframes))
	return nil
}

type klineEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		Event  string `json:"e"`
		Symbol string `json:"s"`
		Kline  struct {
			OpenTime int64  `json:"t"`
			Interval string `json:"i"`
			Open     string `json:"o"`
			High     string `json:"h"`
			Low      string `json:"l"`
			Close    string `json:"c"`
			Volume   string `json:"v"`
			Closed   bool   `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

func (e *klineEvent) candle(received time.Time) (*models.StreamCandle, error) {
	k := e.Data.Kline
	vals := make([]float64, 5)
	for i, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := parseDecimal(raw)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	coin := strings.TrimSuffix(strings.ToUpper(e.Data.Symbol), models.QuoteAsset)
	return &models.StreamCandle{
		Candle: models.Candle{
			Timestamp: time.UnixMilli(k.OpenTime).UTC(),
			Symbol:    coin,
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		},
		Coin:      coin,
		Timeframe: k.Interval,
		Closed:    k.Closed,
		Received:  received,
	}, nil
}

// Read streams kline updates and a terminal error. Both channels close when
// the connection drops or ctx ends.
func (s *Stream) Read(ctx context.Context) (<-chan *models.StreamCandle, <-chan error) {
	out := make(chan *models.StreamCandle, 1024)
	errs := make(chan error, 1)

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				s.mu.Lock()
				if s.conn != nil {
					_ = s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				}
				s.mu.Unlock()
			}
		}
	}()

	go func() {
		defer close(out)
		defer close(errs)
		defer close(done)
		if conn == nil {
			errs <- fmt.Errorf("binance stream not connected")
			return
		}
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		defer stop()

		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					errs <- fmt.Errorf("binance read: %w", err)
				}
				s.mu.Lock()
				s.connected = false
				s.mu.Unlock()
				return
			}
			var ev klineEvent
			if err := json.Unmarshal(b, &ev); err != nil || ev.Data.Event != "kline" {
				continue
			}
			c, err := ev.candle(time.Now().UTC())
			if err != nil {
				s.log.Warn("bad kline frame", applogger.String("stream", ev.Stream), applogger.Error(err))
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			default:
				// drop on backpressure unless the bar just closed
				if c.Closed {
					select {
					case out <- c:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, errs
}

// Reconnect closes and reconnects after the configured delay.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-time.After(s.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.Connect(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

var _ drepo.CandleStream = (*Stream)(nil)
