package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"SignalFusion/internal/domain/models"
	drepo "SignalFusion/internal/domain/repository"
	"SignalFusion/internal/service/metrics"
	xhttp "SignalFusion/pkg/http"

	"github.com/shopspring/decimal"
)

// MaxKlines is the largest page the klines endpoint returns.
const MaxKlines = 1000

// Client fetches OHLCV history from the Binance REST API.
type Client struct {
	baseURL string
	http    *xhttp.Client
}

// New creates a REST client rooted at baseURL, e.g. https://api.binance.com.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent("signalfusion/1.0")),
	}
}

// GetCandles returns up to limit most recent candles, oldest first. The
// last candle may still be forming.
func (c *Client) GetCandles(ctx context.Context, coin string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	if !drepo.IsValidTimeframe(tf) {
		return nil, fmt.Errorf("unsupported timeframe %q", tf)
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > MaxKlines {
		limit = MaxKlines
	}

	symbol := models.ExchangeSymbol(coin)
	var rows [][]json.RawMessage
	start := time.Now()
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/api/v3/klines",
		QueryParams: map[string][]string{
			"symbol":   {symbol},
			"interval": {tf.String()},
			"limit":    {strconv.Itoa(limit)},
		},
	}, &rows)
	metrics.Observe("binance", start, err)
	if err != nil {
		return nil, &models.UpstreamUnavailableError{Source: "binance", Err: err}
	}

	candles := make([]models.Candle, 0, len(rows))
	for i, row := range rows {
		cd, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", i, err)
		}
		cd.Symbol = strings.ToUpper(coin)
		candles = append(candles, cd)
	}
	return candles, nil
}

// parseKline decodes [openTime, open, high, low, close, volume, closeTime, ...].
func parseKline(row []json.RawMessage) (models.Candle, error) {
	if len(row) < 6 {
		return models.Candle{}, fmt.Errorf("short row (%d fields)", len(row))
	}
	var openMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return models.Candle{}, fmt.Errorf("open time: %w", err)
	}
	vals := make([]float64, 5)
	for i := range vals {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		v, err := parseDecimal(s)
		if err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return models.Candle{
		Timestamp: time.UnixMilli(openMs).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}

func parseDecimal(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

var _ drepo.CandleSource = (*Client)(nil)
