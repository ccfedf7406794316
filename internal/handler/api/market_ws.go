package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	models "SignalFusion/internal/domain/models"
	"SignalFusion/internal/usecase"
	xlogger "SignalFusion/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	defaultFeedCoin      = "BTC"
	defaultFeedTimeframe = "1h"
	feedWriteWait        = 10 * time.Second
	feedPongWait         = 60 * time.Second
	feedPingPeriod       = feedPongWait * 9 / 10
	feedMarketLimit      = 100
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// FeedMessage is pushed to /ws/market clients.
type FeedMessage struct {
	Type       string              `json:"type"`
	Coin       string              `json:"coin"`
	Timeframe  string              `json:"timeframe"`
	Prediction *models.Prediction  `json:"prediction,omitempty"`
	MarketData *usecase.MarketData `json:"market_data,omitempty"`
	Message    string              `json:"message,omitempty"`
}

// MarketFeed streams a full update on connect, whenever the client changes its
// subscription and then every push interval.
func (h *PredictionEchoHandler) MarketFeed(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	subs := make(chan models.MarketSubscription, 1)
	go h.readSubscriptions(ctx, cancel, conn, subs)

	sub := models.MarketSubscription{Coin: defaultFeedCoin, Timeframe: defaultFeedTimeframe}
	h.logger.Info("ws client connected", xlogger.String("remote", c.RealIP()))

	var writeMu sync.Mutex
	send := func(msg FeedMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
		return conn.WriteJSON(msg)
	}

	if err := send(h.fullUpdate(ctx, sub)); err != nil {
		return nil
	}
	ticker := time.NewTicker(h.push)
	defer ticker.Stop()
	ping := time.NewTicker(feedPingPeriod)
	defer ping.Stop()

	for {
		var msg FeedMessage
		select {
		case <-ctx.Done():
			h.logger.Info("ws client disconnected", xlogger.String("remote", c.RealIP()))
			return nil
		case next := <-subs:
			if next.Coin != "" {
				sub.Coin = strings.ToUpper(next.Coin)
			}
			if next.Timeframe != "" {
				sub.Timeframe = next.Timeframe
			}
			h.logger.Debug("ws subscription updated",
				xlogger.String("coin", sub.Coin),
				xlogger.String("tf", sub.Timeframe))
			msg = h.fullUpdate(ctx, sub)
			ticker.Reset(h.push)
		case <-ticker.C:
			msg = h.fullUpdate(ctx, sub)
		case <-ping.C:
			writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait))
			writeMu.Unlock()
			if err != nil {
				return nil
			}
			continue
		}
		if err := send(msg); err != nil {
			h.logger.Debug("ws write failed", xlogger.Error(err))
			return nil
		}
	}
}

// readSubscriptions keeps only the newest pending subscription.
func (h *PredictionEchoHandler) readSubscriptions(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out chan models.MarketSubscription) {
	defer cancel()
	_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
		var sub models.MarketSubscription
		if err := json.Unmarshal(b, &sub); err != nil {
			continue
		}
		select {
		case <-out:
		default:
		}
		select {
		case out <- sub:
		case <-ctx.Done():
			return
		}
	}
}

func (h *PredictionEchoHandler) fullUpdate(ctx context.Context, sub models.MarketSubscription) FeedMessage {
	coin, tf, err := usecase.ValidateSeries(sub.Coin, sub.Timeframe)
	if err != nil {
		return FeedMessage{Type: "error", Coin: sub.Coin, Timeframe: sub.Timeframe, Message: err.Error()}
	}
	msg := FeedMessage{Type: "full_update", Coin: coin, Timeframe: tf.String()}

	p, err := h.pred.Predict(ctx, coin, tf.String(), h.info.Thresholds.MinConfidence)
	if err != nil {
		return FeedMessage{Type: "error", Coin: coin, Timeframe: tf.String(), Message: err.Error()}
	}
	msg.Prediction = &p

	md, err := h.market.GetMarketData(ctx, usecase.GetMarketDataParams{
		Coin:              coin,
		Timeframe:         tf.String(),
		Limit:             feedMarketLimit,
		IncludeIndicators: true,
	})
	if err != nil {
		h.logger.Warn("ws market data failed", xlogger.String("coin", coin), xlogger.Error(err))
	} else {
		msg.MarketData = md
	}
	return msg
}
