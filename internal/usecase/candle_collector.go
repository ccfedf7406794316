package usecase

import (
	"context"
	"sync"

	"SignalFusion/internal/domain/models"
	drepo "SignalFusion/internal/domain/repository"
	mid "SignalFusion/internal/middleware"
	applogger "SignalFusion/pkg/logger"
)

// CandleCollector reads the live kline stream and forwards closed bars.
type CandleCollector struct {
	stream  drepo.CandleStream
	proc    *CandleProcessor
	metrics drepo.Metrics
	pipe    *mid.CandlePipeline
	log     *applogger.Logger

	mu     sync.RWMutex
	latest map[string]models.StreamCandle
}

// NewCandleCollector creates a new CandleCollector instance.
func NewCandleCollector(stream drepo.CandleStream, proc *CandleProcessor, metrics drepo.Metrics, pipe *mid.CandlePipeline, log *applogger.Logger) *CandleCollector {
	if log == nil {
		log = applogger.Nop()
	}
	return &CandleCollector{
		stream:  stream,
		proc:    proc,
		metrics: metrics,
		pipe:    pipe,
		log:     log,
		latest:  make(map[string]models.StreamCandle),
	}
}

// IsConnected returns true if the market stream is connected.
func (c *CandleCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *CandleCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	if c.proc != nil {
		c.proc.Start(ctx)
	}
	go c.run(ctx)
	return nil
}

// run reads until ctx ends, reconnecting whenever the stream drops.
func (c *CandleCollector) run(ctx context.Context) {
	for {
		cCh, errCh := c.stream.Read(ctx)
		c.consume(ctx, cCh, errCh)
		if ctx.Err() != nil {
			return
		}
		for {
			c.metrics.RecordError("stream")
			err := c.stream.Reconnect(ctx)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("stream reconnect failed", applogger.Error(err))
		}
	}
}

func (c *CandleCollector) consume(ctx context.Context, cCh <-chan *models.StreamCandle, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if ok && err != nil {
				c.log.Warn("stream read failed", applogger.Error(err))
				return
			}
			if !ok {
				errCh = nil
			}
		case k, ok := <-cCh:
			if !ok {
				return
			}
			if k == nil {
				continue
			}
			c.remember(k)
			c.metrics.RecordLastPrice(k.Coin, k.Close)
			if !k.Closed {
				continue
			}
			var err error
			if c.pipe != nil {
				err = c.pipe.Process(ctx, k)
			} else if c.proc != nil {
				err = c.proc.Process(ctx, k)
			}
			if err != nil {
				c.log.Debug("closed candle not delivered", applogger.String("series", k.Key()), applogger.Error(err))
			}
		}
	}
}

func (c *CandleCollector) remember(k *models.StreamCandle) {
	c.mu.Lock()
	c.latest[k.Key()] = *k
	c.mu.Unlock()
}

// Latest returns the last streamed bar of a series, closed or not.
func (c *CandleCollector) Latest(coin, timeframe string) (models.StreamCandle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.latest[models.StreamCandle{Coin: coin, Timeframe: timeframe}.Key()]
	return k, ok
}

// Processor returns the underlying CandleProcessor for lifecycle management.
func (c *CandleCollector) Processor() *CandleProcessor { return c.proc }

// Shutdown stops the pipeline, flushes the processor and closes the stream.
func (c *CandleCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	err := c.stream.Close()
	if c.proc != nil {
		if ferr := c.proc.Close(ctx); ferr != nil {
			c.log.Warn("candle processor flush on shutdown failed", applogger.Error(ferr))
		}
	}
	return err
}
