package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SignalFusion/internal/domain/models"
	drepo "SignalFusion/internal/domain/repository"
	applogger "SignalFusion/pkg/logger"
)

const (
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
)

// CandleProcessor routes closed candles to the configured backend. The
// clickhouse backend batches inserts; kafka publishes each candle.
type CandleProcessor struct {
	pub     drepo.CandlePublisher
	store   drepo.CandleStore
	metrics drepo.Metrics
	log     *applogger.Logger
	backend string
	batchSz int
	batchTO time.Duration

	mu      sync.Mutex
	pending []*models.StreamCandle
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	once    sync.Once
}

// NewCandleProcessor creates a new CandleProcessor instance.
func NewCandleProcessor(
	pub drepo.CandlePublisher,
	store drepo.CandleStore,
	metrics drepo.Metrics,
	log *applogger.Logger,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *CandleProcessor {
	if log == nil {
		log = applogger.Nop()
	}
	if batchSz <= 0 {
		batchSz = 1
	}
	if batchTO <= 0 {
		batchTO = time.Second
	}
	return &CandleProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		log:     log,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start flushes partial batches every batch timeout until Close.
func (p *CandleProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.doneCh)
		t := time.NewTicker(p.batchTO)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-t.C:
				if err := p.Flush(ctx); err != nil {
					p.log.Warn("candle batch flush failed", applogger.Error(err))
				}
			}
		}
	}()
}

// Process processes a single candle and routes it to the configured backend.
func (p *CandleProcessor) Process(ctx context.Context, c *models.StreamCandle) error {
	if c == nil {
		return fmt.Errorf("candle is nil")
	}

	switch p.backend {
	case BackendKafka:
		start := time.Now()
		if err := p.pub.PublishCandle(ctx, c); err != nil {
			p.metrics.RecordError("process")
			return fmt.Errorf("process candle: %w", err)
		}
		p.metrics.RecordMessageSent(p.backend, c.Coin)
		p.metrics.RecordLatency("process", time.Since(start).Seconds())
		return nil
	case BackendClickHouse:
		p.mu.Lock()
		p.pending = append(p.pending, c)
		full := len(p.pending) >= p.batchSz
		p.mu.Unlock()
		if full {
			return p.Flush(ctx)
		}
		return nil
	default:
		return fmt.Errorf("unknown backend: %s", p.backend)
	}
}

// Flush writes buffered candles. On failure they are kept for the next flush.
func (p *CandleProcessor) Flush(ctx context.Context) error {
	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}
	if err := p.ProcessBatch(ctx, batch); err != nil {
		p.mu.Lock()
		p.pending = append(batch, p.pending...)
		p.mu.Unlock()
		return err
	}
	return nil
}

// Pending reports how many candles wait for the next flush.
func (p *CandleProcessor) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// ProcessBatch processes multiple candles in a batch.
func (p *CandleProcessor) ProcessBatch(ctx context.Context, candles []*models.StreamCandle) error {
	if len(candles) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case BackendKafka:
		err = p.pub.PublishCandles(ctx, candles)
	case BackendClickHouse:
		err = p.store.StoreBatch(ctx, candles)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, c := range candles {
		p.metrics.RecordMessageSent(p.backend, c.Coin)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

// Close stops the flush loop and writes what is left.
func (p *CandleProcessor) Close(ctx context.Context) error {
	p.once.Do(func() { close(p.stopCh) })
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if started {
		select {
		case <-p.doneCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.Flush(ctx)
}
