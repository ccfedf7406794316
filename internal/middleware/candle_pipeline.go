package middleware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"SignalFusion/internal/domain/models"
	domrepo "SignalFusion/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, c *models.StreamCandle) error
}

// CandlePipeline sits between the exchange stream and the candle processor.
// It validates, throttles in-progress bar updates, and buffers when downstream is unavailable.
type CandlePipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.StreamCandle
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	seenMu   sync.Mutex
	lastSeen map[string]time.Time // per-series last accepted update
	now      func() time.Time

	minBackoff time.Duration
	maxBackoff time.Duration
}

type PipelineOption func(*CandlePipeline)

// WithMaxRPS sets the max open-bar updates per second per series.
func WithMaxRPS(n int) PipelineOption {
	return func(p *CandlePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *CandlePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithRetryBackoff bounds the delay between buffered retries.
func WithRetryBackoff(min, max time.Duration) PipelineOption {
	return func(p *CandlePipeline) {
		if min > 0 && max >= min {
			p.minBackoff, p.maxBackoff = min, max
		}
	}
}

// NewCandlePipeline creates a new pipeline.
func NewCandlePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *CandlePipeline {
	p := &CandlePipeline{
		proc:       proc,
		metrics:    metrics,
		maxRPS:     5,
		bufSize:    1000,
		stopCh:     make(chan struct{}),
		lastSeen:   make(map[string]time.Time),
		now:        time.Now,
		minBackoff: 50 * time.Millisecond,
		maxBackoff: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.StreamCandle, p.bufSize)
	return p
}

// Start launches background flushing of buffered candles.
func (p *CandlePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.flush(ctx)
}

func (p *CandlePipeline) flush(ctx context.Context) {
	backoff := p.minBackoff
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case c := <-p.bufCh:
			if c == nil {
				continue
			}
			if err := p.proc.Process(ctx, c); err == nil {
				backoff = p.minBackoff
				continue
			}
			p.metrics.RecordError("pipeline_flush")
			backoff = min(backoff*2, p.maxBackoff)

			t := time.NewTimer(backoff)
			select {
			case <-p.stopCh:
				t.Stop()
				return
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			// requeue if space; drop otherwise
			select {
			case p.bufCh <- c:
			default:
				p.metrics.RecordError("pipeline_buffer_drop")
			}
		}
	}
}

// Stop stops the background flushing.
func (p *CandlePipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	close(p.stopCh)
}

// Buffered reports how many candles wait for retry.
func (p *CandlePipeline) Buffered() int { return len(p.bufCh) }

// Process validates, throttles, and forwards a candle downstream, buffering on errors.
// Closed bars are never throttled.
func (p *CandlePipeline) Process(ctx context.Context, c *models.StreamCandle) error {
	start := p.now()
	if err := validateCandle(c); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !c.Closed && !p.allow(c.Key(), start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, c); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- c:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", p.now().Sub(start).Seconds())
	return nil
}

func validateCandle(c *models.StreamCandle) error {
	if c == nil {
		return fmt.Errorf("candle nil")
	}
	if c.Coin == "" || c.Timeframe == "" {
		return fmt.Errorf("series empty")
	}
	if c.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid price/volume")
		}
	}
	if c.High < c.Low {
		return fmt.Errorf("high below low")
	}
	return nil
}

func (p *CandlePipeline) allow(key string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.seenMu.Lock()
	defer p.seenMu.Unlock()
	last, ok := p.lastSeen[key]
	if ok && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[key] = now
	return true
}
