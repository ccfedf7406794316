package usecase

import (
	"context"
	"sync"
	"time"

	applogger "SignalFusion/pkg/logger"
	"SignalFusion/pkg/queue"
)

// Locker is an optional cross-instance lock so only one replica enqueues per tick.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

const schedulerLockKey = "scheduler:prediction-refresh"

// Scheduler periodically enqueues a refresh for every streamed series.
type Scheduler struct {
	jobs       queue.Publisher
	lock       Locker
	coins      []string
	timeframes []string
	interval   time.Duration
	log        *applogger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(jobs queue.Publisher, lock Locker, coins, timeframes []string, interval time.Duration, log *applogger.Logger) *Scheduler {
	if log == nil {
		log = applogger.Nop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{jobs: jobs, lock: lock, coins: coins, timeframes: timeframes, interval: interval, log: log}
}

// Start runs one tick immediately and then every interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(s.interval)
		defer t.Stop()
		s.Tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Tick(ctx)
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		s.wg.Wait()
	}
}

// Tick enqueues one refresh per series and returns how many were enqueued.
func (s *Scheduler) Tick(ctx context.Context) int {
	if s.lock != nil {
		ok, err := s.lock.TryLock(ctx, schedulerLockKey, s.interval/2)
		if err != nil {
			s.log.Warn("scheduler lock failed", applogger.Error(err))
			return 0
		}
		if !ok {
			return 0
		}
	}
	n := 0
	for _, coin := range s.coins {
		for _, tf := range s.timeframes {
			if err := s.jobs.Enqueue(ctx, RefreshJobType, RefreshPayload{Coin: coin, Timeframe: tf}); err != nil {
				s.log.Warn("scheduler enqueue failed",
					applogger.String("coin", coin),
					applogger.String("tf", tf),
					applogger.Error(err))
				continue
			}
			n++
		}
	}
	s.log.Debug("scheduler tick", applogger.Int("enqueued", n))
	return n
}
