package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SignalFusion/internal/usecase"
	"SignalFusion/pkg/config"
	xhttp "SignalFusion/pkg/http"
	pkgkafka "SignalFusion/pkg/kafka"
	applogger "SignalFusion/pkg/logger"
	"SignalFusion/pkg/queue"
	"SignalFusion/pkg/tracing"
)

// Closer releases an infrastructure client on shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// Components are the long-running parts of the application. Nil members are
// skipped, so a minimal deployment only needs the HTTP server.
type Components struct {
	HTTP      *xhttp.Server
	Collector *usecase.CandleCollector
	Consumer  *pkgkafka.Consumer
	Handlers  []pkgkafka.MessageHandler
	Jobs      queue.Server
	JobList   []queue.Job
	Scheduler *usecase.Scheduler
	Closers   []Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg    *config.Config
	log    *applogger.Logger
	c      Components
	cancel context.CancelFunc
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, log *applogger.Logger, c Components) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{cfg: cfg, log: log, c: c}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.Start(context.Background()); err != nil {
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.Shutdown(ctx)
}

// Start brings up workers first and the HTTP server last.
func (a *App) Start(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	a.cancel = cancel

	if err := tracing.Init(tracing.Config{
		Enabled:     a.cfg.Tracing.Enabled,
		ServiceName: a.cfg.Tracing.ServiceName,
	}); err != nil {
		a.log.Warn("tracing disabled", applogger.Error(err))
	}

	if a.c.Jobs != nil {
		for _, j := range a.c.JobList {
			a.c.Jobs.RegisterJob(j)
		}
		if err := a.c.Jobs.Start(); err != nil {
			cancel()
			return err
		}
		a.log.Info("job queue started", applogger.Int("jobs", len(a.c.JobList)))
	}

	if a.c.Consumer != nil && len(a.c.Handlers) > 0 {
		for _, h := range a.c.Handlers {
			a.c.Consumer.RegisterHandler(h)
		}
		go func() {
			if err := a.c.Consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.Int("topics", len(a.c.Handlers)))
	}

	if a.c.Collector != nil {
		go func() {
			if err := a.c.Collector.Start(ctx); err != nil {
				a.log.Error("collector error", applogger.Error(err))
			}
		}()
		a.log.Info("collector started",
			applogger.Strings("coins", a.cfg.Market.StreamCoins),
			applogger.Strings("timeframes", a.cfg.Market.StreamTimeframes))
	}

	if a.c.Scheduler != nil {
		a.c.Scheduler.Start(ctx)
		a.log.Info("scheduler started", applogger.String("interval", a.cfg.Scheduler.Interval.String()))
	}

	if a.c.HTTP != nil {
		if err := a.c.HTTP.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			cancel()
			return err
		}
	}
	return nil
}

// Shutdown stops intake before workers and closes clients last.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	if a.c.HTTP != nil {
		if err := a.c.HTTP.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.c.Scheduler != nil {
		a.c.Scheduler.Stop()
	}
	if a.c.Collector != nil {
		if err := a.c.Collector.Shutdown(ctx); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}
	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.c.Jobs != nil {
		if err := a.c.Jobs.Stop(ctx); err != nil {
			a.log.Warn("job queue stop error", applogger.Error(err))
		}
	}
	if a.cancel != nil {
		a.cancel()
	}

	a.log.RemoveCollector()
	if err := tracing.Shutdown(ctx); err != nil {
		a.log.Warn("tracing flush error", applogger.Error(err))
	}
	for _, c := range a.c.Closers {
		if err := c.Close(); err != nil {
			a.log.Warn(c.Name+" close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
