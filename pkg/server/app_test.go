package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"SignalFusion/pkg/config"
	xhttp "SignalFusion/pkg/http"
	applogger "SignalFusion/pkg/logger"
	"SignalFusion/pkg/queue"
)

type countJob struct{ n atomic.Int32 }

func (j *countJob) Name() string { return "count" }
func (j *countJob) Type() string { return "count" }
func (j *countJob) Handle(context.Context, json.RawMessage) error {
	j.n.Add(1)
	return nil
}

func TestAppStartShutdown(t *testing.T) {
	cfg := &config.Config{}
	jobs := queue.NewMemoryQueue(applogger.Nop(), &queue.QueueConfig{Workers: 1})
	job := &countJob{}

	closed := 0
	app := New(cfg, nil, Components{
		HTTP:    xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0), xhttp.WithMetrics(false, "", 0)),
		Jobs:    jobs,
		JobList: []queue.Job{job},
		Closers: []Closer{
			{Name: "a", Close: func() error { closed++; return nil }},
			{Name: "b", Close: func() error { closed++; return errors.New("already closed") }},
		},
	})

	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := jobs.Enqueue(context.Background(), "count", map[string]string{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for job.n.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if job.n.Load() != 1 {
		t.Fatalf("job ran %d times", job.n.Load())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if closed != 2 {
		t.Fatalf("closers run=%d, want 2 even when one fails", closed)
	}
}
