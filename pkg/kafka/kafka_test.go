package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		if d <= 0 || d > max {
			t.Fatalf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
}

func TestExtractTraceID(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "source", Value: []byte("x")}, {Key: TraceHeader, Value: []byte("abc")}}}
	if got := ExtractTraceID(msg); got != "abc" {
		t.Fatalf("got %q", got)
	}
	if got := ExtractTraceID(kafka.Message{}); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestTraceHeadersFromContext(t *testing.T) {
	if h := traceHeaders(context.Background()); h != nil {
		t.Fatalf("expected no headers, got %v", h)
	}
	h := traceHeaders(WithTraceID(context.Background(), "t-1"))
	if len(h) != 1 || string(h[0].Value) != "t-1" {
		t.Fatalf("headers=%v", h)
	}
}

func TestHookChainOrderAndPanicSafety(t *testing.T) {
	var order []string
	chain := HookChain{
		HookFuncs{
			Before: func(ctx context.Context, _ string, _ kafka.Message) (context.Context, error) {
				order = append(order, "b1")
				return ctx, nil
			},
			After: func(context.Context, string, kafka.Message, error) { order = append(order, "a1") },
		},
		HookFuncs{
			Before: func(ctx context.Context, _ string, _ kafka.Message) (context.Context, error) {
				order = append(order, "b2")
				return ctx, nil
			},
			After: func(context.Context, string, kafka.Message, error) {
				order = append(order, "a2")
				panic("boom")
			},
		},
	}

	ctx, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{})
	if err != nil {
		t.Fatalf("BeforeHandle: %v", err)
	}
	chain.AfterHandle(ctx, "t", kafka.Message{}, nil)

	want := []string{"b1", "b2", "a2", "a1"}
	if len(order) != len(want) {
		t.Fatalf("order=%v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order=%v", order)
		}
	}
}

func TestHookChainBeforePanicBecomesError(t *testing.T) {
	chain := HookChain{HookFuncs{Before: func(context.Context, string, kafka.Message) (context.Context, error) {
		panic("bad hook")
	}}}
	if _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTracingHookCarriesTraceID(t *testing.T) {
	var h TracingHook
	msg := kafka.Message{Topic: "candles", Headers: []kafka.Header{{Key: TraceHeader, Value: []byte("trace-9")}}}
	ctx, err := h.BeforeHandle(context.Background(), msg.Topic, msg)
	if err != nil {
		t.Fatalf("BeforeHandle: %v", err)
	}
	if TraceIDFrom(ctx) != "trace-9" {
		t.Fatalf("trace id not propagated")
	}
	if _, ok := StartTimeFrom(ctx); !ok {
		t.Fatalf("start time missing")
	}
	h.AfterHandle(ctx, msg.Topic, msg, errors.New("x"))
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(ProducerConfig{}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := NewConsumer(); err == nil {
		t.Fatalf("expected error")
	}
}
