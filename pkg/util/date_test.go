package util

import (
    "testing"
    "time"
)

func TestAlignFromTo(t *testing.T) {
    from := time.Date(2024, 10, 10, 10, 17, 42, 0, time.UTC)
    to := time.Date(2024, 10, 10, 11, 3, 1, 0, time.UTC)
    f, tt := AlignFromTo(from, to, 15*time.Minute)
    if f.Minute() != 15 || f.Second() != 0 {
        t.Fatalf("unexpected from %v", f)
    }
    if tt.Hour() != 11 || tt.Minute() != 0 {
        t.Fatalf("unexpected to %v", tt)
    }
}

func TestClampDuration(t *testing.T) {
    if got := ClampDuration(time.Second, time.Minute, time.Hour); got != time.Minute {
        t.Fatalf("low clamp: %v", got)
    }
    if got := ClampDuration(2*time.Hour, time.Minute, time.Hour); got != time.Hour {
        t.Fatalf("high clamp: %v", got)
    }
    if got := ClampDuration(30*time.Minute, time.Minute, time.Hour); got != 30*time.Minute {
        t.Fatalf("in range: %v", got)
    }
}
