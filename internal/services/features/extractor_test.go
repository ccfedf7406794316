package features

import (
    "errors"
    "math"
    "testing"
    "time"

    "SignalFusion/internal/domain/models"
    "SignalFusion/internal/services/indicators"
)

func wave(n int) []models.Candle {
    base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
    out := make([]models.Candle, n)
    for i := range out {
        p := 100 + 5*math.Sin(float64(i)/4)
        out[i] = models.Candle{Timestamp: base.Add(time.Duration(i) * time.Hour), Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 1000 + float64(i)}
    }
    return out
}

func TestLatestRowComplete(t *testing.T) {
    c := wave(60)
    row, err := LatestRow(c, indicators.Compute(c, indicators.DefaultParams()))
    if err != nil {
        t.Fatalf("LatestRow: %v", err)
    }
    if len(row) != len(models.FeatureColumns) {
        t.Fatalf("row has %d columns", len(row))
    }
    if row["close"] != c[59].Close {
        t.Fatalf("close mismatch")
    }
}

func TestLatestRowShortWindow(t *testing.T) {
    c := wave(20)
    _, err := LatestRow(c, indicators.Compute(c, indicators.DefaultParams()))
    var de *models.DataInsufficientError
    if !errors.As(err, &de) {
        t.Fatalf("expected DataInsufficientError, got %v", err)
    }
    if de.Required != 34 {
        t.Fatalf("required=%d want 34", de.Required)
    }
}

func TestComputeLogReturns(t *testing.T) {
    c := []models.Candle{{Close: 100}, {Close: 110}, {Close: 0}}
    r := ComputeLogReturns(c)
    if len(r) != 2 || math.Abs(r[0]-math.Log(1.1)) > 1e-12 || r[1] != 0 {
        t.Fatalf("unexpected returns %v", r)
    }
}

func TestBarsPerYear(t *testing.T) {
    if got := BarsPerYear(time.Hour); got != 8760 {
        t.Fatalf("bars per year=%v", got)
    }
}

func TestSummarize(t *testing.T) {
    c := []models.Candle{
        {High: 11, Low: 9, Close: 10},
        {High: 13, Low: 8, Close: 12},
    }
    s := Summarize(c, time.Hour)
    if s.High != 13 || s.Low != 8 || math.Abs(s.ChangePct-20) > 1e-9 {
        t.Fatalf("unexpected summary %+v", s)
    }
}
