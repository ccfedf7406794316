package util

import "time"

// AlignFromTo rounds the time range down to multiples of step.
// A non-positive step aligns to the minute.
func AlignFromTo(from, to time.Time, step time.Duration) (time.Time, time.Time) {
    if step <= 0 {
        step = time.Minute
    }
    return from.Truncate(step), to.Truncate(step)
}

// ClampDuration bounds d to [lo, hi].
func ClampDuration(d, lo, hi time.Duration) time.Duration {
    if d < lo {
        return lo
    }
    if d > hi {
        return hi
    }
    return d
}
