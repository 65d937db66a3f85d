package clock

import "time"

// Interval is the interactive repaint period for the given seconds setting.
func Interval(showSeconds bool) time.Duration {
	if showSeconds {
		return time.Second
	}
	return time.Minute
}

// NextTickDelay returns how long to wait from now until the next whole
// second (showSeconds) or whole minute. Aligning to boundaries keeps
// scheduling jitter from accumulating. The result is in (0, interval].
func NextTickDelay(now time.Time, showSeconds bool) time.Duration {
	interval := Interval(showSeconds).Milliseconds()
	elapsed := now.UnixMilli() % interval
	if elapsed < 0 {
		elapsed += interval
	}
	return time.Duration(interval-elapsed) * time.Millisecond
}
