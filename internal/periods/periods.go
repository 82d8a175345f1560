package periods

import (
	"fmt"
	"time"
)

// Period is one contiguous interval of active (non-paused) time within a
// take. End is nil while the interval is still open.
type Period struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end"`
}

// Elapsed sums the duration of every period. The open period, if any,
// counts up to now. Periods are assumed well-formed: non-negative,
// non-overlapping, starts in increasing order.
func Elapsed(ps []Period, now time.Time) time.Duration {
	var total time.Duration
	for _, p := range ps {
		end := now
		if p.End != nil {
			end = *p.End
		}
		total += end.Sub(p.Start)
	}
	return total
}

// ElapsedMs is Elapsed truncated to whole milliseconds, the unit the
// takes table stores.
func ElapsedMs(ps []Period, now time.Time) int64 {
	return Elapsed(ps, now).Milliseconds()
}

// CloseOpen sets End on the trailing open period, if there is one.
func CloseOpen(ps []Period, now time.Time) []Period {
	if len(ps) == 0 {
		return ps
	}
	last := &ps[len(ps)-1]
	if last.End == nil {
		end := now
		last.End = &end
	}
	return ps
}

// PrettyPrintMs formats a millisecond count the way PrettyPrint does.
func PrettyPrintMs(ms int64) string {
	return PrettyPrint(time.Duration(ms) * time.Millisecond)
}

// PrettyPrint formats a duration as "2h 5m", "5m" or "0m". Anything under
// a minute floors to "0m".
func PrettyPrint(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int(d%time.Hour) / int(time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
