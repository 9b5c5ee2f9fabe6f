package countdown

import "time"

const (
	msPerSecond = int64(1000)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// RemainingTime is one snapshot of the time left until a target.
// Values are replaced wholesale on every tick.
type RemainingTime struct {
	Days       int64 `json:"days"`
	Hours      int   `json:"hours"`
	Minutes    int   `json:"minutes"`
	Seconds    int   `json:"seconds"`
	IsComplete bool  `json:"is_complete"`
}

// Completed is the terminal value reported once the target has been reached.
var Completed = RemainingTime{IsComplete: true}

// Compute returns the floor decomposition of target - now in whole
// milliseconds. It has no side effects.
func Compute(target, now time.Time) RemainingTime {
	diff := target.UnixMilli() - now.UnixMilli()
	if diff <= 0 {
		return Completed
	}

	return RemainingTime{
		Days:    diff / msPerDay,
		Hours:   int((diff % msPerDay) / msPerHour),
		Minutes: int((diff % msPerHour) / msPerMinute),
		Seconds: int((diff % msPerMinute) / msPerSecond),
	}
}

// TotalMillis reconstructs the remaining milliseconds, truncated to whole seconds.
func (r RemainingTime) TotalMillis() int64 {
	return r.Days*msPerDay +
		int64(r.Hours)*msPerHour +
		int64(r.Minutes)*msPerMinute +
		int64(r.Seconds)*msPerSecond
}
