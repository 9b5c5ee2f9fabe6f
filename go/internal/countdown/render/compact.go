package render

import (
	"strings"

	"github.com/mcdev12/countdown/go/internal/countdown"
)

// Compact renders rt on one line, e.g. "03d 04:05:06". Seconds are dropped
// when showSeconds is false.
func Compact(rt countdown.RemainingTime, showSeconds bool) string {
	if rt.IsComplete {
		return DefaultCompleteText
	}

	parts := []string{Pad(int64(rt.Hours)), Pad(int64(rt.Minutes))}
	if showSeconds {
		parts = append(parts, Pad(int64(rt.Seconds)))
	}
	return Pad(rt.Days) + "d " + strings.Join(parts, ":")
}
