package countdown

import (
	"fmt"
	"strings"
	"time"
)

// Target is the fixed instant a countdown runs towards.
// The zero Target is never valid.
type Target struct {
	at time.Time
}

// localLayouts carry no zone information and are read in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// dateOnlyLayout is read as UTC midnight, matching how browsers treat bare dates.
const dateOnlyLayout = "2006-01-02"

// ParseTarget parses an ISO-8601-like date string. Strings without a zone are
// interpreted in loc (time.Local when nil), bare dates as UTC midnight.
func ParseTarget(raw string, loc *time.Location) (Target, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Target{}, fmt.Errorf("%w: empty date", ErrInvalidTarget)
	}
	if loc == nil {
		loc = time.Local
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return TargetFromTime(t)
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return TargetFromTime(t)
		}
	}
	if t, err := time.ParseInLocation(dateOnlyLayout, s, time.UTC); err == nil {
		return TargetFromTime(t)
	}

	return Target{}, fmt.Errorf("%w: %q", ErrInvalidTarget, raw)
}

// TargetFromTime wraps a native time value. The zero time is rejected.
func TargetFromTime(t time.Time) (Target, error) {
	if t.IsZero() {
		return Target{}, fmt.Errorf("%w: zero time", ErrInvalidTarget)
	}
	return Target{at: t}, nil
}

// MustTarget is TargetFromTime for callers that already hold a valid time.
func MustTarget(t time.Time) Target {
	target, err := TargetFromTime(t)
	if err != nil {
		panic(err)
	}
	return target
}

// Time returns the target instant.
func (t Target) Time() time.Time {
	return t.at
}

// IsZero reports whether t is the not-a-time sentinel.
func (t Target) IsZero() bool {
	return t.at.IsZero()
}

func (t Target) String() string {
	if t.IsZero() {
		return "<invalid>"
	}
	return t.at.Format(time.RFC3339)
}
