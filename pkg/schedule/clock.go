package schedule

import (
	"fmt"
	"math"
	"time"
)

const clockLayout = "15:04"

// ParseClockTime converts a 24-hour "HH:MM" label into seconds since midnight
func ParseClockTime(label string) (float64, error) {
	t, err := time.Parse(clockLayout, label)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimeFormat, label, err)
	}

	seconds := t.Second() + t.Minute()*60 + t.Hour()*60*60
	return float64(seconds), nil
}

// FormatClockTime renders seconds since midnight as "HH:MM", or "HH:MM:SS" when
// the time is not on a whole minute. Times outside a single day are written
// with a leading sign or an hour past 23 rather than wrapped.
func FormatClockTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return fmt.Sprint(seconds)
	}

	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}

	// float arithmetic: large times would overflow a time.Duration
	total := math.Round(seconds)
	h := math.Floor(total / 3600)
	m := math.Floor(math.Mod(total, 3600) / 60)
	s := math.Mod(total, 60)

	if s != 0 {
		return fmt.Sprintf("%s%02.0f:%02.0f:%02.0f", sign, h, m, s)
	}
	return fmt.Sprintf("%s%02.0f:%02.0f", sign, h, m)
}
