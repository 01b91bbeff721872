package schedule

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Interpolator evaluates a Schedule by linear interpolation between keyframes.
// The zero value clamps out-of-range queries to the boundary keyframes.
type Interpolator struct {
	Extrapolation Extrapolation `json:"extrapolation,omitempty"`
}

// ParseExtrapolation maps a policy name to an Extrapolation; empty means Clamp
func ParseExtrapolation(name string) (Extrapolation, error) {
	switch Extrapolation(strings.ToLower(strings.TrimSpace(name))) {
	case "", Clamp:
		return Clamp, nil
	case Linear:
		return Linear, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownExtrapolation, name)
	}
}

// Sample evaluates s at t with clamp-to-edge extrapolation
func Sample(s *Schedule, t float64) (float64, error) {
	return Interpolator{}.Sample(s, t)
}

// Sample returns the linearly interpolated value of s at time t.
// A NaN query yields NaN.
func (ip Interpolator) Sample(s *Schedule, t float64) (float64, error) {
	n := s.Len()
	if n < 2 {
		return 0, fmt.Errorf("%w: %d keyframes", ErrDegenerateSchedule, n)
	}
	if math.IsNaN(t) {
		return math.NaN(), nil
	}

	first, last := s.frames[0], s.frames[n-1]
	switch {
	case t <= first.Time:
		if t == first.Time || ip.Extrapolation != Linear {
			return first.Value, nil
		}
		return lerp(s.frames[0], s.frames[1], t), nil
	case t >= last.Time:
		if t == last.Time || ip.Extrapolation != Linear {
			return last.Value, nil
		}
		return lerp(s.frames[n-2], s.frames[n-1], t), nil
	}

	// first index whose time is past t; 1 <= i <= n-1 after the range checks
	i := sort.Search(n, func(i int) bool {
		return s.times[i] > t
	})
	return lerp(s.frames[i-1], s.frames[i], t), nil
}

func lerp(lo, hi Keyframe, t float64) float64 {
	f := (t - lo.Time) / (hi.Time - lo.Time)
	return lo.Value + f*(hi.Value-lo.Value)
}
