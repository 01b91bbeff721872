package schedule

import (
	"fmt"
	"math"
)

// SampleAll evaluates s at each of the given times, in order
func (ip Interpolator) SampleAll(s *Schedule, times []float64) (Series, error) {
	series := make(Series, 0, len(times))
	for _, t := range times {
		v, err := ip.Sample(s, t)
		if err != nil {
			return nil, err
		}
		series = append(series, Point{Time: t, Value: v})
	}
	return series, nil
}

// MaxGridPoints bounds the number of points a single grid may describe
const MaxGridPoints = 100_000

// GridSize returns how many points SampleEvery produces for the range. The
// end time counts when the grid lands on it.
func GridSize(start, end, step float64) (int, error) {
	for _, v := range []float64{start, end, step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: non-finite bound", ErrInvalidRange)
		}
	}
	if step <= 0 {
		return 0, fmt.Errorf("%w: step must be positive, got %v", ErrInvalidRange, step)
	}
	if end < start {
		return 0, fmt.Errorf("%w: end %v before start %v", ErrInvalidRange, end, start)
	}

	// stay in float64 until the bound is checked; the quotient may not fit an int
	count := math.Floor((end-start)/step+1e-9) + 1
	if math.IsInf(count, 0) || count > MaxGridPoints {
		return 0, fmt.Errorf("%w: too many points: %.0f > %d", ErrInvalidRange, count, MaxGridPoints)
	}
	return int(count), nil
}

// SampleEvery evaluates s on a regular grid from start to end. The end time is
// included when the grid lands on it.
func (ip Interpolator) SampleEvery(s *Schedule, start, end, step float64) (Series, error) {
	count, err := GridSize(start, end, step)
	if err != nil {
		return nil, err
	}

	times := make([]float64, count)
	for i := range times {
		// multiply rather than accumulate so the grid does not drift
		times[i] = start + float64(i)*step
	}

	return ip.SampleAll(s, times)
}

// Values returns the sampled values without their times
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}
