package schedule

import (
	"fmt"
	"math"
	"sort"
)

// Schedule is an immutable, time-sorted sequence of keyframes with strictly
// increasing times. Build one with New or FromRecords.
type Schedule struct {
	frames []Keyframe
	times  []float64
}

// FromRecords parses raw (clock label, value) records into a Schedule.
// Records may arrive in any order.
func FromRecords(records []Record) (*Schedule, error) {
	frames := make([]Keyframe, 0, len(records))
	for i, record := range records {
		seconds, err := ParseClockTime(record.Time)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		frames = append(frames, Keyframe{Time: seconds, Value: record.Percent})
	}

	return New(frames)
}

// New validates keyframes and returns them as a Schedule sorted by time.
// The input slice is copied and never modified.
func New(frames []Keyframe) (*Schedule, error) {
	for i, frame := range frames {
		if math.IsNaN(frame.Time) || math.IsInf(frame.Time, 0) {
			return nil, fmt.Errorf("frame %d: %w", i, ErrNonFiniteTime)
		}
	}

	if len(frames) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientKeyframes, len(frames))
	}

	sorted := make([]Keyframe, len(frames))
	copy(sorted, frames)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time < sorted[j].Time
	})

	times := make([]float64, len(sorted))
	for i, frame := range sorted {
		if i > 0 && frame.Time == sorted[i-1].Time {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTime, FormatClockTime(frame.Time))
		}
		times[i] = frame.Time
	}

	return &Schedule{frames: sorted, times: times}, nil
}

// Len returns the number of keyframes
func (s *Schedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.frames)
}

// At returns the i-th keyframe in time order
func (s *Schedule) At(i int) Keyframe {
	return s.frames[i]
}

// Keyframes returns a copy of the keyframes in time order
func (s *Schedule) Keyframes() []Keyframe {
	out := make([]Keyframe, s.Len())
	if s != nil {
		copy(out, s.frames)
	}
	return out
}

// Times returns a copy of the keyframe times in increasing order
func (s *Schedule) Times() []float64 {
	out := make([]float64, s.Len())
	if s != nil {
		copy(out, s.times)
	}
	return out
}

// Start returns the first keyframe
func (s *Schedule) Start() Keyframe {
	return s.frames[0]
}

// End returns the last keyframe
func (s *Schedule) End() Keyframe {
	return s.frames[len(s.frames)-1]
}
