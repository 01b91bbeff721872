package schedule

import "errors"

// Keyframe is a single control point: a time in seconds since midnight and the value at that time
type Keyframe struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// Record is a raw keyframe as it appears in a schedule document
type Record struct {
	Time    string  `json:"time" yaml:"time" toml:"time"`          // 24-hour clock label, "HH:MM"
	Percent float64 `json:"percent" yaml:"percent" toml:"percent"` // value at that time
}

// Point is a sampled value of a schedule
type Point struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// Series is a collection of sampled points in query order
type Series []Point

// Extrapolation selects what Sample returns for queries outside the keyframe range
type Extrapolation string

const (
	// Clamp returns the value of the nearest boundary keyframe
	Clamp Extrapolation = "clamp"
	// Linear extends the first or last segment with its slope
	Linear Extrapolation = "linear"
)

var (
	ErrInvalidTimeFormat     = errors.New("invalid time format")
	ErrDuplicateTime         = errors.New("duplicate keyframe time")
	ErrInsufficientKeyframes = errors.New("at least two keyframes are required")
	ErrNonFiniteTime         = errors.New("keyframe time must be finite")
	ErrDegenerateSchedule    = errors.New("degenerate schedule")
	ErrUnknownExtrapolation  = errors.New("unknown extrapolation policy")
	ErrInvalidRange          = errors.New("invalid sampling range")
)
