package schedule

import "fmt"

// Definition is a decoded schedule document, independent of its file format
type Definition struct {
	Name          string        `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Extrapolation Extrapolation `json:"extrapolation,omitempty" yaml:"extrapolation,omitempty" toml:"extrapolation,omitempty"`
	Frames        []Record      `json:"frames" yaml:"frames" toml:"frames"`
}

// Build validates the document and returns its Schedule together with the
// Interpolator configured by the document's extrapolation policy
func (d Definition) Build() (*Schedule, Interpolator, error) {
	policy, err := ParseExtrapolation(string(d.Extrapolation))
	if err != nil {
		return nil, Interpolator{}, err
	}

	s, err := FromRecords(d.Frames)
	if err != nil {
		if d.Name != "" {
			return nil, Interpolator{}, fmt.Errorf("schedule %q: %w", d.Name, err)
		}
		return nil, Interpolator{}, err
	}

	return s, Interpolator{Extrapolation: policy}, nil
}
