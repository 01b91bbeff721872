package hcl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leowmjw/go-keyframe-schedule/pkg/schedule"
)

// AssertDefinitionsEqual compares two schedule definitions for equality in tests
func AssertDefinitionsEqual(t *testing.T, expected, actual *schedule.Definition) {
	t.Helper()

	assert.Equal(t, expected.Name, actual.Name)
	assert.Equal(t, expected.Extrapolation, actual.Extrapolation)

	assert.Equal(t, len(expected.Frames), len(actual.Frames))
	for i := 0; i < len(expected.Frames) && i < len(actual.Frames); i++ {
		assert.Equal(t, expected.Frames[i].Time, actual.Frames[i].Time, "frame %d time", i)
		assert.InDelta(t, expected.Frames[i].Percent, actual.Frames[i].Percent, 1e-9, "frame %d percent", i)
	}
}
