package hcl

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leowmjw/go-keyframe-schedule/pkg/schedule"
)

func TestHCLDirectoryMerging(t *testing.T) {
	t.Run("Split Directory", func(t *testing.T) {
		def, err := ParseHCLDirectory("testdata/split")
		require.NoError(t, err)

		jsonContent, err := os.ReadFile("testdata/split_merged.json")
		require.NoError(t, err)

		var expected schedule.Definition
		require.NoError(t, json.Unmarshal(jsonContent, &expected))

		AssertDefinitionsEqual(t, &expected, def)
	})

	t.Run("Empty Directory", func(t *testing.T) {
		_, err := ParseHCLDirectory(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no HCL files found")
	})

	t.Run("Missing Directory", func(t *testing.T) {
		_, err := ParseHCLDirectory(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to walk directory")
	})

	t.Run("Duplicate Attribute Across Files", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(`name = "a"`), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"), []byte(`name = "b"`), 0o644))

		_, err := ParseHCLDirectory(dir)
		require.Error(t, err)
	})
}

func TestFindHCLFiles(t *testing.T) {
	files, err := FindHCLFiles("testdata/split")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "split", "00_meta.hcl"),
		filepath.Join("testdata", "split", "10_evening.hcl"),
		filepath.Join("testdata", "split", "20_night.hcl"),
	}, files)
}
