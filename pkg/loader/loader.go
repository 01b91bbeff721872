// Package loader reads schedule documents from HCL, JSON, YAML or TOML sources.
package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/leowmjw/go-keyframe-schedule/pkg/hcl"
	"github.com/leowmjw/go-keyframe-schedule/pkg/schedule"
)

// Decode parses a schedule document in the given content type.
// An empty content type means the format is sniffed from the data.
func Decode(contentType string, data []byte) (*schedule.Definition, error) {
	if contentType == "" {
		contentType = hcl.DetectContent(data)
	}

	switch contentType {
	case hcl.ContentTypeHCL:
		return hcl.ParseHCLSchedule(string(data))

	case hcl.ContentTypeJSON:
		var def schedule.Definition
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&def); err != nil {
			return nil, fmt.Errorf("failed to decode JSON schedule: %w", err)
		}
		return &def, nil

	case hcl.ContentTypeYAML:
		var def schedule.Definition
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&def); err != nil {
			return nil, fmt.Errorf("failed to decode YAML schedule: %w", err)
		}
		return &def, nil

	case hcl.ContentTypeTOML:
		var def schedule.Definition
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&def)
		if err != nil {
			return nil, fmt.Errorf("failed to decode TOML schedule: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("failed to decode TOML schedule: unknown field %q", undecoded[0].String())
		}
		return &def, nil

	default:
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}
}

// LoadFile reads a schedule document, choosing the format from the file extension
func LoadFile(path string) (*schedule.Definition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule file %s: %w", path, err)
	}

	def, err := Decode(hcl.ContentTypeFromExtension(path), content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// LoadPath loads a schedule from a file or from a directory of HCL files
func LoadPath(path string) (*schedule.Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access path %s: %w", path, err)
	}

	if info.IsDir() {
		return hcl.ParseHCLDirectory(path)
	}
	return LoadFile(path)
}

// Load reads a schedule document and builds it into a validated Schedule
func Load(path string) (*schedule.Definition, *schedule.Schedule, schedule.Interpolator, error) {
	def, err := LoadPath(path)
	if err != nil {
		return nil, nil, schedule.Interpolator{}, err
	}

	s, ip, err := def.Build()
	if err != nil {
		return nil, nil, schedule.Interpolator{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, s, ip, nil
}
