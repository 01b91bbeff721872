package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/leowmjw/go-keyframe-schedule/pkg/schedule"
)

// HCLSchedule represents the HCL schedule document
type HCLSchedule struct {
	Name          *string    `hcl:"name,optional"`
	Extrapolation *string    `hcl:"extrapolation,optional"`
	Frames        []HCLFrame `hcl:"frame,block"`
}

// HCLFrame represents a single keyframe block
type HCLFrame struct {
	Time    string  `hcl:"time"`
	Percent float64 `hcl:"percent"`
}

// hhmmFunc formats an hour and minute as a clock label, e.g. hhmm(6, 30) => "06:30".
// Range checking is left to the schedule parser so errors read the same for
// literal labels and computed ones.
var hhmmFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{
			Name: "hour",
			Type: cty.Number,
		},
		{
			Name: "minute",
			Type: cty.Number,
		},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		var hour, minute int
		if err := gocty.FromCtyValue(args[0], &hour); err != nil {
			return cty.UnknownVal(cty.String), fmt.Errorf("hour: %w", err)
		}
		if err := gocty.FromCtyValue(args[1], &minute); err != nil {
			return cty.UnknownVal(cty.String), fmt.Errorf("minute: %w", err)
		}
		return cty.StringVal(fmt.Sprintf("%02d:%02d", hour, minute)), nil
	},
})

// newEvalContext creates the evaluation context with helper functions
func newEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{},
		Functions: map[string]function.Function{
			"hhmm": hhmmFunc,
		},
	}
}

// ParseHCLSchedule parses HCL content and converts it to a schedule.Definition.
// The result is not validated; call Build on it to get a Schedule.
func ParseHCLSchedule(hclContent string) (*schedule.Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL([]byte(hclContent), "schedule.hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}

	return parseHCLScheduleFromFile(file)
}

// parseHCLScheduleFromFile decodes a schedule from an already parsed HCL file
func parseHCLScheduleFromFile(file *hcl.File) (*schedule.Definition, error) {
	var hclSchedule HCLSchedule
	diags := gohcl.DecodeBody(file.Body, newEvalContext(), &hclSchedule)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL body: %s", diags.Error())
	}

	return convertHCLSchedule(&hclSchedule), nil
}

// convertHCLSchedule maps the HCL structures onto the format-independent definition
func convertHCLSchedule(hclSchedule *HCLSchedule) *schedule.Definition {
	def := &schedule.Definition{
		Frames: make([]schedule.Record, 0, len(hclSchedule.Frames)),
	}

	if hclSchedule.Name != nil {
		def.Name = *hclSchedule.Name
	}
	if hclSchedule.Extrapolation != nil {
		def.Extrapolation = schedule.Extrapolation(*hclSchedule.Extrapolation)
	}

	for _, frame := range hclSchedule.Frames {
		def.Frames = append(def.Frames, schedule.Record{
			Time:    frame.Time,
			Percent: frame.Percent,
		})
	}

	return def
}

// IsHCL attempts to detect if the given content is in HCL format
func IsHCL(content []byte) bool {
	_, diags := hclsyntax.ParseConfig(content, "", hcl.Pos{Line: 1, Column: 1})
	return !diags.HasErrors()
}
