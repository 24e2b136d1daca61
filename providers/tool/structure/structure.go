package structure

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/leofalp/promptenhancer/providers/tool"
)

// CoreSections are the sections a well-formed prompt is expected to have,
// in reporting order.
var CoreSections = []string{"Role", "Task", "Context", "Format", "Constraints"}

// Input is the prompt draft to inspect.
type Input struct {
	Prompt string `json:"prompt" binding:"required" jsonschema:"description=The prompt draft to inspect"`
}

// Report lists which core sections were found.
type Report struct {
	PresentSections []string `json:"present_sections"`
	MissingSections []string `json:"missing_sections"`
	CharCount       int      `json:"char_count"`
}

// ToolName is the name the model calls the inspection by.
const ToolName = "inspect_prompt_structure"

// NewInspectTool returns the structure inspection as a tool.
func NewInspectTool() *tool.Tool[Input, Report] {
	return tool.NewTool(ToolName,
		func(_ context.Context, input Input) (Report, error) {
			return Inspect(input.Prompt), nil
		},
		tool.WithDescription("Inspects a prompt draft and reports whether the core sections (Role, Task, Context, Format, Constraints) are present."),
	)
}

// Inspect reports the core sections present in prompt. A section counts as
// present when any of "name:", "name -", "## name", "### name" or "[name]"
// occurs, case-insensitively. CharCount is in runes.
func Inspect(prompt string) Report {
	normalized := strings.ToLower(prompt)

	report := Report{
		PresentSections: []string{},
		MissingSections: []string{},
		CharCount:       utf8.RuneCountInString(prompt),
	}
	for _, section := range CoreSections {
		if hasSection(normalized, section) {
			report.PresentSections = append(report.PresentSections, section)
		} else {
			report.MissingSections = append(report.MissingSections, section)
		}
	}
	return report
}

func hasSection(normalized, name string) bool {
	token := strings.ToLower(name)
	markers := []string{
		token + ":",
		token + " -",
		"## " + token,
		"### " + token,
		"[" + token + "]",
	}
	for _, marker := range markers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}
