// Package opspod - skill.go
// Defines the Skill structure, grouping Tools and domain-specific logic.

package opspod

import (
	"fmt"
)

// Skill holds a set of tools and a domain-specific prompt/description.
type Skill struct {
	Name          string
	Description   string
	SystemPrompt  string
	StatusMessage string
	Tools         []Tool
}

func (s *Skill) GetTool(name string) (Tool, error) {
	for _, tool := range s.Tools {
		if tool.Name() == name {
			return tool, nil
		}
	}
	return nil, fmt.Errorf("tool %s: %w", name, ErrToolNotFound)
}

// Specs returns the model facing descriptions of the skill's tools.
func (s *Skill) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(s.Tools))
	for _, tool := range s.Tools {
		specs = append(specs, Spec(tool))
	}
	return specs
}

// statusFor prefers the tool's own status message over the skill's.
func (s *Skill) statusFor(tool Tool) string {
	if msg := tool.StatusMessage(); msg != "" {
		return msg
	}
	return s.StatusMessage
}
