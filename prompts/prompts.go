package prompts

import (
	"bytes"
	"strings"
	"text/template"
)

// generateFromTemplate is a generic function that generates a prompt from any template and data.
func generateFromTemplate[T any](templateString string, data T) (string, error) {
	funcMap := template.FuncMap{
		"formatSkills": formatSkills,
		"trim":         strings.TrimSpace,
	}

	tmpl, err := template.New("prompt").Funcs(funcMap).Parse(templateString)
	if err != nil {
		return "", err
	}
	var prompt bytes.Buffer
	if err := tmpl.Execute(&prompt, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(prompt.String()), nil
}

// formatSkills renders one block per skill, skipping skills without any text.
func formatSkills(skills []SkillPrompt) string {
	var builder strings.Builder
	for _, skill := range skills {
		if skill.Description == "" && skill.SystemPrompt == "" {
			continue
		}
		builder.WriteString("<Skill name=\"" + skill.Name + "\">\n")
		if skill.Description != "" {
			builder.WriteString(skill.Description + "\n")
		}
		if skill.SystemPrompt != "" {
			builder.WriteString(skill.SystemPrompt + "\n")
		}
		builder.WriteString("</Skill>\n")
	}
	return strings.TrimSuffix(builder.String(), "\n")
}
